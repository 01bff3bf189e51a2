package bctron

/*
The grid state model.

Position events from the chain watcher land on a fixed DimX*DimY matrix.
Every slot always holds a Cell record: an empty slot simply has no
OccupantID. When an occupied slot is overwritten the displaced Cell is
appended to that slot's history, so hovering a cell can show everyone
who used to be there followed by whoever is there now.

Heads (the current frontier of each actor) are kept separately and are
replaced wholesale whenever upstream sends a new set; they are never
merged with the previous set and never checked against the matrix.

Renderers learn about matrix changes either by draining the pending
change set (pull) or by subscribing to the change feed (push), see
diff.go.
*/

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// EmptyHash is the OccupantHash of a cell nobody has occupied yet.
const EmptyHash = "0"

// Cell is one addressable grid position and its current occupant.
type Cell struct {
	X            int    `json:"x"`
	Y            int    `json:"y"`
	OccupantID   string `json:"id"`
	OccupantHash string `json:"hash"`
	InstanceTag  string `json:"uuid"` // render identity only, no domain meaning
}

// Occupied reports whether anyone currently holds this cell.
func (c Cell) Occupied() bool {
	return c.OccupantID != ""
}

// Key is the positional history key of this cell.
func (c Cell) Key() string {
	return CellKey(c.X, c.Y)
}

func CellKey(x, y int) string {
	return fmt.Sprintf("_%d_%d", x, y)
}

// Position is an incoming occupancy update for one cell.
type Position struct {
	X            int    `json:"x"`
	Y            int    `json:"y"`
	OccupantID   string `json:"id"`
	OccupantHash string `json:"hash"`
}

type GridConfig struct {
	DimX       int
	DimY       int
	Retention  Retention
	HistoryCap int // only used with RetentionCapped
}

type Grid struct {
	mu sync.RWMutex

	dimX, dimY int
	retention  Retention
	historyCap int

	matrix  []Cell                  // flattened, index = y*dimX + x
	history map[string]*cellHistory // displaced occupants by cell key
	heads   map[string]Cell         // actor id -> head cell

	pending map[int]Change // coalesced changes since the last Drain
	subs    map[*changeSub]bool

	newTag func() string
}

func NewGrid(conf GridConfig) (*Grid, error) {
	if conf.DimX <= 0 || conf.DimY <= 0 {
		return nil, NewErr(BadRequest, "grid dimensions must be positive, got %dx%d", conf.DimX, conf.DimY)
	}
	retention, err := conf.Retention.normalise(conf.HistoryCap)
	if err != nil {
		return nil, err
	}
	g := &Grid{
		dimX:       conf.DimX,
		dimY:       conf.DimY,
		retention:  retention,
		historyCap: conf.HistoryCap,
		matrix:     make([]Cell, 0, conf.DimX*conf.DimY),
		history:    make(map[string]*cellHistory),
		heads:      map[string]Cell{},
		pending:    make(map[int]Change),
		subs:       make(map[*changeSub]bool),
		newTag:     uuid.NewString,
	}
	for y := 0; y < g.dimY; y++ {
		for x := 0; x < g.dimX; x++ {
			g.matrix = append(g.matrix, Cell{X: x, Y: y, OccupantHash: EmptyHash, InstanceTag: g.newTag()})
		}
	}
	return g, nil
}

func (g *Grid) Dims() (int, int) {
	return g.dimX, g.dimY
}

func (g *Grid) inRange(x, y int) bool {
	return x >= 0 && x < g.dimX && y >= 0 && y < g.dimY
}

func (g *Grid) index(x, y int) int {
	return y*g.dimX + x
}

func (g *Grid) checkRange(x, y int) error {
	if !g.inRange(x, y) {
		return NewErr(OutOfRange, "position (%d,%d) outside grid %dx%d", x, y, g.dimX, g.dimY)
	}
	return nil
}

// ApplyPosition writes a new occupant into the cell at (p.X, p.Y).
// If the cell was occupied the previous record is logged to history first.
// Every overwrite is logged, including repeated identical writes.
func (g *Grid) ApplyPosition(p Position) error {
	_, err := g.Place(p)
	return err
}

// Place is ApplyPosition returning the cell as written, before any later
// write can replace it.
func (g *Grid) Place(p Position) (Cell, error) {
	if err := g.checkRange(p.X, p.Y); err != nil {
		return Cell{}, err
	}
	hash := p.OccupantHash
	if hash == "" {
		hash = EmptyHash
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	idx := g.index(p.X, p.Y)
	prev := g.matrix[idx]
	if prev.Occupied() {
		g.appendHistory(prev)
	}
	next := Cell{
		X:            p.X,
		Y:            p.Y,
		OccupantID:   p.OccupantID,
		OccupantHash: hash,
		InstanceTag:  g.newTag(),
	}
	g.matrix[idx] = next
	g.markDirty(idx, prev, next)
	return next, nil
}

func (g *Grid) appendHistory(c Cell) {
	h, ok := g.history[c.Key()]
	if !ok {
		h = newCellHistory(g.retention, g.historyCap)
		g.history[c.Key()] = h
	}
	h.push(c)
}

// HistoryAt returns the displaced occupants of (x, y) in chronological
// order with the live cell appended last. It is never empty.
func (g *Grid) HistoryAt(x, y int) ([]Cell, error) {
	if err := g.checkRange(x, y); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	current := g.matrix[g.index(x, y)]
	h, ok := g.history[CellKey(x, y)]
	if !ok || h.len() == 0 {
		return []Cell{current}, nil
	}
	return append(h.snapshot(), current), nil
}

// HistoryLen is the number of stored (displaced) entries for (x, y).
func (g *Grid) HistoryLen(x, y int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if h, ok := g.history[CellKey(x, y)]; ok {
		return h.len()
	}
	return 0
}

func (g *Grid) CellAt(x, y int) (Cell, error) {
	if err := g.checkRange(x, y); err != nil {
		return Cell{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.matrix[g.index(x, y)], nil
}

// Cells returns a copy of the whole matrix in flattened order.
func (g *Grid) Cells() []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Cell, len(g.matrix))
	copy(out, g.matrix)
	return out
}

// SetHeads replaces the head set. An empty map clears all heads.
func (g *Grid) SetHeads(heads map[string]Cell) {
	next := make(map[string]Cell, len(heads))
	for actor, c := range heads {
		next[actor] = c
	}
	g.mu.Lock()
	g.heads = next
	g.mu.Unlock()
}

// CurrentHeads returns the head cells ordered by actor id.
func (g *Grid) CurrentHeads() []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	actors := make([]string, 0, len(g.heads))
	for actor := range g.heads {
		actors = append(actors, actor)
	}
	sort.Strings(actors)
	out := make([]Cell, 0, len(actors))
	for _, actor := range actors {
		out = append(out, g.heads[actor])
	}
	return out
}

// HeadOf returns the head cell of one actor.
func (g *Grid) HeadOf(actor string) (Cell, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.heads[actor]
	return c, ok
}
