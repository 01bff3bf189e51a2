package bctron

// EventApplier feeds events into the grid one at a time, see keeper.GridKeeper.
type EventApplier interface {
	Apply(e Event) error
	Place(p Position) (Cell, error)
	Stats() IngestStats
}

type IngestStats struct {
	Applied  uint64 `json:"applied"`
	Rejected uint64 `json:"rejected"`
}

type API struct {
	Grid   *Grid
	Ingest EventApplier
}

func NewAPI(grid *Grid, ingest EventApplier) API {
	return API{grid, ingest}
}

type GridView struct {
	DimX  int    `json:"dim_x"`
	DimY  int    `json:"dim_y"`
	Cells []Cell `json:"cells"`
}

func (a API) GetGrid() GridView {
	x, y := a.Grid.Dims()
	return GridView{DimX: x, DimY: y, Cells: a.Grid.Cells()}
}

func (a API) GetCell(x, y int) (Cell, error) {
	return a.Grid.CellAt(x, y)
}

func (a API) GetHistory(x, y int) ([]Cell, error) {
	return a.Grid.HistoryAt(x, y)
}

func (a API) GetHeads() []Cell {
	return a.Grid.CurrentHeads()
}

func (a API) DrainChanges() []Change {
	return a.Grid.Drain()
}

// ApplyPosition goes through the ingest path so manual updates are
// counted and published like upstream ones.
// The returned cell is the one this call wrote, even if another write
// has already replaced it.
func (a API) ApplyPosition(p Position) (Cell, error) {
	return a.Ingest.Place(p)
}

func (a API) SetHeads(heads map[string]Cell) error {
	if heads == nil {
		heads = map[string]Cell{}
	}
	return a.Ingest.Apply(Event{Kind: HeadsEvent, Heads: heads})
}

type StatsResponse struct {
	DimX   int         `json:"dim_x"`
	DimY   int         `json:"dim_y"`
	Dirty  int         `json:"dirty"`
	Heads  int         `json:"heads"`
	Ingest IngestStats `json:"ingest"`
}

func (a API) Stats() StatsResponse {
	x, y := a.Grid.Dims()
	return StatsResponse{
		DimX:   x,
		DimY:   y,
		Dirty:  a.Grid.Dirty(),
		Heads:  len(a.Grid.CurrentHeads()),
		Ingest: a.Ingest.Stats(),
	}
}
