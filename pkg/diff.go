package bctron

import (
	"sort"
)

type ChangeKind string

const (
	ChangeEnter  ChangeKind = "enter"  // empty -> occupied
	ChangeUpdate ChangeKind = "update" // occupied -> occupied
	ChangeExit   ChangeKind = "exit"   // occupied -> empty
)

// Change describes one cell transition for a renderer.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	Cell     Cell       `json:"cell"`
	Previous Cell       `json:"previous"`
}

// classify works out what a renderer has to do to go from prev to next.
// Writing an empty record over an empty cell needs no redraw.
func classify(prev, next Cell) (ChangeKind, bool) {
	switch {
	case !prev.Occupied() && next.Occupied():
		return ChangeEnter, true
	case prev.Occupied() && next.Occupied():
		return ChangeUpdate, true
	case prev.Occupied() && !next.Occupied():
		return ChangeExit, true
	}
	return "", false
}

type changeSub struct {
	ch chan Change
}

// markDirty records the transition in the pending set and fans it out to
// subscribers. Caller holds the write lock.
func (g *Grid) markDirty(idx int, prev, next Cell) {
	kind, changed := classify(prev, next)
	if changed {
		g.publish(Change{Kind: kind, Cell: next, Previous: prev})
	}

	// Coalesce against whatever the renderer last saw for this cell.
	if pending, ok := g.pending[idx]; ok {
		prev = pending.Previous
		kind, changed = classify(prev, next)
	}
	if !changed {
		delete(g.pending, idx)
		return
	}
	g.pending[idx] = Change{Kind: kind, Cell: next, Previous: prev}
}

// Drain returns the changes since the last Drain, one per cell in
// flattened order, and clears the pending set.
func (g *Grid) Drain() []Change {
	g.mu.Lock()
	defer g.mu.Unlock()

	idxs := make([]int, 0, len(g.pending))
	for idx := range g.pending {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	out := make([]Change, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.pending[idx])
	}
	g.pending = make(map[int]Change)
	return out
}

// Dirty is the number of cells with undrained changes.
func (g *Grid) Dirty() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.pending)
}

// Subscribe registers a push listener for matrix changes. A listener
// that cannot keep up is dropped and its channel closed. The returned
// func unsubscribes.
func (g *Grid) Subscribe(buffer int) (<-chan Change, func()) {
	sub := &changeSub{ch: make(chan Change, buffer)}
	g.mu.Lock()
	g.subs[sub] = true
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.dropSub(sub)
	}
	return sub.ch, cancel
}

func (g *Grid) publish(c Change) {
	for sub := range g.subs {
		select {
		case sub.ch <- c:
		default:
			g.dropSub(sub)
		}
	}
}

func (g *Grid) dropSub(sub *changeSub) {
	if g.subs[sub] {
		delete(g.subs, sub)
		close(sub.ch)
	}
}
