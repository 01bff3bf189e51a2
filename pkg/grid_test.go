package bctron

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// instance tags are random, compare everything else
var ignoreTag = cmpopts.IgnoreFields(Cell{}, "InstanceTag")

func newTestGrid(t *testing.T, x, y int) *Grid {
	g, err := NewGrid(GridConfig{DimX: x, DimY: y})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestNewGridIsFullyPopulated(t *testing.T) {
	g := newTestGrid(t, 4, 3)
	cells := g.Cells()
	if len(cells) != 12 {
		t.Fatalf("expected 12 cells, got %d", len(cells))
	}
	seen := map[string]bool{}
	tags := map[string]bool{}
	for i, c := range cells {
		if i != c.Y*4+c.X {
			t.Fatalf("cell %d is (%d,%d), not in flattened order", i, c.X, c.Y)
		}
		if c.Occupied() || c.OccupantHash != EmptyHash {
			t.Fatalf("new cell (%d,%d) is not empty: %+v", c.X, c.Y, c)
		}
		if seen[c.Key()] {
			t.Fatalf("duplicate cell %s", c.Key())
		}
		seen[c.Key()] = true
		if c.InstanceTag == "" || tags[c.InstanceTag] {
			t.Fatalf("cell %s has a missing or repeated instance tag %q", c.Key(), c.InstanceTag)
		}
		tags[c.InstanceTag] = true
	}
}

func TestNewGridRejectsBadConfig(t *testing.T) {
	bad := []GridConfig{
		{DimX: 0, DimY: 2},
		{DimX: 2, DimY: -1},
		{DimX: 2, DimY: 2, Retention: RetentionCapped},
		{DimX: 2, DimY: 2, Retention: "forever"},
	}
	for _, conf := range bad {
		if _, err := NewGrid(conf); !IsError(err, BadRequest) {
			t.Fatalf("NewGrid(%+v): expected bad-request, got %v", conf, err)
		}
	}
}

func TestHistoryExample(t *testing.T) {
	g := newTestGrid(t, 2, 2)

	if err := g.ApplyPosition(Position{X: 0, Y: 0, OccupantID: "alice", OccupantHash: "h1"}); err != nil {
		t.Fatalf("ApplyPosition alice: %v", err)
	}
	if g.HistoryLen(0, 0) != 0 {
		t.Fatalf("first write to an empty cell must not create history")
	}
	got, err := g.HistoryAt(0, 0)
	if err != nil {
		t.Fatalf("HistoryAt: %v", err)
	}
	want := []Cell{{X: 0, Y: 0, OccupantID: "alice", OccupantHash: "h1"}}
	if diff := cmp.Diff(want, got, ignoreTag); diff != "" {
		t.Fatalf("history after alice (-want +got):\n%s", diff)
	}

	if err := g.ApplyPosition(Position{X: 0, Y: 0, OccupantID: "bob", OccupantHash: "h2"}); err != nil {
		t.Fatalf("ApplyPosition bob: %v", err)
	}
	got, _ = g.HistoryAt(0, 0)
	want = []Cell{
		{X: 0, Y: 0, OccupantID: "alice", OccupantHash: "h1"},
		{X: 0, Y: 0, OccupantID: "bob", OccupantHash: "h2"},
	}
	if diff := cmp.Diff(want, got, ignoreTag); diff != "" {
		t.Fatalf("history after bob (-want +got):\n%s", diff)
	}
}

func TestHistoryLogsDisplacedCellExactly(t *testing.T) {
	g := newTestGrid(t, 3, 3)
	g.ApplyPosition(Position{X: 1, Y: 2, OccupantID: "alice", OccupantHash: "h1"})
	before, _ := g.CellAt(1, 2)

	g.ApplyPosition(Position{X: 1, Y: 2, OccupantID: "bob", OccupantHash: "h2"})
	if g.HistoryLen(1, 2) != 1 {
		t.Fatalf("expected one history entry, got %d", g.HistoryLen(1, 2))
	}
	history, _ := g.HistoryAt(1, 2)
	// the stored entry is the displaced cell, instance tag included
	if diff := cmp.Diff(before, history[0]); diff != "" {
		t.Fatalf("history entry differs from displaced cell (-want +got):\n%s", diff)
	}
	after, _ := g.CellAt(1, 2)
	if after.InstanceTag == before.InstanceTag {
		t.Fatalf("overwrite kept the old instance tag")
	}
}

func TestHistoryLengthAfterRepeatedWrites(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	const n = 7
	for i := 0; i < n; i++ {
		// identical writes are logged too
		g.ApplyPosition(Position{X: 1, Y: 1, OccupantID: "alice", OccupantHash: "h"})
	}
	history, _ := g.HistoryAt(1, 1)
	if len(history) != n {
		t.Fatalf("expected %d entries (history + live), got %d", n, len(history))
	}
	if g.HistoryLen(1, 1) != n-1 {
		t.Fatalf("expected %d stored entries, got %d", n-1, g.HistoryLen(1, 1))
	}
}

func TestHistoryAtEmptyCellIsLiveCell(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	history, err := g.HistoryAt(1, 0)
	if err != nil {
		t.Fatalf("HistoryAt: %v", err)
	}
	live, _ := g.CellAt(1, 0)
	if diff := cmp.Diff([]Cell{live}, history); diff != "" {
		t.Fatalf("unexpected history (-want +got):\n%s", diff)
	}
}

func TestOutOfRangeLeavesStateUnchanged(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	g.ApplyPosition(Position{X: 1, Y: 1, OccupantID: "alice", OccupantHash: "h1"})
	g.Drain()
	before := g.Cells()

	for _, p := range []Position{
		{X: 5, Y: 0, OccupantID: "mallory"},
		{X: 0, Y: 2, OccupantID: "mallory"},
		{X: -1, Y: 0, OccupantID: "mallory"},
	} {
		err := g.ApplyPosition(p)
		if !IsOutOfRangeError(err) {
			t.Fatalf("ApplyPosition(%+v): expected out-of-range, got %v", p, err)
		}
	}
	if _, err := g.HistoryAt(2, 0); !IsOutOfRangeError(err) {
		t.Fatalf("HistoryAt(2,0): expected out-of-range, got %v", err)
	}
	if diff := cmp.Diff(before, g.Cells()); diff != "" {
		t.Fatalf("matrix changed after out-of-range writes (-want +got):\n%s", diff)
	}
	for _, c := range before {
		if g.HistoryLen(c.X, c.Y) != 0 {
			t.Fatalf("history created for %s", c.Key())
		}
	}
	if g.Dirty() != 0 {
		t.Fatalf("out-of-range writes marked %d cells dirty", g.Dirty())
	}
}

func TestEmptyHashDefaultsToSentinel(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	g.ApplyPosition(Position{X: 0, Y: 1, OccupantID: "alice"})
	c, _ := g.CellAt(0, 1)
	if c.OccupantHash != EmptyHash {
		t.Fatalf("expected hash %q, got %q", EmptyHash, c.OccupantHash)
	}
}

func TestSetHeadsReplacesWholesale(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	a := Cell{X: 0, Y: 0, OccupantID: "a", OccupantHash: "ha"}
	b := Cell{X: 9, Y: 9, OccupantID: "b", OccupantHash: "hb"} // heads are not checked against the matrix

	g.SetHeads(map[string]Cell{"a": a, "b": b})
	if diff := cmp.Diff([]Cell{a, b}, g.CurrentHeads()); diff != "" {
		t.Fatalf("heads (-want +got):\n%s", diff)
	}

	// a new set is not merged with the old one
	g.SetHeads(map[string]Cell{"b": a})
	if diff := cmp.Diff([]Cell{a}, g.CurrentHeads()); diff != "" {
		t.Fatalf("heads after replace (-want +got):\n%s", diff)
	}
	if _, ok := g.HeadOf("a"); ok {
		t.Fatalf("actor a survived a wholesale replace")
	}

	g.SetHeads(map[string]Cell{})
	if heads := g.CurrentHeads(); len(heads) != 0 {
		t.Fatalf("expected no heads, got %v", heads)
	}
}

func TestSetHeadsCopiesInput(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	heads := map[string]Cell{"a": {X: 1, Y: 1, OccupantID: "a"}}
	g.SetHeads(heads)
	heads["b"] = Cell{X: 0, Y: 0, OccupantID: "b"}
	if n := len(g.CurrentHeads()); n != 1 {
		t.Fatalf("caller's map leaked into the head set: %d heads", n)
	}
}

func TestConcurrentApplyAndQuery(t *testing.T) {
	g := newTestGrid(t, 5, 4)
	const workers, rounds = 8, 500

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				x, y := (w+i)%5, (w*i)%4
				if err := g.ApplyPosition(Position{X: x, Y: y, OccupantID: fmt.Sprintf("w%d", w)}); err != nil {
					errs <- err
					return
				}
				switch i % 4 {
				case 0:
					if h, err := g.HistoryAt(x, y); err != nil || len(h) == 0 {
						errs <- fmt.Errorf("HistoryAt(%d,%d): %v %v", x, y, h, err)
						return
					}
				case 1:
					g.SetHeads(map[string]Cell{fmt.Sprintf("w%d", w): {X: x, Y: y}})
					g.CurrentHeads()
				case 2:
					if n := len(g.Cells()); n != 20 {
						errs <- fmt.Errorf("matrix has %d cells", n)
						return
					}
				case 3:
					g.Drain()
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent access: %v", err)
	}

	// every write either filled an empty cell or pushed one entry to history
	total := 0
	for _, c := range g.Cells() {
		total += g.HistoryLen(c.X, c.Y)
		if c.Occupied() {
			total++
		}
	}
	if total != workers*rounds {
		t.Fatalf("expected %d history+live entries, got %d", workers*rounds, total)
	}
}

func TestApplyPositionReturnsOwnWrite(t *testing.T) {
	g := newTestGrid(t, 1, 1)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c, err := g.Place(Position{X: 0, Y: 0, OccupantID: id})
				if err != nil || c.OccupantID != id {
					t.Errorf("Place(%s) returned %+v %v", id, c, err)
					return
				}
			}
		}(fmt.Sprintf("w%d", w))
	}
	wg.Wait()
}
