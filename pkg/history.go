package bctron

// Retention selects how much per-cell history is kept.
type Retention string

const (
	RetentionUnbounded Retention = "unbounded" // keep every displaced occupant
	RetentionCapped    Retention = "capped"    // keep the newest HistoryCap entries per cell
)

func (r Retention) normalise(limit int) (Retention, error) {
	switch r {
	case "", RetentionUnbounded:
		return RetentionUnbounded, nil
	case RetentionCapped:
		if limit <= 0 {
			return "", NewErr(BadRequest, "capped retention needs a positive history limit, got %d", limit)
		}
		return RetentionCapped, nil
	}
	return "", NewErr(BadRequest, "unknown history retention: %q", string(r))
}

// cellHistory is an append-only log for one cell. With a limit it becomes
// a ring: once full, the oldest entry is overwritten.
type cellHistory struct {
	entries []Cell
	start   int // index of the oldest entry once the ring is full
	limit   int // 0 = unbounded
}

func newCellHistory(r Retention, limit int) *cellHistory {
	if r != RetentionCapped {
		limit = 0
	}
	return &cellHistory{limit: limit}
}

func (h *cellHistory) push(c Cell) {
	if h.limit == 0 || len(h.entries) < h.limit {
		h.entries = append(h.entries, c)
		return
	}
	h.entries[h.start] = c
	h.start = (h.start + 1) % h.limit
}

func (h *cellHistory) len() int {
	return len(h.entries)
}

// snapshot copies the entries out, oldest first.
func (h *cellHistory) snapshot() []Cell {
	out := make([]Cell, len(h.entries), len(h.entries)+1)
	n := copy(out, h.entries[h.start:])
	copy(out[n:], h.entries[:h.start])
	return out
}
