package bctron

// BCTron bus event types

// bus.Send(GRID_POSITION, position)
// bus.Send(GRID_HEADS, heads)

// Interface for any event
type EventType interface {
	Type() string
}

// slice of all msg types for config funcs lookup
var EVENT_TYPES []EventType = []EventType{EVENT_ALL("ALL"),
	EVENT_SYS("SYS"),
	EVENT_GRID("GRID")}

// Special category, do not use directly, represents *
type EVENT_ALL string

func (e EVENT_ALL) Type() string {
	return "ALL"
}

// System Events
type EVENT_SYS string

func (e EVENT_SYS) Type() string {
	return "SYS"
}

const (
	SYS_STARTUP EVENT_SYS = "STARTUP"
	SYS_ERR     EVENT_SYS = "ERR"
	SYS_MSG     EVENT_SYS = "MSG"
)

// Grid Events
type EVENT_GRID string

func (e EVENT_GRID) Type() string {
	return "GRID"
}

const (
	GRID_POSITION EVENT_GRID = "POSITION" // a position was applied to the matrix
	GRID_HEADS    EVENT_GRID = "HEADS"    // the head set was replaced
	GRID_REJECTED EVENT_GRID = "REJECTED" // an event was dropped (out of range, malformed)
)

// LookupEventTypes maps config type names ("ALL", "SYS", "GRID") to
// EventTypes, returning any names that did not match.
func LookupEventTypes(names []string) (types []EventType, invalid []string) {
	for _, t := range names {
		match := false
		for _, x := range EVENT_TYPES {
			if t == x.Type() {
				match = true
				types = append(types, x)
			}
		}
		if !match {
			invalid = append(invalid, t)
		}
	}
	return
}
