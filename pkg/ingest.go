package bctron

import (
	"encoding/json"
)

type EventKind string

const (
	PositionEvent EventKind = "position"
	HeadsEvent    EventKind = "heads"
)

// Event is a decoded upstream event, either a single position or a
// complete head set.
type Event struct {
	Kind     EventKind
	Position Position
	Heads    map[string]Cell
}

// EventEmitter is implemented by upstream transports.
type EventEmitter interface {
	Subscribe(chan<- Event)
}

// wire format, pointers let us tell missing fields from zero values
type wirePosition struct {
	X    *int    `json:"x,omitempty"`
	Y    *int    `json:"y,omitempty"`
	ID   *string `json:"id,omitempty"`
	Hash string  `json:"hash,omitempty"`
}

type wireEvent struct {
	Type string `json:"type"`
	wirePosition
	Heads map[string]wirePosition `json:"heads"`
}

func (w wirePosition) toPosition(where string) (Position, error) {
	if w.X == nil || w.Y == nil {
		return Position{}, NewErr(MalformedEvent, "%s: missing x/y", where)
	}
	if w.ID == nil {
		return Position{}, NewErr(MalformedEvent, "%s: missing id", where)
	}
	hash := w.Hash
	if hash == "" {
		hash = EmptyHash
	}
	return Position{X: *w.X, Y: *w.Y, OccupantID: *w.ID, OccupantHash: hash}, nil
}

// DecodeEvent parses one JSON event from the chain watcher. Anything
// that is not a complete position or heads event is a MalformedEvent.
func DecodeEvent(b []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return Event{}, NewErr(MalformedEvent, "bad event JSON: %v", err)
	}
	switch EventKind(w.Type) {
	case PositionEvent:
		p, err := w.wirePosition.toPosition("position")
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: PositionEvent, Position: p}, nil
	case HeadsEvent:
		if w.Heads == nil {
			return Event{}, NewErr(MalformedEvent, "heads: missing heads object")
		}
		heads, err := toHeads(w.Heads)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: HeadsEvent, Heads: heads}, nil
	}
	return Event{}, NewErr(MalformedEvent, "unknown event type: %q", w.Type)
}

// EncodeEvent is the inverse of DecodeEvent.
func EncodeEvent(e Event) ([]byte, error) {
	w := wireEvent{Type: string(e.Kind)}
	switch e.Kind {
	case PositionEvent:
		w.wirePosition = fromPosition(e.Position.X, e.Position.Y, e.Position.OccupantID, e.Position.OccupantHash)
	case HeadsEvent:
		w.Heads = make(map[string]wirePosition, len(e.Heads))
		for actor, c := range e.Heads {
			w.Heads[actor] = fromPosition(c.X, c.Y, c.OccupantID, c.OccupantHash)
		}
	default:
		return nil, NewErr(MalformedEvent, "unknown event type: %q", e.Kind)
	}
	return json.Marshal(w)
}

func fromPosition(x, y int, id, hash string) wirePosition {
	return wirePosition{X: &x, Y: &y, ID: &id, Hash: hash}
}

// DecodePosition parses a bare position object, as posted to the admin API.
func DecodePosition(b []byte) (Position, error) {
	var w wirePosition
	if err := json.Unmarshal(b, &w); err != nil {
		return Position{}, NewErr(MalformedEvent, "bad position JSON: %v", err)
	}
	return w.toPosition("position")
}

// DecodeHeads parses a bare actor -> position object.
func DecodeHeads(b []byte) (map[string]Cell, error) {
	var w map[string]wirePosition
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, NewErr(MalformedEvent, "bad heads JSON: %v", err)
	}
	if w == nil {
		return nil, NewErr(MalformedEvent, "heads: missing heads object")
	}
	return toHeads(w)
}

func toHeads(w map[string]wirePosition) (map[string]Cell, error) {
	heads := make(map[string]Cell, len(w))
	for actor, wp := range w {
		p, err := wp.toPosition("heads[" + actor + "]")
		if err != nil {
			return nil, err
		}
		heads[actor] = Cell{X: p.X, Y: p.Y, OccupantID: p.OccupantID, OccupantHash: p.OccupantHash}
	}
	return heads, nil
}
