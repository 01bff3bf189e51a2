package bctron

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type chanSubscriber chan Message

func (c chanSubscriber) GetChan() chan Message {
	return c
}

func runBus(t *testing.T) (MessageBus, func()) {
	bus := NewMessageBus()
	started := make(chan bool, 1)
	stopped := make(chan bool, 1)
	stop := make(chan context.Context, 1)
	if err := bus.Run(started, stopped, stop); err != nil {
		t.Fatalf("bus.Run: %v", err)
	}
	<-started
	return bus, func() {
		stop <- context.Background()
		<-stopped
	}
}

func recv(t *testing.T, c chanSubscriber) Message {
	select {
	case m := <-c:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a message")
	}
	return Message{}
}

func TestBusDeliversByCategory(t *testing.T) {
	bus, stop := runBus(t)
	defer stop()

	grid := make(chanSubscriber, 10)
	all := make(chanSubscriber, 10)
	bus.Register(grid, EVENT_GRID("GRID"))
	bus.Register(all, EVENT_ALL("ALL"))

	bus.Send(SYS_MSG, "hello")
	bus.Send(GRID_POSITION, Position{X: 1, Y: 2, OccupantID: "alice"}, "pos-1")

	if m := recv(t, all); m.EventType != SYS_MSG {
		t.Fatalf("expected SYS_MSG first on ALL, got %v", m.EventType)
	}
	m := recv(t, all)
	if m.EventType != GRID_POSITION || m.ID != "pos-1" {
		t.Fatalf("unexpected message on ALL: %+v", m)
	}

	m = recv(t, grid)
	if m.EventType != GRID_POSITION {
		t.Fatalf("GRID subscriber got %v", m.EventType)
	}
	var p Position
	if err := json.Unmarshal(m.Message, &p); err != nil {
		t.Fatalf("bad payload %s: %v", m.Message, err)
	}
	if p.X != 1 || p.Y != 2 || p.OccupantID != "alice" {
		t.Fatalf("unexpected payload: %+v", p)
	}
	select {
	case m := <-grid:
		t.Fatalf("GRID subscriber got an extra message: %+v", m)
	default:
	}
}

func TestBusUnregisterClosesChannel(t *testing.T) {
	bus, stop := runBus(t)
	defer stop()

	sub := make(chanSubscriber, 1)
	s := bus.Register(sub, EVENT_ALL("ALL"))
	bus.Unregister(s)
	bus.Unregister(s)
	if _, ok := <-sub; ok {
		t.Fatalf("expected the subscriber channel to be closed")
	}
	if m := bus.Send(SYS_MSG, "nobody listening"); m != nil {
		t.Fatalf("Send: %v", m)
	}
}

func TestLookupEventTypes(t *testing.T) {
	types, invalid := LookupEventTypes([]string{"GRID", "NOPE", "SYS"})
	if len(types) != 2 || types[0].Type() != "GRID" || types[1].Type() != "SYS" {
		t.Fatalf("unexpected types: %v", types)
	}
	if len(invalid) != 1 || invalid[0] != "NOPE" {
		t.Fatalf("unexpected invalid names: %v", invalid)
	}
}
