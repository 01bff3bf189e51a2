package keeper

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	bct "github.com/bctron/bctron/pkg"
	"github.com/prometheus/client_golang/prometheus"
)

// interface guard ensures GridKeeper implements bct.EventApplier
var _ bct.EventApplier = &GridKeeper{}

/*
 * GridKeeper owns the ingest path into the grid.
 * It receives decoded events from the upstream receivers (websocket, ZMQ)
 * and applies them to the grid one at a time, in arrival order.
 * A bad event is logged and reported on the bus, and the next one is
 * processed as usual.
 */
type GridKeeper struct {
	grid    *bct.Grid
	bus     bct.MessageBus
	Receive chan bct.Event

	applied  atomic.Uint64
	rejected atomic.Uint64
}

func NewGridKeeper(grid *bct.Grid, bus bct.MessageBus) *GridKeeper {
	return &GridKeeper{
		grid:    grid,
		bus:     bus,
		Receive: make(chan bct.Event, 1000),
	}
}

// Implements conductor.Service
func (k *GridKeeper) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			case <-stop:
				stopped <- true
				return
			case e := <-k.Receive:
				// errors are already logged and published by Apply
				_ = k.Apply(e)
			}
		}
	}()
	return nil
}

// Apply runs one event to completion against the grid.
func (k *GridKeeper) Apply(e bct.Event) error {
	timer := prometheus.NewTimer(applyDuration.WithLabelValues(string(e.Kind)))
	defer timer.ObserveDuration()

	switch e.Kind {
	case bct.PositionEvent:
		_, err := k.applyPosition(e)
		return err
	case bct.HeadsEvent:
		k.grid.SetHeads(e.Heads)
		k.applied.Add(1)
		eventsAppliedTotal.WithLabelValues(string(e.Kind)).Inc()
		k.bus.Send(bct.GRID_HEADS, k.grid.CurrentHeads())
	default:
		err := bct.NewErr(bct.MalformedEvent, "unknown event kind: %q", e.Kind)
		k.reject(e, err)
		return err
	}
	return nil
}

// Place applies a single position and returns the cell exactly as it
// was written.
func (k *GridKeeper) Place(p bct.Position) (bct.Cell, error) {
	timer := prometheus.NewTimer(applyDuration.WithLabelValues(string(bct.PositionEvent)))
	defer timer.ObserveDuration()
	return k.applyPosition(bct.Event{Kind: bct.PositionEvent, Position: p})
}

func (k *GridKeeper) applyPosition(e bct.Event) (bct.Cell, error) {
	cell, err := k.grid.Place(e.Position)
	if err != nil {
		k.reject(e, err)
		return bct.Cell{}, err
	}
	k.applied.Add(1)
	eventsAppliedTotal.WithLabelValues(string(e.Kind)).Inc()
	k.bus.Send(bct.GRID_POSITION, e.Position)
	return cell, nil
}

func (k *GridKeeper) reject(e bct.Event, err error) {
	k.rejected.Add(1)
	eventsRejectedTotal.WithLabelValues(string(e.Kind), errorCode(err)).Inc()
	log.Printf("GridKeeper: dropped %s event: %v\n", e.Kind, err)
	k.bus.Send(bct.GRID_REJECTED, fmt.Sprintf("%s: %v", e.Kind, err))
}

func (k *GridKeeper) Stats() bct.IngestStats {
	return bct.IngestStats{
		Applied:  k.applied.Load(),
		Rejected: k.rejected.Load(),
	}
}
