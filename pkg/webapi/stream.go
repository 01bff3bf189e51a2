package webapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const streamBuffer = 4096

// streamChanges pushes every matrix change to a websocket client as a
// JSON Change. A client that cannot keep up is disconnected and should
// resync from /grid.
func (t WebAPI) streamChanges(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	streamClients.Inc()
	defer streamClients.Dec()

	changes, cancelSub := t.api.Grid.Subscribe(streamBuffer)
	defer cancelSub()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Writer goroutine.
	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				writeErr <- ctx.Err()
				return
			case c, ok := <-changes:
				if !ok {
					streamDroppedTotal.Inc()
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"),
						time.Now().Add(time.Second))
					writeErr <- nil
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(c); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Reader loop: renderers send nothing, this just notices the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	// Best-effort wait for the writer to stop so it doesn't outlive conn.
	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
}
