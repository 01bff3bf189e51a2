package receiver

import (
	"context"
	"fmt"
	"log"
	"time"

	bct "github.com/bctron/bctron/pkg"
	"github.com/gorilla/websocket"
)

// interface guard ensures WSReceiver implements bct.EventEmitter
var _ bct.EventEmitter = &WSReceiver{}

// WSReceiver reads JSON events from the chain watcher's websocket hub.
// There is no reconnect: if the socket drops the receiver reports it on
// the bus and goes quiet until shutdown.
type WSReceiver struct {
	bus       bct.MessageBus
	url       string
	dialer    websocket.Dialer
	listeners []chan<- bct.Event
}

func NewWSReceiver(bus bct.MessageBus, config bct.Config) *WSReceiver {
	return &WSReceiver{
		bus:       bus,
		url:       config.Upstream.WSURL,
		dialer:    websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		listeners: make([]chan<- bct.Event, 0, 10),
	}
}

func (r *WSReceiver) Subscribe(ch chan<- bct.Event) {
	r.listeners = append(r.listeners, ch)
}

// Implements conductor.Service
func (r *WSReceiver) Run(started, stopped chan bool, stop chan context.Context) error {
	r.bus.Send(bct.SYS_STARTUP, fmt.Sprintf("WS: connecting to: %s", r.url))
	conn, _, err := r.dialer.Dial(r.url, nil)
	if err != nil {
		return err
	}
	go func() {
		started <- true

		quit := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					select {
					case <-quit:
						// we closed the socket ourselves
					default:
						if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
							r.bus.Send(bct.SYS_ERR, fmt.Sprintf("WS: read failed: %v", err))
						}
					}
					return
				}
				if !r.handle(msg, quit) {
					return
				}
			}
		}()

		<-stop
		close(quit)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		conn.Close()
		<-done
		stopped <- true
	}()
	return nil
}

// handle reports false once quit is closed while delivering.
func (r *WSReceiver) handle(msg []byte, quit <-chan struct{}) bool {
	e, err := bct.DecodeEvent(msg)
	if err != nil {
		log.Printf("WS=> dropped: %v\n", err)
		r.bus.Send(bct.GRID_REJECTED, fmt.Sprintf("WS: %v", err))
		return true
	}
	return notify(r.listeners, e, quit)
}

// notify hands e to every listener, giving up if quit closes first so a
// stalled consumer cannot hold up shutdown.
func notify(listeners []chan<- bct.Event, e bct.Event, quit <-chan struct{}) bool {
	for _, ch := range listeners {
		select {
		case ch <- e:
		case <-quit:
			return false
		}
	}
	return true
}
