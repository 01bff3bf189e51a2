package receiver

import (
	"context"
	"fmt"
	"log"
	"syscall"
	"time"

	bct "github.com/bctron/bctron/pkg"
	"github.com/pebbe/zmq4"
)

// interface guard ensures ZMQReceiver implements bct.EventEmitter
var _ bct.EventEmitter = &ZMQReceiver{}

// ZMQReceiver receives events published by the chain watcher over ZMQ.
// Each message is two frames: the topic ("position" or "heads") and the
// JSON event.
// CAUTION: the protocol is not authenticated!
type ZMQReceiver struct {
	bus       bct.MessageBus
	listeners []chan<- bct.Event
	address   string
}

func NewZMQReceiver(bus bct.MessageBus, config bct.Config) *ZMQReceiver {
	return &ZMQReceiver{
		bus:       bus,
		listeners: make([]chan<- bct.Event, 0, 10),
		address:   config.Upstream.ZMQAddress,
	}
}

func (z *ZMQReceiver) Subscribe(ch chan<- bct.Event) {
	z.listeners = append(z.listeners, ch)
}

// Implements conductor.Service
func (z *ZMQReceiver) Run(started, stopped chan bool, stop chan context.Context) error {
	sock, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return err
	}
	sock.SetRcvtimeo(2 * time.Second)
	z.bus.Send(bct.SYS_STARTUP, fmt.Sprintf("ZMQ: connecting to: %s", z.address))
	err = sock.Connect(z.address)
	if err != nil {
		return err
	}
	err = subscribeAll(sock, string(bct.PositionEvent), string(bct.HeadsEvent))
	if err != nil {
		return err
	}
	go func() {
		started <- true

		quit := make(chan struct{})
		go func() {
			<-stop
			close(quit)
		}()

		for {
			// Handle shutdown
			select {
			case <-quit:
				sock.Close()
				stopped <- true
				return
			default:
				// fall through to zmq recv
			}

			msg, err := sock.RecvMessageBytes(0)
			if err != nil {
				if errno, ok := err.(zmq4.Errno); ok {
					if errno == zmq4.Errno(syscall.ETIMEDOUT) || errno == zmq4.Errno(syscall.EAGAIN) {
						// nothing published within the receive timeout
						continue
					}
				}
				z.bus.Send(bct.SYS_ERR, fmt.Sprintf("ZMQ err: %s", err))
				continue
			}
			z.handle(msg, quit)
		}
	}()
	return nil
}

func (z *ZMQReceiver) handle(msg [][]byte, quit <-chan struct{}) {
	e, err := decodeFrames(msg)
	if err != nil {
		log.Printf("ZMQ=> dropped: %v\n", err)
		z.bus.Send(bct.GRID_REJECTED, fmt.Sprintf("ZMQ: %v", err))
		return
	}
	// on quit the loop notices at the top and shuts down
	notify(z.listeners, e, quit)
}

// decodeFrames checks the topic frame agrees with the event it carries.
func decodeFrames(msg [][]byte) (bct.Event, error) {
	if len(msg) != 2 {
		return bct.Event{}, bct.NewErr(bct.MalformedEvent, "expected 2 frames, got %d", len(msg))
	}
	e, err := bct.DecodeEvent(msg[1])
	if err != nil {
		return bct.Event{}, err
	}
	if topic := string(msg[0]); topic != string(e.Kind) {
		return bct.Event{}, bct.NewErr(bct.MalformedEvent, "topic %q carries a %s event", topic, e.Kind)
	}
	return e, nil
}

func subscribeAll(sock *zmq4.Socket, topics ...string) error {
	for _, topic := range topics {
		err := sock.SetSubscribe(topic)
		if err != nil {
			return err
		}
	}
	return nil
}
