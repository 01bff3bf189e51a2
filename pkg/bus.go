package bctron

/*
The message subsystem exists to allow event-based access to
the grid as it changes, for integration purposes.

A simple internal 'message bus' is passed around internally as a
singleton, with an internal goroutine and a 'send' method for sending
'messages'.

outbound destinations are created in config, which result in these
messages being routed to external services, ie: log-files and HTTP
callbacks. These are managed by MessageSubscribers:

MessageSubscribers are registered with the bus and are subscribed via
their own channels along with a list of EventTypes they want to subscribe
to.
*/

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
)

const busBacklog = 1000

// MessageSubscribers are things that subscribe to the bus and handle
// messages, ie: loggers, http callbacks etc.
type MessageSubscriber interface {
	GetChan() chan Message
}

// Created by the bus, wraps message sent with Send
type Message struct {
	EventType EventType
	Message   []byte
	ID        string // optional
}

type Subscription struct {
	dest  MessageSubscriber
	types []EventType
}

func (s *Subscription) wants(t EventType) bool {
	for _, x := range s.types {
		if x.Type() == "ALL" || x.Type() == t.Type() {
			return true
		}
	}
	return false
}

func NewMessageBus() MessageBus {
	return MessageBus{
		mu:        &sync.Mutex{},
		receivers: make(map[*Subscription]bool),
		inbound:   make(chan Message, busBacklog),
	}
}

type MessageBus struct {
	mu *sync.Mutex

	// Registered MessageSubscribers.
	receivers map[*Subscription]bool

	// Messages from Send(), destinated for MessageSubscribers
	inbound chan Message
}

// Send a message to the bus with a specific EventType
// msg can be anything JSON serialisable, this will be
// turned into a Message and delivered to any interested MessageSubscribers.
// Send never blocks: if the backlog is full the message is dropped.
func (b MessageBus) Send(t EventType, msg interface{}, msgID ...string) error {
	j, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	m := Message{t, j, generateID()}
	if len(msgID) > 0 {
		m.ID = msgID[0]
	}
	select {
	case b.inbound <- m:
		return nil
	default:
		return NewErr(NotAvailable, "message bus backlog full, dropped %s:%s", t.Type(), t)
	}
}

func (b MessageBus) Register(m MessageSubscriber, types ...EventType) *Subscription {
	sub := &Subscription{m, types}
	b.mu.Lock()
	b.receivers[sub] = true
	b.mu.Unlock()
	return sub
}

func (b MessageBus) Unregister(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unregister(sub)
}

func (b MessageBus) unregister(sub *Subscription) {
	if b.receivers[sub] {
		delete(b.receivers, sub)
		close(sub.dest.GetChan())
	}
}

func (b MessageBus) deliver(message Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.receivers {
		// check if this receiver wants this message type
		if !sub.wants(message.EventType) {
			continue
		}

		// send the message to the receiver
		select {
		case sub.dest.GetChan() <- message:
		default:
			// if we are unable to send, cancel the sub
			b.Send(SYS_ERR, "receiver failed to handle msg, closing")
			b.unregister(sub)
		}
	}
}

// Implements conductor Service
func (b MessageBus) Run(started, stopped chan bool, stop chan context.Context) error {

	go func() {
		stopBus := make(chan bool)
		done := make(chan bool)
		go func() {
			defer close(done)
			for {
				select {
				case <-stopBus:
					return
				case message := <-b.inbound:
					b.deliver(message)
				}
			}
		}()

		started <- true
		// wait for shutdown.
		<-stop
		// do some shutdown stuff then signal we're done
		close(stopBus)
		<-done
		stopped <- true
	}()
	return nil
}

// create a short random ID for msgs that have none
func generateID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:8]
}
