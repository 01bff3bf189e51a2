package receivers

import (
	"context"
	"fmt"
	"log"

	bct "github.com/bctron/bctron/pkg"
	"github.com/bctron/bctron/pkg/conductor"
	"gopkg.in/natefinch/lumberjack.v2"
)

type MessageLogger struct {
	// MessageLogger receives bct.Message via Rec
	Rec chan bct.Message
	// and logs them via Log
	Log *log.Logger
}

// Implements bct.MessageSubscriber
func (l MessageLogger) GetChan() chan bct.Message {
	return l.Rec
}

// Implements conductor.Service
func (l MessageLogger) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			// handle stopping the service
			case <-stop:
				close(stopped)
				return
			case msg, ok := <-l.Rec:
				if !ok {
					// the bus dropped us, wait for shutdown
					<-stop
					close(stopped)
					return
				}
				l.Log.Printf("%s:%s (%s): %s\n",
					msg.EventType.Type(),
					msg.EventType,
					msg.ID,
					msg.Message)
			}
		}
	}()
	return nil
}

func NewMessageLogger(path string) MessageLogger {
	l := MessageLogger{
		make(chan bct.Message, 1000),
		log.New(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			Compress:   true,
		}, "", log.Ltime|log.Lmicroseconds),
	}
	return l
}

// Reads config and sets up any configured loggers
func SetupLoggers(cond *conductor.Conductor, bus bct.MessageBus, conf bct.Config) {
	for name, c := range conf.Loggers {
		l := NewMessageLogger(c.Path)
		cond.Service(fmt.Sprintf("Logger %s", c.Path), l)

		types, invalid := bct.LookupEventTypes(c.Types)
		for _, t := range invalid {
			fmt.Printf("⚠️  Logger %s: ignoring invalid message type: %s\n", name, t)
		}
		bus.Register(l, types...)
	}
}
