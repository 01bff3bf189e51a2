package conductor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder logs start and stop order across services
type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.log = append(r.log, s)
	r.mu.Unlock()
}

type testService struct {
	name     string
	rec      *recorder
	startErr error
	hang     bool // never signal started
}

func (s testService) Run(started, stopped chan bool, stop chan context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	go func() {
		if !s.hang {
			s.rec.add("start " + s.name)
			started <- true
		}
		<-stop
		s.rec.add("stop " + s.name)
		stopped <- true
	}()
	return nil
}

func waitShutdown(t *testing.T, done chan bool) {
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("conductor did not shut down")
	}
}

func TestStartStopOrder(t *testing.T) {
	rec := &recorder{}
	c := NewConductor()
	c.Service("a", testService{name: "a", rec: rec})
	c.Service("b", testService{name: "b", rec: rec})

	done := c.Start()
	c.Stop()
	c.Stop() // second stop is a no-op
	waitShutdown(t, done)

	// starts are sequential, stops are requested together
	if len(rec.log) != 4 || rec.log[0] != "start a" || rec.log[1] != "start b" {
		t.Fatalf("unexpected lifecycle %v", rec.log)
	}
	stops := map[string]bool{rec.log[2]: true, rec.log[3]: true}
	if !stops["stop a"] || !stops["stop b"] {
		t.Fatalf("not every service was stopped: %v", rec.log)
	}
}

func TestStartFailureStopsRunningServices(t *testing.T) {
	rec := &recorder{}
	c := NewConductor()
	c.Service("a", testService{name: "a", rec: rec})
	c.Service("bad", testService{name: "bad", rec: rec, startErr: errors.New("no socket")})
	c.Service("c", testService{name: "c", rec: rec})

	waitShutdown(t, c.Start())

	want := []string{"start a", "stop a"}
	if len(rec.log) != len(want) || rec.log[0] != want[0] || rec.log[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, rec.log)
	}
}

func TestStartTimeout(t *testing.T) {
	rec := &recorder{}
	c := NewConductor(StartupTimeout(50*time.Millisecond), ShutdownTimeout(time.Second))
	c.Service("slow", testService{name: "slow", rec: rec, hang: true})
	c.Service("never", testService{name: "never", rec: rec})

	waitShutdown(t, c.Start())

	if len(rec.log) != 1 || rec.log[0] != "stop slow" {
		t.Fatalf("expected only the timed-out service to be stopped, got %v", rec.log)
	}
}
