package conductor

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

// StartupTimeout sets the time allowed for each service to start.
func StartupTimeout(d time.Duration) func(*Conductor) {
	return func(c *Conductor) {
		c.startTimeout = d
	}
}

// ShutdownTimeout sets the time allowed for services to stop.
func ShutdownTimeout(d time.Duration) func(*Conductor) {
	return func(c *Conductor) {
		c.stopTimeout = d
	}
}

// Noisy tells the Conductor to log service lifecycle to stdout.
func Noisy() func(*Conductor) {
	return func(c *Conductor) {
		c.noisy = true
	}
}

// HookSignals shuts the Conductor down on SIGTERM or SIGINT.
func HookSignals() func(*Conductor) {
	return func(c *Conductor) {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		go func() {
			select {
			case sig := <-sigCh: // sigterm/sigint caught
				c.logf("Caught %v signal, shutting down\n", sig)
				c.Stop()
			case <-c.shutdown: // conductor is closing down..
			}
			signal.Stop(sigCh)
		}()
	}
}
