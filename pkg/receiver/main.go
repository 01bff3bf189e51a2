package receiver

import (
	"fmt"

	bct "github.com/bctron/bctron/pkg"
	"github.com/bctron/bctron/pkg/conductor"
)

// SetUpReceiver starts the configured upstream transport and points it at
// the keeper's receive channel. Transport "none" means events only arrive
// via the admin API.
func SetUpReceiver(cond *conductor.Conductor, bus bct.MessageBus, conf bct.Config, sink chan<- bct.Event) error {
	switch conf.Upstream.Transport {
	case "ws":
		r := NewWSReceiver(bus, conf)
		r.Subscribe(sink)
		cond.Service("WS Listener", r)
	case "zmq":
		z := NewZMQReceiver(bus, conf)
		z.Subscribe(sink)
		cond.Service("ZMQ Listener", z)
	case "none", "":
	default:
		return bct.NewErr(bct.BadRequest, "unknown upstream transport: %s", conf.Upstream.Transport)
	}
	fmt.Printf("Upstream transport: %q\n", conf.Upstream.Transport)
	return nil
}
