package receivers

import (
	bct "github.com/bctron/bctron/pkg"
	"github.com/bctron/bctron/pkg/conductor"
)

// Sets up standard receivers.
func SetUpReceivers(cond *conductor.Conductor, bus bct.MessageBus, conf bct.Config) {
	// Set up configured loggers
	SetupLoggers(cond, bus, conf)

	// Set up configured Callbacks
	SetupCallbacks(cond, bus, conf)
}
