package main

import (
	bct "github.com/bctron/bctron/pkg"
	"github.com/bctron/bctron/pkg/conductor"
	"github.com/bctron/bctron/pkg/keeper"
	"github.com/bctron/bctron/pkg/receiver"
	"github.com/bctron/bctron/pkg/receivers"
	"github.com/bctron/bctron/pkg/webapi"
)

func Server(conf bct.Config) {

	c := conductor.NewConductor(
		conductor.HookSignals(),
		conductor.Noisy(),
	)

	// Start the MessageBus Service
	bus := bct.NewMessageBus()
	c.Service("MessageBus", bus)

	// Set up all configured receivers
	receivers.SetUpReceivers(c, bus, conf)

	// Set up the grid model
	grid, err := bct.NewGrid(conf.GridConfig())
	if err != nil {
		panic(err)
	}

	// Start the Grid Keeper, the single writer into the grid
	gk := keeper.NewGridKeeper(grid, bus)
	c.Service("GridKeeper", gk)

	// Start the upstream listener (websocket or ZMQ)
	err = receiver.SetUpReceiver(c, bus, conf, gk.Receive)
	if err != nil {
		panic(err)
	}

	api := bct.NewAPI(grid, gk)

	// Start the Grid API
	p, err := webapi.NewWebAPI(conf, api)
	if err != nil {
		panic(err)
	}
	c.Service("Grid API", p)

	bus.Send(bct.SYS_STARTUP, "BCTron starting")
	<-c.Start()
}
