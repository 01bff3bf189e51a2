package webapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bctron_stream_clients",
		Help: "Websocket renderers currently connected to /stream",
	})

	streamDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bctron_stream_dropped_total",
		Help: "Renderers disconnected for falling behind the change stream",
	})
)
