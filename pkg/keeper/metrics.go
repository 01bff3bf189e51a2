package keeper

import (
	"errors"

	bct "github.com/bctron/bctron/pkg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bctron_events_applied_total",
		Help: "Events applied to the grid, by kind",
	}, []string{"kind"})

	eventsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bctron_events_rejected_total",
		Help: "Events dropped by the keeper, by kind and error code",
	}, []string{"kind", "code"})

	applyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bctron_apply_duration_seconds",
		Help:    "Time to apply one event to the grid",
		Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01},
	}, []string{"kind"})
)

func errorCode(err error) string {
	var info *bct.ErrorInfo
	if errors.As(err, &info) {
		return string(info.Code)
	}
	return string(bct.UnknownError)
}
