package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricPanic = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mailio_panic_total",
		Help: "Number of unhandled panics recovered at a client's public method boundary, by package.",
	},
	[]string{
		"pkg",
	},
)

// PanicInc records an unhandled panic recovered in pkg (e.g. "smtpclient",
// "pop3client", "imapclient").
func PanicInc(pkg string) {
	metricPanic.WithLabelValues(pkg).Inc()
}
