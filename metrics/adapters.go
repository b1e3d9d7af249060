// Package metrics provides Prometheus-backed implementations of the
// interfaces in package stub. A caller that wants real instrumentation
// constructs these adapters and assigns them to the Metric* package
// variables exposed by smtpclient, pop3client and imapclient; a caller that
// doesn't want a Prometheus dependency leaves those variables at their
// no-op stub defaults.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sguinebert/mailio/stub"
)

type counter struct {
	prometheus.Counter
}

func (c counter) Inc() { c.Counter.Inc() }

// NewCounter registers and returns a stub.Counter backed by a Prometheus counter.
func NewCounter(opts prometheus.CounterOpts) stub.Counter {
	return counter{promauto.NewCounter(opts)}
}

type counterVec struct {
	*prometheus.CounterVec
}

func (c counterVec) IncLabels(labels ...string) {
	c.CounterVec.WithLabelValues(labels...).Inc()
}

// NewCounterVec registers and returns a stub.CounterVec backed by a Prometheus counter vector.
func NewCounterVec(opts prometheus.CounterOpts, labelNames []string) stub.CounterVec {
	return counterVec{promauto.NewCounterVec(opts, labelNames)}
}

type histogram struct {
	prometheus.Histogram
}

func (h histogram) Observe(v float64) { h.Histogram.Observe(v) }

// NewHistogram registers and returns a stub.Histogram backed by a Prometheus histogram.
func NewHistogram(opts prometheus.HistogramOpts) stub.Histogram {
	return histogram{promauto.NewHistogram(opts)}
}

type histogramVec struct {
	*prometheus.HistogramVec
}

func (h histogramVec) ObserveLabels(v float64, labels ...string) {
	h.HistogramVec.WithLabelValues(labels...).Observe(v)
}

// NewHistogramVec registers and returns a stub.HistogramVec backed by a Prometheus histogram vector.
func NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) stub.HistogramVec {
	return histogramVec{promauto.NewHistogramVec(opts, labelNames)}
}
