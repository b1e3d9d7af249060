package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sguinebert/mailio/imapclient"
	"github.com/sguinebert/mailio/pop3client"
	"github.com/sguinebert/mailio/smtpclient"
)

// Register wires Prometheus-backed metrics into smtpclient, pop3client and
// imapclient by assigning their Metric* package variables. Call it once
// during process startup, before any client is used. Without calling
// Register, the three packages fall back to their no-op stub defaults.
func Register() {
	smtpclient.MetricCommands = NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailio_smtpclient_command_duration_seconds",
			Help:    "SMTP client command duration and result codes in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.100, 0.5, 1, 5, 10, 20, 30, 60, 120},
		},
		[]string{"cmd", "code", "secode"},
	)
	smtpclient.MetricPanicInc = func() {
		PanicInc("smtpclient")
	}

	pop3client.MetricCommands = NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailio_pop3client_command_duration_seconds",
			Help:    "POP3 client command duration and result in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.100, 0.5, 1, 5, 10, 20, 30, 60},
		},
		[]string{"cmd", "status"},
	)
	pop3client.MetricPanicInc = func() {
		PanicInc("pop3client")
	}

	imapclient.MetricCommands = NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailio_imapclient_command_duration_seconds",
			Help:    "IMAP client command duration and result status in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.100, 0.5, 1, 5, 10, 20, 30, 60, 120},
		},
		[]string{"cmd", "status"},
	)
	imapclient.MetricPanicInc = func() {
		PanicInc("imapclient")
	}
}
