// Package metrics exports command runner activity to prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/oscpeer/pkg/osc/command"
)

var _ command.Observer = (*Recorder)(nil)

// Recorder implements command.Observer on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	// CommandsStarted counts execute requests.
	CommandsStarted *prometheus.CounterVec

	// CommandsFinished counts terminal replies by device state and HTTP code.
	// code is 0 when the camera was unreachable.
	CommandsFinished *prometheus.CounterVec

	// CommandPolls counts status polls.
	CommandPolls *prometheus.CounterVec

	// CommandDuration observes the time from execute to terminal reply.
	CommandDuration *prometheus.HistogramVec

	// CommandsInFlight is the number of chains not yet terminal.
	CommandsInFlight prometheus.Gauge
}

// NewRecorder returns a Recorder whose collectors are registered on a fresh
// registry, together with the Go and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		CommandsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oscpeer_commands_started_total",
				Help: "Total number of OSC commands sent to the camera.",
			},
			[]string{"command"},
		),
		CommandsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oscpeer_commands_finished_total",
				Help: "Total number of OSC commands that reached a terminal reply.",
			},
			[]string{"command", "state", "code"},
		),
		CommandPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oscpeer_command_polls_total",
				Help: "Total number of command status polls.",
			},
			[]string{"command"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oscpeer_command_duration_seconds",
				Help:    "Time from the execute request to the terminal reply.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms .. ~100s
			},
			[]string{"command"},
		),
		CommandsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "oscpeer_commands_in_flight",
				Help: "Number of OSC commands waiting for a terminal reply.",
			},
		),
	}

	r.registry.MustRegister(
		r.CommandsStarted,
		r.CommandsFinished,
		r.CommandPolls,
		r.CommandDuration,
		r.CommandsInFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) CommandStarted(name string) {
	r.CommandsStarted.WithLabelValues(name).Inc()
	r.CommandsInFlight.Inc()
}

func (r *Recorder) PollIssued(name string) {
	r.CommandPolls.WithLabelValues(name).Inc()
}

func (r *Recorder) CommandFinished(name, state string, status int, elapsed time.Duration) {
	r.CommandsFinished.WithLabelValues(name, state, strconv.Itoa(status)).Inc()
	r.CommandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	r.CommandsInFlight.Dec()
}
