package metrics

import (
	"net/http"

	"github.com/ffx64/nowplaying-rpc/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nowplaying"

// Recorder exports scheduler and pipeline activity as prometheus metrics.
type Recorder struct {
	registry *prometheus.Registry

	submitted prometheus.Counter
	coalesced prometheus.Counter
	sent      *prometheus.CounterVec
	failed    prometheus.Counter
	events    *prometheus.CounterVec
}

var _ client.Metrics = (*Recorder)(nil)

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "submitted_total",
			Help:      "Activity updates submitted to the scheduler.",
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "coalesced_total",
			Help:      "Pending updates replaced before they were sent.",
		}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "sent_total",
			Help:      "Envelopes delivered to the peer.",
		}, []string{"kind"}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "failed_total",
			Help:      "Envelopes dropped because the send failed.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "events_total",
			Help:      "Media events seen by the presence pipeline.",
		}, []string{"source", "outcome"}),
	}
	r.registry.MustRegister(
		r.submitted, r.coalesced, r.sent, r.failed, r.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Submitted() { r.submitted.Inc() }
func (r *Recorder) Coalesced() { r.coalesced.Inc() }
func (r *Recorder) Failed()    { r.failed.Inc() }

func (r *Recorder) Sent(clear bool) {
	kind := "activity"
	if clear {
		kind = "clear"
	}
	r.sent.WithLabelValues(kind).Inc()
}

// MediaEvent counts one pipeline decision (applied, cleared, ignored, failed).
func (r *Recorder) MediaEvent(source, outcome string) {
	r.events.WithLabelValues(source, outcome).Inc()
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
