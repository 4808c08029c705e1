package observability

import (
	"context"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	Events      *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Records     *prometheus.CounterVec
	Errors      prometheus.Counter
	Duration    *prometheus.HistogramVec
	NodeVisits  *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botengine_events_total",
				Help: "Inbound events by classified kind",
			},
			[]string{"kind"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botengine_transitions_total",
				Help: "Interpreted events by outcome",
			},
			[]string{"outcome"},
		),
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botengine_records_committed_total",
				Help: "Committed records by collection",
			},
			[]string{"collection"},
		),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botengine_errors_total",
			Help: "Events that failed to apply",
		}),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botengine_handle_duration_seconds",
				Help:    "Time to load, interpret and persist one event",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botengine_node_visits_total",
				Help: "Times a node became active or was emitted",
			},
			[]string{"node_id"},
		),
	}
	reg.MustRegister(m.Events, m.Transitions, m.Records, m.Errors, m.Duration, m.NodeVisits)
	return m
}

// Hooks records metrics from engine lifecycle events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvent: func(ctx context.Context, ev domain.ClassifiedEvent) {
			m.Events.WithLabelValues(string(ev.Kind)).Inc()
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(string(e.Outcome)).Inc()
			m.Duration.WithLabelValues(string(e.Outcome)).Observe(e.Duration.Seconds())
			if e.ToNode != "" {
				m.NodeVisits.WithLabelValues(e.ToNode).Inc()
			}
		},
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			m.Records.WithLabelValues(e.Record.Collection).Inc()
		},
		OnError: func(ctx context.Context, ev domain.ClassifiedEvent, err error) {
			m.Errors.Inc()
		},
	}
}
