package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medconsult"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	SessionsCreated   *prometheus.CounterVec
	SessionResets     prometheus.Counter
	Turns             *prometheus.CounterVec
	TurnDuration      *prometheus.HistogramVec
	DocumentsUploaded *prometheus.CounterVec
	RetrievalQueries  *prometheus.CounterVec
	ImagesAnalyzed    *prometheus.CounterVec
	EventsConsumed    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created, by initial backend.",
		}, []string{"backend"}),
		SessionResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resets_total",
			Help:      "Transcript resets caused by backend switches.",
		}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns, by backend and outcome.",
		}, []string{"backend", "outcome"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time of a conversation turn.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"backend"}),
		DocumentsUploaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_uploaded_total",
			Help:      "Uploaded documents, by decoding used.",
		}, []string{"encoding"}),
		RetrievalQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_queries_total",
			Help:      "Knowledge-server queries, by result kind.",
		}, []string{"kind"}),
		ImagesAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_analyzed_total",
			Help:      "Image analyses, by outcome.",
		}, []string{"outcome"}),
		EventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Events handled by the in-process consumer.",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SessionsCreated,
		m.SessionResets,
		m.Turns,
		m.TurnDuration,
		m.DocumentsUploaded,
		m.RetrievalQueries,
		m.ImagesAnalyzed,
		m.EventsConsumed,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
