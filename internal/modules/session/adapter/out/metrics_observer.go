package out

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"queuebreaker/internal/modules/session/domain"
	sessionout "queuebreaker/internal/modules/session/port/out"
)

var statuses = []domain.Status{
	domain.StatusIdle,
	domain.StatusWaitingForWindow,
	domain.StatusAttempting,
	domain.StatusStopped,
}

// MetricsObserver exposes session progress as Prometheus metrics on its own
// registry.
type MetricsObserver struct {
	logger   zerolog.Logger
	registry *prometheus.Registry

	attemptsTotal   *prometheus.CounterVec
	attemptDuration prometheus.Histogram
	status          *prometheus.GaugeVec
	untilWindow     prometheus.Gauge
	sessionsStopped *prometheus.CounterVec
}

var _ sessionout.Observer = (*MetricsObserver)(nil)

func NewMetricsObserver(logger zerolog.Logger, namespace string) *MetricsObserver {
	if namespace == "" {
		namespace = "queuebreaker"
	}
	m := &MetricsObserver{
		logger:   logger.With().Str("component", "metrics").Logger(),
		registry: prometheus.NewRegistry(),
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Call attempts by termination reason and outcome",
		}, []string{"termination", "outcome"}),
		attemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Wall time of one call attempt",
			Buckets:   []float64{1, 2, 5, 8, 10, 15, 20, 30, 60},
		}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_status",
			Help:      "1 for the current session status, 0 otherwise",
		}, []string{"status"}),
		untilWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seconds_until_window",
			Help:      "Seconds until the schedule gate next opens, -1 when it never opens",
		}),
		sessionsStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_stopped_total",
			Help:      "Finished sessions by stop cause",
		}, []string{"cause"}),
	}
	m.registry.MustRegister(m.attemptsTotal, m.attemptDuration, m.status, m.untilWindow, m.sessionsStopped)
	m.setStatus(domain.StatusIdle)
	return m
}

func (m *MetricsObserver) Observe(event domain.Event) {
	switch event.Kind {
	case domain.EventStatus:
		m.setStatus(event.Status)
	case domain.EventWaiting:
		if event.NextOpening.IsZero() {
			m.untilWindow.Set(-1)
			return
		}
		m.untilWindow.Set(event.NextOpening.Sub(event.At).Seconds())
	case domain.EventAttemptStarted:
		m.untilWindow.Set(0)
	case domain.EventAttemptFinished:
		m.attemptsTotal.WithLabelValues(string(event.Record.Reason), string(event.Record.Outcome)).Inc()
		m.attemptDuration.Observe(event.Record.Duration.Seconds())
	case domain.EventStopped:
		m.setStatus(domain.StatusStopped)
		m.sessionsStopped.WithLabelValues(string(event.Cause)).Inc()
	}
}

func (m *MetricsObserver) setStatus(current domain.Status) {
	for _, s := range statuses {
		v := 0.0
		if s == current {
			v = 1
		}
		m.status.WithLabelValues(string(s)).Set(v)
	}
}

func (m *MetricsObserver) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsObserver) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics on addr until the returned server is shut down.
func (m *MetricsObserver) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	m.logger.Info().Str("addr", addr).Msg("serving metrics")
	return server
}
