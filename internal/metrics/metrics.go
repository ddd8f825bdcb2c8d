// Package metrics provides Prometheus metrics for ghostkeeper.
//
// A nil *Manager is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Manager owns the collectors on a private registry.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	cycles          *prometheus.CounterVec
	changes         *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	historyRestores *prometheus.CounterVec
	saves           prometheus.Counter
	watchState      prometheus.Gauge
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers collectors on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: "ghostkeeper"}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	f := promauto.With(m.registry)
	m.cycles = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "fastfollow",
		Name:      "cycles_total",
		Help:      "Fast-follow cycles by outcome.",
	}, []string{"outcome"})
	m.changes = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "fastfollow",
		Name:      "changes_total",
		Help:      "Changed conditions detected, by profile kind.",
	}, []string{"profile"})
	m.uploads = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "fastfollow",
		Name:      "uploads_total",
		Help:      "Upload decisions taken for changed conditions.",
	}, []string{"decision"})
	m.historyRestores = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "history_restores_total",
		Help:      "Undo and redo restores.",
	}, []string{"direction"})
	m.saves = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "saves_total",
		Help:      "Profile file writes.",
	})
	m.watchState = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "watch_state",
		Help:      "Change watcher state (0 idle, 1 watching, 2 detected).",
	})
	return m
}

// Registry returns the registry collectors are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Cycle counts a finished fast-follow cycle.
func (m *Manager) Cycle(outcome string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
}

// Changes counts changed conditions for a profile kind ("active", "default").
func (m *Manager) Changes(profile string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.changes.WithLabelValues(profile).Add(float64(n))
}

// Upload counts one upload decision.
func (m *Manager) Upload(decision string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(decision).Inc()
}

// HistoryRestore counts an undo or redo.
func (m *Manager) HistoryRestore(direction string) {
	if m == nil {
		return
	}
	m.historyRestores.WithLabelValues(direction).Inc()
}

// Save counts a file write.
func (m *Manager) Save() {
	if m == nil {
		return
	}
	m.saves.Inc()
}

// WatchState records the watcher state as a number.
func (m *Manager) WatchState(state int) {
	if m == nil {
		return
	}
	m.watchState.Set(float64(state))
}

// Handler returns the /metrics handler for the private registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Manager) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if m == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: shutdownTimeout}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	if logger != nil {
		logger.Info("metrics listener started", "addr", addr)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics listener: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
