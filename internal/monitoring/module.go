package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options control monitoring module configuration.
type Options struct {
	// Namespace configures the Prometheus namespace. Defaults to "portcullis".
	Namespace string
}

// Module owns the snapshot registry and the health probes.
type Module struct {
	registry *prometheus.Registry
	health   *HealthManager
}

// NewModule registers a snapshot collector over source in a dedicated registry.
func NewModule(source SnapshotSource, opts Options) (*Module, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "portcullis"
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(newSnapshotCollector(namespace, source)); err != nil {
		return nil, err
	}

	return &Module{
		registry: registry,
		health:   NewHealthManager(),
	}, nil
}

// Registry exposes the underlying Prometheus registry.
func (m *Module) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the default registry (runtime and request metrics) merged with the snapshot gauges.
func (m *Module) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(prometheus.Gatherers{prometheus.DefaultGatherer, m.registry}, promhttp.HandlerOpts{})
}

// Health exposes the health manager backing the health endpoint.
func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}
