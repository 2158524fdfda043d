// SPDX-License-Identifier: MPL-2.0

// Package metrics counts installer activity on a private Prometheus
// registry. The CLI can export it to a node_exporter textfile after a run.
//
// Metrics collected:
//   - scarab_operations_total{op,result}: installer operations by outcome
//   - scarab_cache_lookups_total{result}: cache hit, miss or invalid
//   - scarab_download_bytes_total: payload bytes fetched over the network
//   - scarab_hash_mismatches_total: payloads rejected by hash verification
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheInvalid = "invalid"
)

type (
	// Config configures New.
	Config struct {
		// Namespace is the metric prefix (default: "scarab").
		Namespace string
		// Registry receives the collectors (default: a fresh private registry).
		Registry *prometheus.Registry
	}

	// Option configures New.
	Option func(*Config)

	// Metrics holds the collectors.
	Metrics struct {
		registry       *prometheus.Registry
		operations     *prometheus.CounterVec
		cacheLookups   *prometheus.CounterVec
		downloadBytes  prometheus.Counter
		hashMismatches prometheus.Counter
	}
)

// WithNamespace sets the metric prefix.
func WithNamespace(ns string) Option {
	return func(c *Config) { c.Namespace = ns }
}

// WithRegistry registers into reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Config) { c.Registry = reg }
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	cfg := Config{Namespace: "scarab"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(cfg.Registry)
	return &Metrics{
		registry: cfg.Registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "operations_total",
			Help:      "Total installer operations by operation and result",
		}, []string{"op", "result"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "cache_lookups_total",
			Help:      "Download cache lookups by result",
		}, []string{"result"}),
		downloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "download_bytes_total",
			Help:      "Payload bytes downloaded",
		}),
		hashMismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "hash_mismatches_total",
			Help:      "Payloads rejected because their hash did not match the catalog",
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOperation counts one finished operation.
func (m *Metrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// CacheLookup counts a cache lookup outcome.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// AddDownloadBytes adds n downloaded bytes.
func (m *Metrics) AddDownloadBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.downloadBytes.Add(float64(n))
}

// HashMismatch counts a rejected payload.
func (m *Metrics) HashMismatch() {
	if m == nil {
		return
	}
	m.hashMismatches.Inc()
}

// WriteTextfile writes all metrics in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
