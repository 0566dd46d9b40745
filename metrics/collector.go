// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics exposes mempool, eviction, and block-assembly
// statistics as Prometheus metrics. Nothing in this package is ever
// read by a decision path — it is observation only, wired up alongside
// the notification fan-out sink in cmd/mempoolcored.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector wraps a private prometheus.Registry with the gauges,
// counters, and histograms a running mempool core exposes.
type Collector struct {
	registry *prometheus.Registry

	poolTxCount     prometheus.Gauge
	poolDynamicMem  prometheus.Gauge
	evictions       prometheus.Counter
	expirations     prometheus.Counter
	templateAssembl prometheus.Histogram
}

// NewCollector creates a Collector and registers all of its metrics
// against a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		poolTxCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mempoolcore",
			Subsystem: "pool",
			Name:      "transactions",
			Help:      "Number of transactions currently held in the mempool.",
		}),
		poolDynamicMem: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mempoolcore",
			Subsystem: "pool",
			Name:      "dynamic_memory_bytes",
			Help:      "Estimated dynamic memory usage of the mempool, in bytes.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mempoolcore",
			Subsystem: "pool",
			Name:      "evictions_total",
			Help:      "Number of transactions removed by size-based eviction.",
		}),
		expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mempoolcore",
			Subsystem: "pool",
			Name:      "expirations_total",
			Help:      "Number of transactions removed for exceeding the expiry age.",
		}),
		templateAssembl: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mempoolcore",
			Subsystem: "mining",
			Name:      "block_template_assembly_seconds",
			Help:      "Wall-clock time spent assembling a block template.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	c.registry.MustRegister(
		c.poolTxCount,
		c.poolDynamicMem,
		c.evictions,
		c.expirations,
		c.templateAssembl,
	)
	return c
}

// SetPoolSize records the current transaction count and dynamic memory
// usage, typically sampled after each AddUnchecked/RemoveRecursive call.
func (c *Collector) SetPoolSize(txCount int, dynamicMemoryBytes int64) {
	c.poolTxCount.Set(float64(txCount))
	c.poolDynamicMem.Set(float64(dynamicMemoryBytes))
}

// AddEvictions increments the eviction counter by n.
func (c *Collector) AddEvictions(n int) {
	c.evictions.Add(float64(n))
}

// AddExpirations increments the expiration counter by n.
func (c *Collector) AddExpirations(n int) {
	c.expirations.Add(float64(n))
}

// ObserveTemplateAssembly records how long a CreateBlockTemplate call
// took, in seconds.
func (c *Collector) ObserveTemplateAssembly(seconds float64) {
	c.templateAssembl.Observe(seconds)
}

// Handler returns an http.Handler serving this collector's metrics in
// the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
