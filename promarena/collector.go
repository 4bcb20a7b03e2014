// Package promarena exports arena metrics to Prometheus.
package promarena

import (
	"maps"
	"slices"
	"sync"

	"github.com/pavanmanishd/typedarena"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is a prometheus.Collector over a set of named arenas. Each
// scrape takes a fresh Metrics snapshot from every registered arena.
type Collector struct {
	mu      sync.RWMutex
	sources map[string]typedarena.MetricsSource

	length      *prometheus.Desc
	reserved    *prometheus.Desc
	capacity    *prometheus.Desc
	utilization *prometheus.Desc
	allocs      *prometheus.Desc
	rollbacks   *prometheus.Desc
	grows       *prometheus.Desc
	dropped     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a Collector whose metric names are prefixed with
// namespace.
func NewCollector(namespace string) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "arena", name), help, []string{"arena"}, nil)
	}
	return &Collector{
		sources:     make(map[string]typedarena.MetricsSource),
		length:      desc("len", "Values visible to readers"),
		reserved:    desc("reserved", "Slots handed out, published or not"),
		capacity:    desc("capacity", "Slots available without growing"),
		utilization: desc("utilization", "Reserved slots as a ratio of capacity (0.0-1.0)"),
		allocs:      desc("allocs_total", "Total values allocated"),
		rollbacks:   desc("rollbacks_total", "Total rollbacks that discarded at least one value"),
		grows:       desc("grows_total", "Total storage reallocations"),
		dropped:     desc("dropped_total", "Total values discarded"),
	}
}

// Register adds src under name, replacing any arena already registered with
// that name.
func (c *Collector) Register(name string, src typedarena.MetricsSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[name] = src
}

// Unregister removes the arena registered under name. It reports whether
// one was present.
func (c *Collector) Unregister(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sources[name]
	delete(c.sources, name)
	return ok
}

// Names returns the registered arena names in sorted order.
func (c *Collector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.sources))
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.length
	ch <- c.reserved
	ch <- c.capacity
	ch <- c.utilization
	ch <- c.allocs
	ch <- c.rollbacks
	ch <- c.grows
	ch <- c.dropped
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, src := range c.sources {
		m := src.Metrics()
		ch <- prometheus.MustNewConstMetric(c.length, prometheus.GaugeValue, float64(m.Len), name)
		ch <- prometheus.MustNewConstMetric(c.reserved, prometheus.GaugeValue, float64(m.Reserved), name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(m.Capacity), name)
		ch <- prometheus.MustNewConstMetric(c.utilization, prometheus.GaugeValue, m.Utilization, name)
		ch <- prometheus.MustNewConstMetric(c.allocs, prometheus.CounterValue, float64(m.Allocs), name)
		ch <- prometheus.MustNewConstMetric(c.rollbacks, prometheus.CounterValue, float64(m.Rollbacks), name)
		ch <- prometheus.MustNewConstMetric(c.grows, prometheus.CounterValue, float64(m.Grows), name)
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(m.Dropped), name)
	}
}
