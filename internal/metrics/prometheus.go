// Package metrics implements the metrics and periodic-logging component:
// a prometheus.Collector-backed gc.Metrics plus a zerolog ticker that
// prints the same numbers on an interval, for operators without a scrape
// target.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus is a gc.Metrics backed by client_golang collectors, scraped
// over the registry's own HTTP endpoint rather than printed by Output.
type Prometheus struct {
	reachableSize prometheus.Gauge
	lastHeight    prometheus.Gauge
	scanDuration  prometheus.Histogram
	swapsTotal    prometheus.Counter
}

// NewPrometheus creates and registers the account-GC collectors against reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := Prometheus{
		reachableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "account_gc",
			Name:      "reachable_nodes",
			Help:      "Number of trie nodes in the currently maintained reachable set.",
		}),
		lastHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "account_gc",
			Name:      "last_height",
			Help:      "Highest block height whose reachability coverage is confirmed.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "account_gc",
			Name:      "scan_duration_seconds",
			Help:      "Duration of full, range and delta trie scans.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16),
		}),
		swapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "account_gc",
			Name:      "swaps_total",
			Help:      "Number of times a staged reachable set was handed off for promotion.",
		}),
	}

	collectors := []prometheus.Collector{p.reachableSize, p.lastHeight, p.scanDuration, p.swapsTotal}
	for _, c := range collectors {
		err := reg.Register(c)
		if err != nil {
			return nil, err
		}
	}

	return &p, nil
}

// SetReachableSize implements gc.Metrics.
func (p *Prometheus) SetReachableSize(n int) {
	p.reachableSize.Set(float64(n))
}

// SetLastHeight implements gc.Metrics.
func (p *Prometheus) SetLastHeight(h uint64) {
	p.lastHeight.Set(float64(h))
}

// ObserveScanDuration implements gc.Metrics.
func (p *Prometheus) ObserveScanDuration(d time.Duration) {
	p.scanDuration.Observe(d.Seconds())
}

// IncSwaps implements gc.Metrics.
func (p *Prometheus) IncSwaps() {
	p.swapsTotal.Inc()
}
