package metrics

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Summary is a gc.Metrics that keeps the latest values in memory instead of
// exporting them, so they can be printed on an interval by Output. It is
// used alongside Prometheus rather than instead of it.
type Summary struct {
	mu            sync.Mutex
	reachableSize int
	lastHeight    uint64
	lastScan      time.Duration
	swaps         uint64
}

// NewSummary returns an empty Summary.
func NewSummary() *Summary {
	return &Summary{}
}

// SetReachableSize implements gc.Metrics.
func (s *Summary) SetReachableSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reachableSize = n
}

// SetLastHeight implements gc.Metrics.
func (s *Summary) SetLastHeight(h uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeight = h
}

// ObserveScanDuration implements gc.Metrics.
func (s *Summary) ObserveScanDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScan = d
}

// IncSwaps implements gc.Metrics.
func (s *Summary) IncSwaps() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps++
}

// Output implements Collector, printing the current values to log.
func (s *Summary) Output(log zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Info().
		Int("reachable_nodes", s.reachableSize).
		Uint64("last_height", s.lastHeight).
		Dur("last_scan", s.lastScan).
		Uint64("swaps", s.swaps).
		Msg("account gc summary")
}

// Collector is printed by Output on a tick.
type Collector interface {
	Output(log zerolog.Logger)
}

// Multi fans a single gc.Metrics call out to every metrics sink given to it,
// so the controller can be constructed with one Metrics value that feeds
// both Prometheus and Summary.
type Multi []interface {
	SetReachableSize(n int)
	SetLastHeight(h uint64)
	ObserveScanDuration(d time.Duration)
	IncSwaps()
}

func (m Multi) SetReachableSize(n int) {
	for _, sink := range m {
		sink.SetReachableSize(n)
	}
}

func (m Multi) SetLastHeight(h uint64) {
	for _, sink := range m {
		sink.SetLastHeight(h)
	}
}

func (m Multi) ObserveScanDuration(d time.Duration) {
	for _, sink := range m {
		sink.ObserveScanDuration(d)
	}
}

func (m Multi) IncSwaps() {
	for _, sink := range m {
		sink.IncSwaps()
	}
}
