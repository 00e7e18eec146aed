package gc

import "time"

// Metrics receives observations from the controller, including the
// durations of the scans it runs; the scan engine itself never calls it. A nil
// Metrics is valid; every call site guards against it so the collector is
// optional for callers that do not care about it (tests, mostly).
type Metrics interface {
	SetReachableSize(n int)
	SetLastHeight(h uint64)
	ObserveScanDuration(d time.Duration)
	IncSwaps()
}
