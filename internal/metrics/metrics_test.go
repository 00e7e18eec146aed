package metrics_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/optakt/account-gc/internal/metrics"
)

func TestSummaryAccumulatesLatestValues(t *testing.T) {
	s := metrics.NewSummary()

	s.SetReachableSize(10)
	s.SetLastHeight(100)
	s.ObserveScanDuration(5 * time.Millisecond)
	s.IncSwaps()
	s.IncSwaps()

	// Output only logs, so the accumulated values are read back from the
	// printed line.
	var buf bytes.Buffer
	assert.NotPanics(t, func() { s.Output(zerolog.New(&buf)) })
	out := buf.String()
	assert.Contains(t, out, `"reachable_nodes":10`)
	assert.Contains(t, out, `"last_height":100`)
	assert.Contains(t, out, `"swaps":2`)
}

type countingSink struct {
	reachableSize int
	lastHeight    uint64
	scans         int
	swaps         int
}

func (c *countingSink) SetReachableSize(n int)             { c.reachableSize = n }
func (c *countingSink) SetLastHeight(h uint64)              { c.lastHeight = h }
func (c *countingSink) ObserveScanDuration(d time.Duration) { c.scans++ }
func (c *countingSink) IncSwaps()                           { c.swaps++ }

func TestMultiFansOutToEverySink(t *testing.T) {
	a := &countingSink{}
	b := &countingSink{}
	m := metrics.Multi{a, b}

	m.SetReachableSize(42)
	m.SetLastHeight(7)
	m.ObserveScanDuration(time.Second)
	m.IncSwaps()

	for _, sink := range []*countingSink{a, b} {
		assert.Equal(t, 42, sink.reachableSize)
		assert.Equal(t, uint64(7), sink.lastHeight)
		assert.Equal(t, 1, sink.scans)
		assert.Equal(t, 1, sink.swaps)
	}
}

func TestOutputPrintsOnStopEvenBeforeFirstTick(t *testing.T) {
	o := metrics.NewOutput(zerolog.Nop(), time.Hour)
	called := make(chan struct{}, 1)
	o.Register(collectorFunc(func(log zerolog.Logger) {
		select {
		case called <- struct{}{}:
		default:
		}
	}))

	o.Run()
	o.Stop()

	select {
	case <-called:
	default:
		t.Fatal("Output did not print on Stop")
	}
}

type collectorFunc func(log zerolog.Logger)

func (f collectorFunc) Output(log zerolog.Logger) { f(log) }
