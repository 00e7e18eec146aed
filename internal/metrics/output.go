package metrics

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Output periodically prints every registered Collector to log.
type Output struct {
	log        zerolog.Logger
	interval   time.Duration
	collectors []Collector
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewOutput returns an Output that prints on the given interval once Run is
// called.
func NewOutput(log zerolog.Logger, interval time.Duration) *Output {
	o := Output{
		log:      log.With().Str("component", "metrics").Logger(),
		interval: interval,
		done:     make(chan struct{}),
	}
	return &o
}

// Register adds a collector to be printed on every tick.
func (o *Output) Register(collector Collector) {
	o.collectors = append(o.collectors, collector)
}

// Run starts the print loop in its own goroutine.
func (o *Output) Run() {
	o.wg.Add(1)
	go o.loop()
}

// Stop ends the print loop after a final print.
func (o *Output) Stop() {
	close(o.done)
	o.wg.Wait()
}

func (o *Output) loop() {
	defer o.wg.Done()
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-o.done:
			o.print()
			return
		case <-ticker.C:
			o.print()
		}
	}
}

func (o *Output) print() {
	for _, collector := range o.collectors {
		collector.Output(o.log)
	}
}
