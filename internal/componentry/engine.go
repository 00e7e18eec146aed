// Package componentry wires the process's long-running pieces — the
// metrics output ticker and HTTP endpoint, the chain-event adapter and the
// GC controller — into a single engine that starts them
// concurrently and stops them in reverse registration order on shutdown.
package componentry

import (
	"os"

	"github.com/rs/zerolog"
)

// Engine runs a set of components concurrently and tears them down, in
// reverse registration order, on the first failure or external interrupt.
type Engine struct {
	log        zerolog.Logger
	components []*component

	interrupt chan os.Signal
	notify    chan error
}

// New creates an engine that reacts to interrupt in addition to component
// failure.
func New(log zerolog.Logger, name string, interrupt chan os.Signal) *Engine {
	e := Engine{
		log:       log.With().Str("engine", name).Logger(),
		interrupt: interrupt,
	}
	return &e
}

// Component registers a component. Components are started in registration
// order and stopped in the reverse order.
func (e *Engine) Component(name string, run func() error, stop func()) *Engine {
	c := component{
		log:  e.log.With().Str("component", name).Logger(),
		run:  run,
		stop: stop,
	}
	e.components = append(e.components, &c)
	return e
}

// Run launches every registered component and blocks until an interrupt
// signal arrives or a component returns, then shuts everything down in
// reverse order. It returns the error that triggered shutdown, if any.
func (e *Engine) Run() error {
	e.notify = make(chan error, len(e.components))
	for _, c := range e.components {
		go c.Run(e.notify)
	}

	var cause error
	select {
	case <-e.interrupt:
		e.log.Info().Msg("engine stopping")
	case err := <-e.notify:
		cause = err
		if err != nil {
			e.log.Error().Err(err).Msg("engine stopping due to component failure")
		} else {
			e.log.Info().Msg("engine stopping, component finished")
		}
	}

	e.stop()
	return cause
}

func (e *Engine) stop() {
	go e.forceQuit()
	for i := len(e.components) - 1; i >= 0; i-- {
		e.components[i].Stop()
	}
}

// forceQuit exits immediately on a second interrupt, so an operator is never
// stuck waiting on a component that refuses to stop.
func (e *Engine) forceQuit() {
	<-e.interrupt
	e.log.Warn().Msg("forcing exit")
	os.Exit(1)
}
