package componentry

import (
	"time"

	"github.com/rs/zerolog"
)

// component wraps a single run/stop pair registered with an Engine.
type component struct {
	log  zerolog.Logger
	run  func() error
	stop func()
}

func (c *component) Run(notify chan<- error) {
	start := time.Now()

	c.log.Info().Msg("component starting")
	err := c.run()
	notify <- err
	if err != nil {
		c.log.Error().Err(err).Msg("component failed")
		return
	}

	duration := time.Since(start)
	c.log.Info().Dur("duration", duration.Round(time.Second)).Msg("component done")
}

func (c *component) Stop() {
	c.stop()
	c.log.Info().Msg("component stopped")
}
