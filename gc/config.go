package gc

import "github.com/go-playground/validator/v10"

// Config holds the GC controller's parameters, read once at init and
// immutable afterwards.
type Config struct {
	// Enabled turns the controller on. A disabled controller never leaves
	// Idle.
	Enabled bool
	// Interval is the number of key blocks between GC activations. A scan
	// only starts at heights where height mod Interval == 0.
	Interval uint64 `validate:"gte=1"`
	// History is the number of key blocks behind the top whose roots must
	// remain reachable.
	History uint64 `validate:"gte=1"`
}

// DefaultConfig returns the documented defaults: disabled, a 50,000-block
// interval and a 500-block history window.
func DefaultConfig() Config {
	return Config{
		Enabled:  false,
		Interval: 50_000,
		History:  500,
	}
}

var validate = validator.New()

// Validate checks the configuration's bounds.
func (c Config) Validate() error {
	return validate.Struct(c)
}
