// Package netrpcconfig holds the ambient configuration a running
// manager needs beyond what spec.md's distilled application surface
// specified: connection limits, tick pacing, and the logger every other
// package's zerolog.Logger.With() call derives from. Built with the
// functional-options idiom the teacher uses throughout
// (ClientOption/ParametrosOption).
package netrpcconfig

import (
	"time"

	"github.com/rs/zerolog"
)

// Config is the manager's ambient configuration.
type Config struct {
	MaxClients   int
	TickInterval time.Duration
	Logger       zerolog.Logger
}

// Option customizes a Config built by New.
type Option func(*Config)

// WithMaxClients overrides the default of 32 connected clients.
func WithMaxClients(n int) Option {
	return func(c *Config) { c.MaxClients = n }
}

// WithTickInterval overrides the default 60Hz pacing hint a driver may
// use between Manager.Update calls. The manager itself does not schedule
// ticks (§5) — this is advisory; cmd/netrpcd does not read it and ticks
// at a fixed 60Hz.
func WithTickInterval(d time.Duration) Option {
	return func(c *Config) { c.TickInterval = d }
}

// WithLogger overrides the default logger every package derives its own
// component logger from via .With().Str(...).Logger().
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// New builds a Config, defaulting to 32 max clients and a 60Hz tick
// interval.
func New(opts ...Option) Config {
	c := Config{
		MaxClients:   32,
		TickInterval: time.Second / 60,
		Logger:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}
