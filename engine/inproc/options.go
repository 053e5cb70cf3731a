package inproc

import (
	"io"
	"time"

	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/registry"
)

// Option configures an Engine.
type Option func(*engine.Config)

// WithStderr sets where printErrors diagnostics go. The default discards them.
func WithStderr(w io.Writer) Option {
	return func(c *engine.Config) {
		c.Stderr = w
	}
}

// WithMemoryLimit caps the arena at pages 64KB pages.
func WithMemoryLimit(pages uint32) Option {
	return func(c *engine.Config) {
		c.MemoryLimitPages = pages
	}
}

// WithRegistry resolves callback tokens in r instead of registry.Default().
func WithRegistry(r *registry.Registry) Option {
	return func(c *engine.Config) {
		c.Registry = r
	}
}

// WithCallbackTimeout bounds each host callback; see engine.Config.
func WithCallbackTimeout(d time.Duration) Option {
	return func(c *engine.Config) {
		c.CallbackTimeout = d
	}
}

// WithMaxInFlightCallbacks bounds concurrently blocked host callbacks.
func WithMaxInFlightCallbacks(n int64) Option {
	return func(c *engine.Config) {
		c.MaxInFlightCallbacks = n
	}
}

// WithConfig replaces every setting with cfg.
func WithConfig(cfg engine.Config) Option {
	return func(c *engine.Config) {
		*c = cfg
	}
}
