package engine

import (
	"io"
	"time"

	"github.com/wippyai/tsgo-bridge/registry"
	"github.com/wippyai/tsgo-bridge/syncadapter"
)

// Config holds configuration shared by engine hosts.
type Config struct {
	// Registry resolves callback tokens. nil means registry.Default().
	Registry *registry.Registry

	// Stderr receives diagnostics printed by the engine. nil discards them.
	Stderr io.Writer

	// MemoryLimitPages caps engine memory in 64KB pages.
	// 0 means the host default (wazero: 65536 pages, inproc: abi.DefaultArenaPages).
	MemoryLimitPages uint32

	// MaxInFlightCallbacks bounds host callbacks blocked at the same time.
	// 0 means unbounded.
	MaxInFlightCallbacks int64

	// CallbackTimeout bounds how long the engine waits for one host callback.
	// A callback that times out yields "no result". 0 waits forever.
	CallbackTimeout time.Duration
}

func (c *Config) registry() *registry.Registry {
	if c == nil || c.Registry == nil {
		return registry.Default()
	}
	return c.Registry
}

func (c *Config) stderr() io.Writer {
	if c == nil || c.Stderr == nil {
		return io.Discard
	}
	return c.Stderr
}

func (c *Config) adapterOptions() []syncadapter.Option {
	if c == nil {
		return nil
	}
	var opts []syncadapter.Option
	if c.CallbackTimeout > 0 {
		opts = append(opts, syncadapter.WithTimeout(c.CallbackTimeout))
	}
	if lim := syncadapter.NewLimiter(c.MaxInFlightCallbacks); lim != nil {
		opts = append(opts, syncadapter.WithLimiter(lim))
	}
	return opts
}

