package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/engine/inproc"
)

// fileConfig is the layout of a tsgobridge.toml file:
//
//	engine = "dist/tsgo.wasm"
//	callback_timeout = "5s"
//
//	[bundle]
//	entry_points = ["src/index.ts"]
//	outdir = "dist"
//	format = "esm"
type fileConfig struct {
	// Engine is a compiled engine binary. Empty runs the in-process engine.
	Engine           string        `toml:"engine"`
	MemoryLimitPages uint32        `toml:"memory_limit_pages"`
	MaxInFlight      int64         `toml:"max_in_flight"`
	CallbackTimeout  time.Duration `toml:"callback_timeout"`
	Verbose          bool          `toml:"verbose"`

	Build     buildConfig     `toml:"build"`
	Bundle    bundleConfig    `toml:"bundle"`
	Transform transformConfig `toml:"transform"`
}

type buildConfig struct {
	Project     string `toml:"project"`
	ConfigFile  string `toml:"config_file"`
	PrintErrors *bool  `toml:"print_errors"`
}

type bundleConfig struct {
	EntryPoints []string          `toml:"entry_points"`
	External    []string          `toml:"external"`
	Define      map[string]string `toml:"define"`
	Outfile     string            `toml:"outfile"`
	Outdir      string            `toml:"outdir"`
	Format      string            `toml:"format"`
	Platform    string            `toml:"platform"`
	Target      string            `toml:"target"`
	Sourcemap   string            `toml:"sourcemap"`
	ReactGlobal string            `toml:"react_global"`
	Minify      bool              `toml:"minify"`
	Metafile    bool              `toml:"metafile"`
}

type transformConfig struct {
	Loader    string `toml:"loader"`
	Target    string `toml:"target"`
	Format    string `toml:"format"`
	Sourcemap string `toml:"sourcemap"`
	Minify    bool   `toml:"minify"`
}

func defaultConfig() *fileConfig {
	return &fileConfig{
		Build: buildConfig{Project: "."},
		Bundle: bundleConfig{
			Format:   "esm",
			Platform: "browser",
			Target:   "esnext",
		},
		Transform: transformConfig{Target: "esnext"},
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (*fileConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// setFlags returns the names of flags given on the command line. Only
// those override values from the config file.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func (c *fileConfig) engineOptions() []inproc.Option {
	var opts []inproc.Option
	if c.MemoryLimitPages > 0 {
		opts = append(opts, inproc.WithMemoryLimit(c.MemoryLimitPages))
	}
	if c.CallbackTimeout > 0 {
		opts = append(opts, inproc.WithCallbackTimeout(c.CallbackTimeout))
	}
	if c.MaxInFlight > 0 {
		opts = append(opts, inproc.WithMaxInFlightCallbacks(c.MaxInFlight))
	}
	return opts
}

func (c *fileConfig) engineConfig() *engine.Config {
	cfg := &engine.Config{}
	for _, opt := range c.engineOptions() {
		opt(cfg)
	}
	return cfg
}
