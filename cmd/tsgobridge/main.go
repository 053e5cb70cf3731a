// Command tsgobridge type-checks, bundles and transforms TypeScript through
// the bridge's engines.
//
//	tsgobridge [-config file] [-engine file.wasm] [-v] build [-project dir] [-i]
//	tsgobridge bundle [-outfile f | -outdir d] [-format esm] [-i] entry...
//	tsgobridge transform [-loader ts] [-o out.js] file
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/engine/inproc"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tsgobridge [-config file.toml] [-engine engine.wasm] [-v] <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  build      compile a TypeScript project on disk")
	fmt.Fprintln(w, "  bundle     bundle entry points into output files")
	fmt.Fprintln(w, "  transform  transform one file to JavaScript")
}

func run(args []string) int {
	global := flag.NewFlagSet("tsgobridge", flag.ContinueOnError)
	global.Usage = func() { usage(os.Stderr) }
	var (
		configPath = global.String("config", "", "TOML configuration file")
		enginePath = global.String("engine", "", "Engine binary (default: in-process engine)")
		verbose    = global.Bool("v", false, "Verbose logging")
	)
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		usage(os.Stderr)
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	set := setFlags(global)
	if set["engine"] {
		cfg.Engine = *enginePath
	}
	if set["v"] {
		cfg.Verbose = *verbose
	}

	if cfg.Verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		defer func() { _ = logger.Sync() }()
		engine.SetLogger(logger)
	}

	tty := term.IsTerminal(int(os.Stderr.Fd()))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, rest := global.Arg(0), global.Args()[1:]
	var c *command
	switch cmd {
	case "build":
		c, err = parseBuild(cfg, rest, tty)
	case "bundle":
		c, err = parseBundle(cfg, rest)
	case "transform":
		c, err = parseTransform(cfg, rest)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cmd)
		usage(os.Stderr)
		return 2
	}
	if err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 2
	}

	eng, err := openEngine(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := eng.Close(context.Background()); err != nil {
			engine.Logger().Warn("close engine", zap.Error(err))
		}
	}()

	findings, ok, err := c.run(ctx, eng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch {
	case c.interactive && len(findings) > 0:
		if !tty {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			return 2
		}
		if err := runInteractive(cmd, findings); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	case !c.enginePrinted:
		printFindings(os.Stderr, findings, tty)
	}
	if !ok {
		return 1
	}
	return 0
}

// command is a parsed subcommand ready to run against an engine.
type command struct {
	run         func(ctx context.Context, eng engine.Engine) ([]finding, bool, error)
	interactive bool
	// enginePrinted is set when the engine already wrote diagnostics to stderr.
	enginePrinted bool
}

func openEngine(ctx context.Context, cfg *fileConfig) (engine.Engine, error) {
	if cfg.Engine == "" {
		opts := append(cfg.engineOptions(), inproc.WithStderr(os.Stderr))
		return inproc.New(opts...), nil
	}
	wasm, err := os.ReadFile(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("read engine: %w", err)
	}
	ecfg := cfg.engineConfig()
	ecfg.Stderr = os.Stderr
	eng, err := engine.LoadWazeroEngine(ctx, wasm, ecfg)
	if err != nil {
		return nil, err
	}
	return eng, nil
}

func parseBuild(cfg *fileConfig, args []string, tty bool) (*command, error) {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	var (
		project     = fs.String("project", cfg.Build.Project, "Project directory")
		configFile  = fs.String("tsconfig", cfg.Build.ConfigFile, "tsconfig.json to use instead of the project's")
		printErrors = fs.Bool("print-errors", !tty, "Let the engine print diagnostics in tsc format")
		interactive = fs.Bool("i", false, "Browse diagnostics interactively")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		*project = fs.Arg(0)
	}

	bc := cfg.Build
	bc.Project, bc.ConfigFile = *project, *configFile
	printErrs := *printErrors
	if bc.PrintErrors != nil && !setFlags(fs)["print-errors"] {
		printErrs = *bc.PrintErrors
	}
	if *interactive {
		printErrs = false
	}
	return &command{
		run: func(ctx context.Context, eng engine.Engine) ([]finding, bool, error) {
			return runBuild(ctx, eng, bc, printErrs)
		},
		interactive:   *interactive,
		enginePrinted: printErrs,
	}, nil
}

func parseBundle(cfg *fileConfig, args []string) (*command, error) {
	bc, interactive, err := bundleFlags(cfg.Bundle, args)
	if err != nil {
		return nil, err
	}
	return &command{
		run: func(ctx context.Context, eng engine.Engine) ([]finding, bool, error) {
			return runBundle(ctx, eng, bc, os.Stdout)
		},
		interactive: interactive,
	}, nil
}

// bundleFlags merges command-line flags over bc. Setting only one of
// -outfile and -outdir clears the other.
func bundleFlags(bc bundleConfig, args []string) (bundleConfig, bool, error) {
	fs := flag.NewFlagSet("bundle", flag.ContinueOnError)
	var (
		outfile     = fs.String("outfile", bc.Outfile, "Single output file")
		outdir      = fs.String("outdir", bc.Outdir, "Output directory")
		format      = fs.String("format", bc.Format, "Output format: iife, cjs or esm")
		platform    = fs.String("platform", bc.Platform, "Target platform: browser, node or neutral")
		target      = fs.String("target", bc.Target, "Language target, e.g. es2020")
		sourcemap   = fs.String("sourcemap", bc.Sourcemap, "Source map mode")
		external    = fs.String("external", strings.Join(bc.External, ","), "Comma-separated modules to leave unbundled")
		reactGlobal = fs.String("react-global", bc.ReactGlobal, "Replace imports of react with this global")
		minify      = fs.Bool("minify", bc.Minify, "Minify output")
		metafile    = fs.Bool("metafile", bc.Metafile, "Write meta.json next to the outputs")
		interactive = fs.Bool("i", false, "Browse messages interactively")
	)
	if err := fs.Parse(args); err != nil {
		return bc, false, err
	}

	set := setFlags(fs)
	if set["outfile"] && !set["outdir"] {
		*outdir = ""
	}
	if set["outdir"] && !set["outfile"] {
		*outfile = ""
	}
	bc.Outfile, bc.Outdir = *outfile, *outdir
	bc.Format, bc.Platform, bc.Target, bc.Sourcemap = *format, *platform, *target, *sourcemap
	bc.External = splitList(*external)
	bc.ReactGlobal, bc.Minify, bc.Metafile = *reactGlobal, *minify, *metafile
	if fs.NArg() > 0 {
		bc.EntryPoints = fs.Args()
	}
	return bc, *interactive, nil
}

func parseTransform(cfg *fileConfig, args []string) (*command, error) {
	fs := flag.NewFlagSet("transform", flag.ContinueOnError)
	tc := cfg.Transform
	var (
		loader    = fs.String("loader", tc.Loader, "Input loader (default: from the file extension)")
		target    = fs.String("target", tc.Target, "Language target")
		format    = fs.String("format", tc.Format, "Output format")
		sourcemap = fs.String("sourcemap", tc.Sourcemap, "Source map mode")
		minify    = fs.Bool("minify", tc.Minify, "Minify output")
		output    = fs.String("o", "", "Output file (default: stdout)")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("transform: want one input file, or - for stdin")
	}
	input := fs.Arg(0)
	tc.Loader, tc.Target, tc.Format, tc.Sourcemap, tc.Minify = *loader, *target, *format, *sourcemap, *minify

	return &command{
		run: func(ctx context.Context, eng engine.Engine) ([]finding, bool, error) {
			if *output == "" {
				return runTransform(ctx, eng, tc, input, os.Stdin, os.Stdout, nil)
			}
			out, err := os.Create(*output)
			if err != nil {
				return nil, false, err
			}
			defer out.Close()
			switch tc.Sourcemap {
			case "", "none", "inline":
				return runTransform(ctx, eng, tc, input, os.Stdin, out, nil)
			}
			mapOut, err := os.Create(*output + ".map")
			if err != nil {
				return nil, false, err
			}
			defer mapOut.Close()
			return runTransform(ctx, eng, tc, input, os.Stdin, out, mapOut)
		},
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printFindings(w io.Writer, findings []finding, color bool) {
	render := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}
	for _, f := range findings {
		sev := errorStyle
		if !f.isError() {
			sev = warningStyle
		}
		line := render(sev, f.Severity) + " " + render(typeStyle, f.Origin) + ": " + f.Text
		if loc := f.location(); loc != "" {
			line = render(funcStyle, loc) + ": " + line
		}
		fmt.Fprintln(w, line)
		for _, n := range f.Notes {
			fmt.Fprintln(w, "  "+render(helpStyle, n))
		}
	}
	if len(findings) > 0 {
		fmt.Fprintln(w, render(helpStyle, summary(findings)))
	}
}
