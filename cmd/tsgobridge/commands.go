package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/esbuild"
	"github.com/wippyai/tsgo-bridge/tsc"
)

// finding is a compiler diagnostic or bundler message in the shape the
// printer and the browser show. Line and Column are 1-based.
type finding struct {
	Severity string
	Origin   string
	File     string
	Text     string
	LineText string
	Notes    []string
	Line     int
	Column   int
}

func (f finding) location() string {
	if f.File == "" {
		return ""
	}
	if f.Line == 0 {
		return f.File
	}
	return fmt.Sprintf("%s:%d:%d", f.File, f.Line, f.Column)
}

func (f finding) isError() bool { return f.Severity == tsc.CategoryError }

func diagnosticFindings(diags []tsc.Diagnostic) []finding {
	out := make([]finding, 0, len(diags))
	for _, d := range diags {
		f := finding{
			Severity: d.Category,
			Origin:   "tsc",
			Text:     d.Message,
			Line:     d.Line,
			Column:   d.Column,
		}
		if d.Code != 0 {
			f.Origin = fmt.Sprintf("TS%d", d.Code)
		}
		if d.File != nil {
			f.File = *d.File
		}
		out = append(out, f)
	}
	return out
}

func messageFindings(errs, warnings []esbuild.Message) []finding {
	out := make([]finding, 0, len(errs)+len(warnings))
	add := func(kind esbuild.MessageKind, msgs []esbuild.Message) {
		for _, m := range msgs {
			f := finding{Severity: kind.String(), Origin: "esbuild", Text: m.Text}
			if m.PluginName != "" {
				f.Origin = m.PluginName
			}
			if loc := m.Location; loc != nil {
				f.File, f.Line, f.Column, f.LineText = loc.File, loc.Line, loc.Column+1, loc.LineText
			}
			for _, n := range m.Notes {
				f.Notes = append(f.Notes, n.Text)
			}
			out = append(out, f)
		}
	}
	add(esbuild.MessageError, errs)
	add(esbuild.MessageWarning, warnings)
	return out
}

// diskResolver serves absolute slash paths from the local file system.
// Relative and bare paths are left to the bundler.
func diskResolver() tsgobridge.ResolverFunc {
	return func(_ context.Context, p string) (tsgobridge.Entry, error) {
		if !path.IsAbs(p) {
			return tsgobridge.Entry{}, nil
		}
		native := filepath.FromSlash(p)
		info, err := os.Stat(native)
		if os.IsNotExist(err) {
			return tsgobridge.Entry{}, nil
		}
		if err != nil {
			return tsgobridge.Entry{}, err
		}
		if info.IsDir() {
			ents, err := os.ReadDir(native)
			if err != nil {
				return tsgobridge.Entry{}, err
			}
			names := make([]string, 0, len(ents))
			for _, e := range ents {
				names = append(names, e.Name())
			}
			sort.Strings(names)
			return tsgobridge.DirectoryEntry(names...), nil
		}
		content, err := os.ReadFile(native)
		if err != nil {
			return tsgobridge.Entry{}, err
		}
		return tsgobridge.Entry{Kind: tsgobridge.File, Content: content}, nil
	}
}

func absSlash(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}

func runBuild(ctx context.Context, eng engine.Engine, cfg buildConfig, printErrors bool) ([]finding, bool, error) {
	project, err := filepath.Abs(cfg.Project)
	if err != nil {
		return nil, false, err
	}
	opts := &tsc.Options{ConfigFile: cfg.ConfigFile, PrintErrors: printErrors}
	res, err := tsc.BuildFileSystem(ctx, eng, project, opts)
	if err != nil {
		return nil, false, err
	}
	engine.Logger().Info("build finished",
		zap.String("project", project),
		zap.String("config", res.ConfigFile),
		zap.Int("emitted", len(res.EmittedFiles)),
		zap.Int("diagnostics", len(res.Diagnostics)))
	for _, f := range res.EmittedFiles {
		engine.Logger().Debug("emitted", zap.String("file", f))
	}
	return diagnosticFindings(res.Diagnostics), !res.HasErrors(), nil
}

func bundleOptions(cfg bundleConfig) (*esbuild.BuildOptions, error) {
	if len(cfg.EntryPoints) == 0 {
		return nil, fmt.Errorf("bundle: no entry points")
	}
	if cfg.Outfile != "" && cfg.Outdir != "" {
		return nil, fmt.Errorf("bundle: outfile and outdir are exclusive")
	}

	opts := &esbuild.BuildOptions{
		Bundle:   true,
		External: cfg.External,
		Metafile: cfg.Metafile,
	}
	opts.Define = cfg.Define
	opts.Minify = cfg.Minify

	var err error
	if opts.Format, err = esbuild.ParseFormat(cfg.Format); err != nil {
		return nil, err
	}
	if opts.Platform, err = esbuild.ParsePlatform(cfg.Platform); err != nil {
		return nil, err
	}
	if opts.Target, err = esbuild.ParseTarget(cfg.Target); err != nil {
		return nil, err
	}
	if cfg.Sourcemap != "" {
		if opts.Sourcemap, err = esbuild.ParseSourceMap(cfg.Sourcemap); err != nil {
			return nil, err
		}
	}

	for _, ep := range cfg.EntryPoints {
		abs, err := absSlash(ep)
		if err != nil {
			return nil, err
		}
		opts.EntryPoints = append(opts.EntryPoints, abs)
	}
	switch {
	case cfg.Outfile != "":
		if opts.Outfile, err = absSlash(cfg.Outfile); err != nil {
			return nil, err
		}
	case cfg.Outdir != "":
		if opts.Outdir, err = absSlash(cfg.Outdir); err != nil {
			return nil, err
		}
	default:
		if opts.Outdir, err = absSlash("dist"); err != nil {
			return nil, err
		}
	}

	if cfg.ReactGlobal != "" {
		opts.Plugins = append(opts.Plugins, esbuild.ReactGlobalPlugin(cfg.ReactGlobal))
	}
	return opts, nil
}

// runBundle bundles cfg's entry points and, when the build has no errors,
// writes the outputs and lists them on report.
func runBundle(ctx context.Context, eng engine.Engine, cfg bundleConfig, report io.Writer) ([]finding, bool, error) {
	opts, err := bundleOptions(cfg)
	if err != nil {
		return nil, false, err
	}
	res, err := esbuild.BuildWithResolver(ctx, eng, opts, diskResolver())
	if err != nil {
		return nil, false, err
	}
	if !res.HasErrors() {
		if err := writeOutputs(res.OutputFiles, report); err != nil {
			return nil, false, err
		}
		if res.Metafile != nil && len(res.OutputFiles) > 0 {
			meta := filepath.Join(filepath.Dir(filepath.FromSlash(res.OutputFiles[0].Path)), "meta.json")
			if err := os.WriteFile(meta, []byte(*res.Metafile), 0o644); err != nil {
				return nil, false, err
			}
		}
	}
	engine.Logger().Info("bundle finished",
		zap.Strings("entry_points", opts.EntryPoints),
		zap.Int("outputs", len(res.OutputFiles)),
		zap.Int("errors", len(res.Errors)),
		zap.Int("warnings", len(res.Warnings)))
	return messageFindings(res.Errors, res.Warnings), !res.HasErrors(), nil
}

func writeOutputs(files []esbuild.OutputFile, report io.Writer) error {
	for _, f := range files {
		p := filepath.FromSlash(f.Path)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, f.Contents, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(report, "%s (%s)\n", p, humanize.Bytes(uint64(len(f.Contents))))
	}
	return nil
}

func transformOptions(cfg transformConfig, input string) (*esbuild.TransformOptions, error) {
	opts := &esbuild.TransformOptions{Sourcefile: input}
	opts.Minify = cfg.Minify

	var err error
	if cfg.Loader != "" {
		if opts.Loader, err = esbuild.ParseLoader(cfg.Loader); err != nil {
			return nil, err
		}
	} else {
		opts.Loader = esbuild.LoaderForExtension(filepath.Ext(input))
	}
	if opts.Target, err = esbuild.ParseTarget(cfg.Target); err != nil {
		return nil, err
	}
	if cfg.Format != "" {
		if opts.Format, err = esbuild.ParseFormat(cfg.Format); err != nil {
			return nil, err
		}
	}
	if cfg.Sourcemap != "" {
		if opts.Sourcemap, err = esbuild.ParseSourceMap(cfg.Sourcemap); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// runTransform transforms input ("-" for stdin) and writes the code to out.
// A source map, when one is produced, goes to mapOut.
func runTransform(ctx context.Context, eng engine.Engine, cfg transformConfig, input string, stdin io.Reader, out, mapOut io.Writer) ([]finding, bool, error) {
	var (
		code []byte
		err  error
	)
	if input == "-" {
		code, err = io.ReadAll(stdin)
		input = "<stdin>"
	} else {
		code, err = os.ReadFile(input)
	}
	if err != nil {
		return nil, false, err
	}

	opts, err := transformOptions(cfg, input)
	if err != nil {
		return nil, false, err
	}
	res, err := esbuild.Transform(ctx, eng, string(code), opts)
	if err != nil {
		return nil, false, err
	}
	if !res.HasErrors() {
		if _, err := out.Write(res.Code); err != nil {
			return nil, false, err
		}
		if res.Map != nil && mapOut != nil {
			if _, err := mapOut.Write(res.Map); err != nil {
				return nil, false, err
			}
		}
	}
	return messageFindings(res.Errors, res.Warnings), !res.HasErrors(), nil
}

func summary(findings []finding) string {
	var errs, warns int
	for _, f := range findings {
		if f.isError() {
			errs++
		} else {
			warns++
		}
	}
	var parts []string
	if errs > 0 {
		parts = append(parts, plural(errs, "error"))
	}
	if warns > 0 {
		parts = append(parts, plural(warns, "warning"))
	}
	if len(parts) == 0 {
		return "no problems"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
