package tsc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/tsconfig"
)

// ValidateProject type checks the project at projectPath without emitting.
// It writes a temporary config next to the project's tsconfig that extends
// it with noEmit, and removes it afterwards.
func ValidateProject(ctx context.Context, eng engine.Engine, projectPath string) (*Result, error) {
	dir, base := projectPath, "tsconfig.json"
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		dir, base = filepath.Dir(projectPath), filepath.Base(projectPath)
	}

	validate := &tsconfig.Config{
		Extends:         "./" + base,
		CompilerOptions: &tsconfig.CompilerOptions{NoEmit: tsconfig.Bool(true)},
	}
	content, err := validate.JSON()
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(dir, "tsconfig.validate.*.json")
	if err != nil {
		return nil, fmt.Errorf("create validation config: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(content); err != nil {
		f.Close()
		return nil, fmt.Errorf("write validation config: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("write validation config: %w", err)
	}

	return BuildFileSystem(ctx, eng, dir, &Options{ConfigFile: tmp})
}

// HasCompilationErrors reports whether building projectPath fails or
// produces an error diagnostic. A build that cannot run counts as failing.
func HasCompilationErrors(ctx context.Context, eng engine.Engine, projectPath string) bool {
	res, err := BuildFileSystem(ctx, eng, projectPath, nil)
	if err != nil {
		return true
	}
	return res.HasErrors()
}

// CompilationDiagnostics returns the diagnostics of building projectPath.
// A build that cannot run yields a single diagnostic describing why.
func CompilationDiagnostics(ctx context.Context, eng engine.Engine, projectPath string) []Diagnostic {
	res, err := BuildFileSystem(ctx, eng, projectPath, nil)
	if err != nil {
		return []Diagnostic{{
			Category: CategoryError,
			Message:  "Failed to get diagnostics: " + err.Error(),
		}}
	}
	return res.Diagnostics
}

// BuildMany runs BuildInMemory for every named project, at most limit at a
// time (limit <= 0 means no limit). The first error cancels the rest.
func BuildMany(ctx context.Context, eng engine.Engine, cfg *tsconfig.Config, projects map[string][]Source, limit int) (map[string]*Result, error) {
	if cfg == nil {
		cfg = tsconfig.Default()
	}
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	results := make([]*Result, len(names))

	for i, name := range names {
		g.Go(func() error {
			res, err := BuildInMemory(ctx, eng, cfg.Clone(), projects[name])
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Result, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out, nil
}
