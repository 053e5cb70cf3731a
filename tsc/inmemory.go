package tsc

import (
	"context"
	"path"
	"slices"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/tsconfig"
)

// Fixed layout of an in-memory project.
const (
	ProjectRoot   = "/project"
	ProjectConfig = "/project/tsconfig.json"
	ProjectSrc    = "/project/src"
)

// BuildProject compiles the project rooted at /project as seen through
// resolver. When resolver has no /project/tsconfig.json, cfg (or
// tsconfig.Default when nil) is served in its place.
func BuildProject(ctx context.Context, eng engine.Engine, cfg *tsconfig.Config, resolver tsgobridge.FileResolver) (*Result, error) {
	if cfg == nil {
		cfg = tsconfig.Default()
	}
	configJSON, err := cfg.JSON()
	if err != nil {
		return nil, err
	}
	return BuildWithResolver(ctx, eng, ProjectRoot, &projectResolver{
		upstream: resolver,
		config:   configJSON,
	}, nil)
}

// BuildInMemory compiles sources placed under /project/src.
func BuildInMemory(ctx context.Context, eng engine.Engine, cfg *tsconfig.Config, sources []Source) (*Result, error) {
	return BuildProject(ctx, eng, cfg, sourceResolver(sources))
}

// projectResolver layers a synthesised tsconfig.json over upstream.
type projectResolver struct {
	upstream tsgobridge.FileResolver
	config   []byte
}

func (r *projectResolver) Resolve(ctx context.Context, p string) (tsgobridge.Entry, error) {
	switch p {
	case ProjectConfig:
		if e, err := r.upstream.Resolve(ctx, p); err == nil && e.Kind != tsgobridge.NotFound {
			return e, nil
		}
		return tsgobridge.Entry{Kind: tsgobridge.File, Content: r.config}, nil

	case ProjectRoot:
		var children []string
		if e, err := r.upstream.Resolve(ctx, p); err == nil && e.Kind == tsgobridge.Directory {
			children = slices.Clone(e.Children)
		}
		if !slices.Contains(children, path.Base(ProjectConfig)) {
			children = append(children, path.Base(ProjectConfig))
		}
		return tsgobridge.DirectoryEntry(children...), nil
	}
	return r.upstream.Resolve(ctx, p)
}

// sourceResolver serves /project as a directory holding src, and src as the
// given sources.
func sourceResolver(sources []Source) tsgobridge.ResolverFunc {
	return func(_ context.Context, p string) (tsgobridge.Entry, error) {
		switch p {
		case ProjectRoot:
			return tsgobridge.DirectoryEntry("src"), nil
		case ProjectSrc:
			names := make([]string, len(sources))
			for i, s := range sources {
				names[i] = s.Name
			}
			return tsgobridge.DirectoryEntry(names...), nil
		}
		for _, s := range sources {
			if ProjectSrc+"/"+s.Name == p {
				return tsgobridge.FileEntry(s.Content), nil
			}
		}
		return tsgobridge.Entry{Kind: tsgobridge.NotFound}, nil
	}
}
