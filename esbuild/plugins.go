package esbuild

import (
	"context"
	"fmt"
	"path"
	"strings"

	tsgobridge "github.com/wippyai/tsgo-bridge"
)

const (
	// ResolverNamespace holds every module served by ResolverPlugin.
	ResolverNamespace = "tsgo-bridge"

	// DefaultReactGlobal is the global ReactGlobalPlugin reads React from
	// when no name is given.
	DefaultReactGlobal = "_FLICKCORE_$REACT"

	reactGlobalNamespace = "react-global"
)

// probeExtensions are tried, in order, for extensionless relative and
// absolute imports and for index files of directories.
var probeExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".json", ".css"}

// ResolverPlugin serves imports from resolver. Absolute imports are looked up
// as is, relative ones against the importing file's directory and bare ones
// as is; an import the resolver does not know is left to the bundler.
// Loaded files get a loader picked from their extension.
func ResolverPlugin(resolver tsgobridge.FileResolver) Plugin {
	return Plugin{
		Name: "dynamic-resolver",
		Setup: func(b PluginBuild) error {
			b.OnResolve(OnResolveOptions{Filter: ".*"}, func(ctx context.Context, args OnResolveArgs) (*OnResolveResult, error) {
				p, err := resolveImport(ctx, resolver, args)
				if err != nil {
					return &OnResolveResult{Errors: []Message{{
						Text: fmt.Sprintf("Failed to resolve '%s': %v", args.Path, err),
					}}}, nil
				}
				if p == "" {
					return nil, nil
				}
				return &OnResolveResult{Path: &p, Namespace: Ptr(ResolverNamespace)}, nil
			})

			b.OnLoad(OnLoadOptions{Filter: ".*", Namespace: ResolverNamespace}, func(ctx context.Context, args OnLoadArgs) (*OnLoadResult, error) {
				e, err := resolver.Resolve(ctx, args.Path)
				if err != nil {
					return &OnLoadResult{Errors: []Message{{
						Text: fmt.Sprintf("Failed to load '%s': %v", args.Path, err),
					}}}, nil
				}
				if e.Kind != tsgobridge.File {
					return nil, nil
				}
				return &OnLoadResult{
					Contents:   Ptr(string(e.Content)),
					ResolveDir: Ptr(path.Dir(args.Path)),
					Loader:     LoaderForExtension(path.Ext(args.Path)),
				}, nil
			})
			return nil
		},
	}
}

func resolveImport(ctx context.Context, resolver tsgobridge.FileResolver, args OnResolveArgs) (string, error) {
	p := args.Path
	switch {
	case strings.HasPrefix(p, "/"):
		p = path.Clean(p)
	case strings.HasPrefix(p, "./"), strings.HasPrefix(p, "../"):
		dir := args.ResolveDir
		if args.Importer != "" {
			dir = path.Dir(args.Importer)
		}
		if dir == "" {
			return "", nil
		}
		p = path.Join(dir, p)
	default:
		e, err := resolver.Resolve(ctx, p)
		if err != nil || e.Kind == tsgobridge.NotFound {
			return "", err
		}
		return p, nil
	}
	return probe(ctx, resolver, p)
}

// probe finds the file an import path refers to: the path itself, the path
// with a known extension, or an index file when the path is a directory.
func probe(ctx context.Context, resolver tsgobridge.FileResolver, p string) (string, error) {
	e, err := resolver.Resolve(ctx, p)
	if err != nil {
		return "", err
	}
	switch e.Kind {
	case tsgobridge.File:
		return p, nil
	case tsgobridge.Directory:
		return firstFile(ctx, resolver, path.Join(p, "index"))
	}
	return firstFile(ctx, resolver, p)
}

func firstFile(ctx context.Context, resolver tsgobridge.FileResolver, stem string) (string, error) {
	for _, ext := range probeExtensions {
		e, err := resolver.Resolve(ctx, stem+ext)
		if err != nil {
			return "", err
		}
		if e.Kind == tsgobridge.File {
			return stem + ext, nil
		}
	}
	return "", nil
}

// ReactGlobalPlugin replaces imports of "react" with a module exporting the
// global variable global, for bundles that run next to a preloaded React.
// An empty global means DefaultReactGlobal.
func ReactGlobalPlugin(global string) Plugin {
	if global == "" {
		global = DefaultReactGlobal
	}
	return Plugin{
		Name: "react-global-transform",
		Setup: func(b PluginBuild) error {
			b.OnResolve(OnResolveOptions{Filter: `^react$`}, func(context.Context, OnResolveArgs) (*OnResolveResult, error) {
				return &OnResolveResult{Path: Ptr("react"), Namespace: Ptr(reactGlobalNamespace)}, nil
			})
			b.OnLoad(OnLoadOptions{Filter: ".*", Namespace: reactGlobalNamespace}, func(context.Context, OnLoadArgs) (*OnLoadResult, error) {
				return &OnLoadResult{Contents: Ptr("module.exports = " + global), Loader: LoaderJS}, nil
			})
			return nil
		},
	}
}
