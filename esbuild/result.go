package esbuild

import (
	"fmt"
	"strings"
)

// Location points into a source file. Line is 1-based, Column 0-based.
type Location struct {
	File       string
	Namespace  string
	LineText   string
	Suggestion string
	Line       int
	Column     int
	Length     int
}

type Note struct {
	Location *Location
	Text     string
}

// Message is an error or warning reported by the bundler or a plugin.
type Message struct {
	// Detail is an arbitrary value attached by a plugin.
	Detail     any
	Location   *Location
	ID         string
	PluginName string
	Text       string
	Notes      []Note
}

// String formats m as "file:line:col: text", prefixed with the plugin name
// when a plugin reported it.
func (m Message) String() string {
	var b strings.Builder
	if m.Location != nil && m.Location.File != "" {
		fmt.Fprintf(&b, "%s:%d:%d: ", m.Location.File, m.Location.Line, m.Location.Column)
	}
	if m.PluginName != "" {
		fmt.Fprintf(&b, "[plugin %s] ", m.PluginName)
	}
	b.WriteString(m.Text)
	return b.String()
}

type OutputFile struct {
	Path     string
	Hash     string
	Contents []byte
}

// Text returns the file contents as a string.
func (f OutputFile) Text() string {
	return string(f.Contents)
}

// BuildResult is the outcome of a bundler run. A build with errors still
// returns a result; Errors lists what went wrong.
type BuildResult struct {
	// Metafile is nil unless BuildOptions.Metafile was set.
	Metafile    *string
	MangleCache map[string]any
	Errors      []Message
	Warnings    []Message
	OutputFiles []OutputFile
}

// HasErrors reports whether the build produced error messages.
func (r *BuildResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Output returns the output file whose path ends in suffix.
func (r *BuildResult) Output(suffix string) (OutputFile, bool) {
	for _, f := range r.OutputFiles {
		if strings.HasSuffix(f.Path, suffix) {
			return f, true
		}
	}
	return OutputFile{}, false
}

type TransformResult struct {
	MangleCache map[string]any
	Errors      []Message
	Warnings    []Message
	Code        []byte
	// Map is nil when no source map was requested.
	Map           []byte
	LegalComments []byte
}

func (r *TransformResult) HasErrors() bool {
	return len(r.Errors) > 0
}
