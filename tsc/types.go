package tsc

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Diagnostic categories.
const (
	CategoryError      = "error"
	CategoryWarning    = "warning"
	CategorySuggestion = "suggestion"
	CategoryMessage    = "message"
)

// Diagnostic is one compiler message. Line and Column are 1-based;
// both are 0 when File is nil.
type Diagnostic struct {
	File     *string
	Category string
	Message  string
	Code     int
	Line     int
	Column   int
	Length   int
}

// IsError reports whether d has error severity.
func (d Diagnostic) IsError() bool {
	return d.Category == CategoryError
}

// String formats d the way tsc prints it:
//
//	src/index.ts(3,5): error TS2307: Cannot find module './x'.
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.File != nil && *d.File != "" {
		b.WriteString(*d.File)
		if d.Line > 0 {
			fmt.Fprintf(&b, "(%d,%d)", d.Line, d.Column)
		}
		b.WriteString(": ")
	}
	b.WriteString(d.Category)
	if d.Code != 0 {
		fmt.Fprintf(&b, " TS%d", d.Code)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Source is a named file. Name is relative to the project's src directory
// for BuildInMemory input, and a base name in Result.CompiledFiles.
type Source struct {
	Name    string
	Content string
}

// Result is the outcome of a compiler run.
type Result struct {
	// WrittenFiles maps output path to content for every file the compiler emitted.
	WrittenFiles map[string]string
	// ConfigFile is the tsconfig the engine used.
	ConfigFile   string
	Diagnostics  []Diagnostic
	EmittedFiles []string
	// CompiledFiles is WrittenFiles keyed by base name, sorted by name.
	CompiledFiles []Source
	Success       bool
}

// Errors returns the error-severity diagnostics.
func (r *Result) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether the run failed or produced an error diagnostic.
func (r *Result) HasErrors() bool {
	return !r.Success || len(r.Errors()) > 0
}

func compiledFiles(written map[string]string) []Source {
	if len(written) == 0 {
		return nil
	}
	out := make([]Source, 0, len(written))
	for p, content := range written {
		out = append(out, Source{Name: path.Base(p), Content: content})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Options configures BuildFileSystem and BuildWithResolver.
type Options struct {
	// ConfigFile overrides the tsconfig.json found at the project path.
	ConfigFile string
	// PrintErrors makes the engine print diagnostics to its stderr.
	PrintErrors bool
}
