package inproc

import (
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// patternSet matches absolute slash paths against tsconfig include or
// exclude patterns.
type patternSet struct {
	globs []glob.Glob
}

// compilePatterns resolves patterns against base. A "/**/" segment also
// matches no directory at all, and a pattern without wildcards matches the
// path itself and everything below it.
func compilePatterns(base string, patterns []string) (*patternSet, error) {
	s := &patternSet{}
	for _, p := range patterns {
		abs := p
		if !path.IsAbs(abs) {
			abs = path.Join(base, p)
		} else {
			abs = path.Clean(abs)
		}
		head, tail := splitLiteral(abs)
		var exprs []string
		if tail == "" {
			q := glob.QuoteMeta(head)
			exprs = []string{q, q + "/**"}
		} else {
			for _, t := range expandGlobstar(quoteBrackets(tail)) {
				exprs = append(exprs, glob.QuoteMeta(head)+t)
			}
		}
		for _, e := range exprs {
			g, err := glob.Compile(e, '/')
			if err != nil {
				return nil, err
			}
			s.globs = append(s.globs, g)
		}
	}
	return s, nil
}

// splitLiteral splits p at the first path segment holding a wildcard.
// Only "*" and "?" are wildcards in tsconfig patterns.
func splitLiteral(p string) (head, tail string) {
	i := strings.IndexAny(p, "*?")
	if i < 0 {
		return p, ""
	}
	cut := strings.LastIndexByte(p[:i], '/')
	return p[:cut], p[cut:]
}

// quoteBrackets escapes the glob syntax that tsconfig patterns treat as
// plain characters.
func quoteBrackets(p string) string {
	var b strings.Builder
	for _, r := range p {
		if strings.ContainsRune(`[]{}!\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// expandGlobstar returns p with every combination of its "/**/" segments
// either kept or collapsed to "/".
func expandGlobstar(p string) []string {
	i := strings.Index(p, "/**/")
	if i < 0 {
		return []string{p}
	}
	var out []string
	for _, rest := range expandGlobstar(p[i+3:]) {
		out = append(out, p[:i+3]+rest, p[:i]+rest)
	}
	return out
}

func (s *patternSet) match(p string) bool {
	if s == nil {
		return false
	}
	for _, g := range s.globs {
		if g.Match(p) {
			return true
		}
	}
	return false
}
