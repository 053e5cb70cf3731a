package inproc

import "testing"

func TestSplitLiteral(t *testing.T) {
	tests := []struct {
		in, head, tail string
	}{
		{"/project/src", "/project/src", ""},
		{"/project/src/**/*", "/project/src", "/**/*"},
		{"/project/src/*.ts", "/project/src", "/*.ts"},
		{"/project/a?/b", "/project", "/a?/b"},
	}
	for _, tt := range tests {
		head, tail := splitLiteral(tt.in)
		if head != tt.head || tail != tt.tail {
			t.Errorf("splitLiteral(%q) = %q, %q; want %q, %q", tt.in, head, tail, tt.head, tt.tail)
		}
	}
}

func TestExpandGlobstar(t *testing.T) {
	got := expandGlobstar("/**/x/**/*.ts")
	want := map[string]bool{
		"/**/x/**/*.ts": true,
		"/x/**/*.ts":    true,
		"/**/x/*.ts":    true,
		"/x/*.ts":       true,
	}
	if len(got) != len(want) {
		t.Fatalf("expandGlobstar = %v, want %d variants", got, len(want))
	}
	for _, g := range got {
		if !want[g] {
			t.Errorf("unexpected variant %q", g)
		}
	}
}

func TestPatternSet(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"globstar nested", []string{"src/**/*"}, "/p/src/a/b/c.ts", true},
		{"globstar direct child", []string{"src/**/*"}, "/p/src/c.ts", true},
		{"globstar other dir", []string{"src/**/*"}, "/p/lib/c.ts", false},
		{"extension", []string{"src/**/*.ts"}, "/p/src/a.tsx", false},
		{"star stays in segment", []string{"src/*.ts"}, "/p/src/a/b.ts", false},
		{"literal directory", []string{"node_modules"}, "/p/node_modules/x/index.d.ts", true},
		{"literal exact", []string{"node_modules"}, "/p/node_modules", true},
		{"literal prefix only", []string{"node_modules"}, "/p/node_modules2", false},
		{"absolute pattern", []string{"/other/**/*"}, "/other/x.ts", true},
		{"parent relative", []string{"../shared/*.ts"}, "/shared/util.ts", true},
		{"question mark", []string{"src/?.ts"}, "/p/src/a.ts", true},
		{"any of several", []string{"a", "b/*.ts"}, "/p/b/x.ts", true},
		{"brackets are literal", []string{"src/*/[x]/*.ts"}, "/p/src/a/[x]/b.ts", true},
		{"brackets are not a class", []string{"src/*/[x]/*.ts"}, "/p/src/a/x/b.ts", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := compilePatterns("/p", tt.patterns)
			if err != nil {
				t.Fatalf("compilePatterns: %v", err)
			}
			if got := s.match(tt.path); got != tt.want {
				t.Errorf("match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPatternSet_QuotesLiteralHead(t *testing.T) {
	s, err := compilePatterns("/tmp/[build]", []string{"src/*.ts"})
	if err != nil {
		t.Fatalf("compilePatterns: %v", err)
	}
	if !s.match("/tmp/[build]/src/a.ts") {
		t.Error("literal brackets in base should match themselves")
	}
}

func TestPatternSet_Nil(t *testing.T) {
	var s *patternSet
	if s.match("/anything") {
		t.Error("nil set matched")
	}
}
