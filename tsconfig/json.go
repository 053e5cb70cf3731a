package tsconfig

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/wippyai/tsgo-bridge/errors"
)

// JSON renders c as tsconfig.json text: keys sorted at every level,
// two-space indentation, unset options omitted.
func (c *Config) JSON() ([]byte, error) {
	tree, err := c.tree()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(tree, "", "  ")
}

// tree converts c into generic maps so that every level serialises sorted.
func (c *Config) tree() (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal tsconfig: %w", err)
	}
	return decodeTree(raw)
}

func decodeTree(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}

// Parse reads tsconfig.json text. Comments and trailing commas are accepted,
// as tsc accepts them.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(StripJSONC(data), &c); err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
			Cause(err).
			Detail("parse tsconfig").
			Build()
	}
	return &c, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	raw, err := json.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("tsconfig: clone: %v", err))
	}
	var out Config
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("tsconfig: clone: %v", err))
	}
	return &out
}

// Extend applies c on top of base the way "extends" does: compilerOptions
// merge option by option, every other top-level key in c replaces base's.
// References are never inherited. The result has no Extends.
func (c *Config) Extend(base *Config) (*Config, error) {
	baseTree, err := base.tree()
	if err != nil {
		return nil, err
	}
	childTree, err := c.tree()
	if err != nil {
		return nil, err
	}
	delete(baseTree, "references")

	for k, v := range childTree {
		if k != "compilerOptions" {
			baseTree[k] = v
			continue
		}
		merged, _ := baseTree[k].(map[string]any)
		if merged == nil {
			merged = map[string]any{}
		}
		for ok, ov := range v.(map[string]any) {
			merged[ok] = ov
		}
		baseTree[k] = merged
	}
	delete(baseTree, "extends")

	raw, err := json.Marshal(baseTree)
	if err != nil {
		return nil, err
	}
	var out Config
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate checks enum-valued options and rewrites them to canonical
// spelling. Unknown values are configuration errors.
func (c *Config) Validate() error {
	o := c.CompilerOptions
	if o == nil {
		return nil
	}
	if err := canonical(o.Target, "target"); err != nil {
		return err
	}
	if err := canonical(o.Module, "module"); err != nil {
		return err
	}
	if err := canonical(o.ModuleResolution, "moduleResolution"); err != nil {
		return err
	}
	if err := canonical(o.JSX, "jsx"); err != nil {
		return err
	}
	if err := canonical(o.NewLine, "newLine"); err != nil {
		return err
	}
	return canonical(o.ImportsNotUsedAsValues, "importsNotUsedAsValues")
}

type enum[T any] interface {
	~string
	Canonical() (T, bool)
}

func canonical[T enum[T]](v *T, option string) error {
	if v == nil {
		return nil
	}
	c, ok := (*v).Canonical()
	if !ok {
		return errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
			Path("compilerOptions", option).
			Value(string(*v)).
			Detail("unknown %s %q", option, string(*v)).
			Build()
	}
	*v = c
	return nil
}

// StripJSONC removes comments and trailing commas, leaving strings intact.
func StripJSONC(data []byte) []byte {
	return stripTrailingCommas(stripComments(data))
}

// scanJSON calls visit for every byte outside string literals and copies
// string literals through unchanged.
func scanJSON(data []byte, visit func(out []byte, i int) ([]byte, int)) []byte {
	out := make([]byte, 0, len(data))
	inString := false
	for i := 0; i < len(data); i++ {
		ch := data[i]
		if inString {
			out = append(out, ch)
			switch ch {
			case '\\':
				if i+1 < len(data) {
					i++
					out = append(out, data[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			out = append(out, ch)
			continue
		}
		out, i = visit(out, i)
	}
	return out
}

func stripComments(data []byte) []byte {
	return scanJSON(data, func(out []byte, i int) ([]byte, int) {
		switch {
		case data[i] == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
			return append(out, '\n'), i
		case data[i] == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
				i++
			}
			return append(out, ' '), i + 1
		}
		return append(out, data[i]), i
	})
}

func stripTrailingCommas(data []byte) []byte {
	return scanJSON(data, func(out []byte, i int) ([]byte, int) {
		if data[i] != ',' {
			return append(out, data[i]), i
		}
		j := i + 1
		for j < len(data) && isSpace(data[j]) {
			j++
		}
		if j < len(data) && (data[j] == '}' || data[j] == ']') {
			return out, i
		}
		return append(out, ','), i
	})
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
