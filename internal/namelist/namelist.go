// Package namelist produces the model namelist file from a template,
// applying the descriptor's by_value field assignments and the conditional
// by_pattern tag completions. Writes are atomic (temp file + rename) so a
// concurrent reader never observes a partial namelist.
package namelist

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/c-hydro/shybox/internal/expand"
	"github.com/c-hydro/shybox/internal/fsutil"
	"github.com/c-hydro/shybox/pkg/descriptor"
	"github.com/c-hydro/shybox/pkg/model"
)

// assignmentPattern matches a namelist "key = value" line, preserving
// indentation and any trailing comma or comment.
var assignmentPattern = regexp.MustCompile(`^(\s*)([A-Za-z][A-Za-z0-9_()%]*)(\s*=\s*)(.*?)(\s*,?\s*)$`)

// Generator writes namelist files for one run.
type Generator struct {
	logger *slog.Logger
	update bool
}

// New creates a Generator. update mirrors the descriptor's update_namelist
// flag: when false an existing target file is reused untouched.
func New(logger *slog.Logger, update bool) *Generator {
	return &Generator{logger: logger.With("component", "namelist"), update: update}
}

// Result reports where the namelist landed and whether generation was a
// legitimate idempotent no-op.
type Result struct {
	Path    string `json:"path"`
	Skipped bool   `json:"skipped"`
}

// Generate resolves the template and target paths against vars and the
// iteration timestamp, applies both substitution modes, and writes the
// result. A pre-existing target with update disabled is reused as-is.
func (g *Generator) Generate(spec *descriptor.NamelistSpec, vars map[string]any, ts time.Time) (*Result, error) {
	target, err := expandPath(spec.File.Project, vars, ts)
	if err != nil {
		return nil, err
	}
	templatePath, err := expandPath(spec.File.Template, vars, ts)
	if err != nil {
		return nil, err
	}

	if !g.update {
		if _, statErr := os.Stat(target); statErr == nil {
			g.logger.Debug("namelist exists, update disabled, reusing", "path", target)
			return &Result{Path: target, Skipped: true}, nil
		}
	}

	data, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrTemplateNotFound(templatePath)
		}
		return nil, model.ErrIO(templatePath, err)
	}

	text, err := g.apply(string(data), spec.Fields, vars, ts)
	if err != nil {
		return nil, err
	}

	if err := fsutil.WriteFileAtomic(target, []byte(text), 0o644); err != nil {
		return nil, model.ErrIO(target, err)
	}
	g.logger.Debug("namelist written", "path", target)
	return &Result{Path: target}, nil
}

// apply runs the by_value pass then the by_pattern pass over the template
// text, line by line.
func (g *Generator) apply(text string, fields descriptor.NamelistFields, vars map[string]any, ts time.Time) (string, error) {
	byValue, err := g.renderByValue(fields.ByValue, vars, ts)
	if err != nil {
		return "", err
	}
	patterns, err := g.activePatterns(fields.ByPattern, vars)
	if err != nil {
		return "", err
	}

	applied := make(map[string]bool, len(byValue))
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := assignmentPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent, key, sep, old, tail := m[1], m[2], m[3], m[4], m[5]

		if v, ok := byValue[key]; ok {
			lines[i] = indent + key + sep + renderValue(v, old) + tail
			applied[key] = true
			continue
		}
		// Longest tag wins when patterns overlap textually.
		for _, p := range patterns {
			if strings.Contains(key, p.Template) {
				lines[i] = indent + key + sep + renderValue(expand.Stringify(p.value), old) + tail
				break
			}
		}
	}

	// A by_value field absent from the template is a soft warning: the
	// namelist format is externally defined and may omit optional fields.
	for _, key := range sortedKeys(byValue) {
		if !applied[key] {
			g.logger.Warn("by_value field not present in template", "field", key)
		}
	}

	return strings.Join(lines, "\n"), nil
}

// renderByValue expands every by_value entry: brace pass, then date tokens
// for the path and date fields that carry them.
func (g *Generator) renderByValue(byValue map[string]any, vars map[string]any, ts time.Time) (map[string]string, error) {
	out := make(map[string]string, len(byValue))
	for key, raw := range byValue {
		s, ok := raw.(string)
		if !ok {
			out[key] = expand.Stringify(raw)
			continue
		}
		expanded, err := expand.Braces(s, vars)
		if err != nil {
			return nil, fmt.Errorf("by_value %s: %w", key, err)
		}
		out[key] = expand.DateTokens(expanded, ts)
	}
	return out, nil
}

type activePattern struct {
	descriptor.Pattern
	value any
}

// activePatterns filters the active entries, brace-expands their values,
// and orders them longest tag first (declaration order breaking ties) so a
// tag that is a substring of another never corrupts the longer match.
func (g *Generator) activePatterns(patterns descriptor.PatternList, vars map[string]any) ([]activePattern, error) {
	var out []activePattern
	for _, p := range patterns {
		if !p.Active {
			continue
		}
		value := p.Value
		if s, ok := value.(string); ok {
			expanded, err := expand.Braces(s, vars)
			if err != nil {
				return nil, fmt.Errorf("by_pattern %s: %w", p.Name, err)
			}
			value = expanded
		}
		out = append(out, activePattern{Pattern: p, value: value})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Template) > len(out[j].Template)
	})
	return out, nil
}

// renderValue keeps the quoting style of the value being replaced: quoted
// stays quoted, bare stays bare.
func renderValue(v, old string) string {
	old = strings.TrimSpace(old)
	if len(old) >= 2 {
		if q := old[0]; (q == '\'' || q == '"') && old[len(old)-1] == q {
			return string(q) + v + string(q)
		}
	}
	return v
}

func expandPath(path string, vars map[string]any, ts time.Time) (string, error) {
	expanded, err := expand.Braces(path, vars)
	if err != nil {
		return "", err
	}
	return expand.DateTokens(expanded, ts), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
