// Package resolver merges variable values from the descriptor's competing
// sources per the declared priority order and evaluates the implicit
// dependency graph formed by brace references between variables. The merge
// is pure: the externally injected environment mapping is passed in at
// construction and never read ad hoc mid-pipeline.
package resolver

import (
	"log/slog"
	"sort"

	"github.com/c-hydro/shybox/internal/expand"
	"github.com/c-hydro/shybox/internal/typeformat"
	"github.com/c-hydro/shybox/pkg/descriptor"
	"github.com/c-hydro/shybox/pkg/model"
)

// EnvironmentSource is the lut source whose string values name process
// environment keys resolvable through the injected override mapping.
const EnvironmentSource = "environment"

// Resolver produces one flat, fully formatted variable mapping per timestamp
// context.
type Resolver struct {
	vars     descriptor.Variables
	priority []string
	env      map[string]string
	logger   *slog.Logger
}

// Option configures optional Resolver dependencies.
type Option func(*Resolver)

// WithEnvironment injects the process environment (or any key-value
// override source) consulted by the environment lut entries.
func WithEnvironment(env map[string]string) Option {
	return func(r *Resolver) {
		r.env = env
	}
}

// New creates a Resolver for the given variable declarations and priority
// order (highest first).
func New(vars descriptor.Variables, priority []string, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		vars:     vars,
		priority: priority,
		env:      map[string]string{},
		logger:   logger.With("component", "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve merges all declared variables for one timestamp context and
// evaluates brace references. context carries the per-timestamp values
// (time_run, time_start, ...) and overrides same-named lut entries: the
// iteration timestamp is authoritative over any literal the document holds.
//
// The result is single-assignment: built fresh per timestamp, never mutated
// after return.
func (r *Resolver) Resolve(context map[string]any) (map[string]any, error) {
	merged, err := r.merge(context)
	if err != nil {
		return nil, err
	}
	if err := r.evaluate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// merge applies the priority order: for each declared name the first source
// defining a non-null value wins. Brace placeholders stay literal here.
func (r *Resolver) merge(context map[string]any) (map[string]any, error) {
	names := r.declaredNames()

	merged := make(map[string]any, len(names)+len(context))
	for _, name := range names {
		if v, ok := context[name]; ok {
			merged[name] = v
			continue
		}
		var value any
		for _, source := range r.priority {
			raw, ok := r.vars.Lut[source][name]
			if !ok || raw == nil {
				continue
			}
			if source == EnvironmentSource {
				raw = r.fromEnvironment(raw)
			}
			value = raw
			break
		}
		if value == nil {
			return nil, model.ErrUnresolvedVariable(name)
		}
		merged[name] = value
	}
	for name, v := range context {
		if _, ok := merged[name]; !ok {
			merged[name] = v
		}
	}
	return merged, nil
}

// fromEnvironment resolves an environment lut value: a string naming a key
// of the injected mapping yields that key's value, anything else stands as
// a literal.
func (r *Resolver) fromEnvironment(raw any) any {
	name, ok := raw.(string)
	if !ok {
		return raw
	}
	if v, ok := r.env[name]; ok {
		return v
	}
	return raw
}

// evaluate resolves brace references between variables in topological order
// (Kahn), then applies each variable's declared format. Cycles fail rather
// than loop.
func (r *Resolver) evaluate(merged map[string]any) error {
	// deps[a] = variables that a references; indegree counts unresolved refs.
	deps := make(map[string][]string, len(merged))
	dependents := make(map[string][]string, len(merged))
	inDegree := make(map[string]int, len(merged))

	for name, value := range merged {
		inDegree[name] = 0
		s, ok := value.(string)
		if !ok {
			continue
		}
		for _, ref := range expand.References(s) {
			if ref == name {
				return model.ErrCyclicReference([]string{name, name})
			}
			if _, known := merged[ref]; !known {
				return model.ErrUnknownPlaceholder(ref)
			}
			deps[name] = append(deps[name], ref)
			dependents[ref] = append(dependents[ref], name)
			inDegree[name]++
		}
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	resolved := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		resolved++

		if err := r.finalize(name, merged); err != nil {
			return err
		}

		next := dependents[name]
		sort.Strings(next)
		for _, dep := range next {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
		sort.Strings(queue)
	}

	if resolved != len(merged) {
		var cycle []string
		for name, deg := range inDegree {
			if deg > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return model.ErrCyclicReference(cycle)
	}
	return nil
}

// finalize expands any remaining braces in the variable's value and coerces
// it to the declared format.
func (r *Resolver) finalize(name string, merged map[string]any) error {
	value := merged[name]
	if s, ok := value.(string); ok {
		expanded, err := expand.Braces(s, merged)
		if err != nil {
			return err
		}
		value = expanded
	}
	formatted, err := typeformat.Format(name, value, r.vars.Format[name], r.vars.Template[name])
	if err != nil {
		return err
	}
	merged[name] = formatted
	return nil
}

// declaredNames returns the union of all lut and format keys, sorted for
// deterministic resolution and reporting.
func (r *Resolver) declaredNames() []string {
	seen := map[string]bool{}
	for _, source := range r.vars.Lut {
		for name := range source {
			seen[name] = true
		}
	}
	for name := range r.vars.Format {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
