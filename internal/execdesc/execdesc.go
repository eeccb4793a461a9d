// Package execdesc assembles the final executable-invocation descriptor:
// the resolved executable path, argument list, info artifact, and shared
// library dependencies. It never invokes the executable; launching is the
// external collaborator's responsibility.
package execdesc

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c-hydro/shybox/internal/expand"
	"github.com/c-hydro/shybox/internal/fsutil"
	"github.com/c-hydro/shybox/pkg/descriptor"
	"github.com/c-hydro/shybox/pkg/model"
)

// Builder produces execution descriptors for one run.
type Builder struct {
	logger *slog.Logger
	update bool
}

// New creates a Builder. update mirrors the descriptor's update_execution
// flag: when false a previously written .info descriptor is returned
// unchanged.
func New(logger *slog.Logger, update bool) *Builder {
	return &Builder{logger: logger.With("component", "execdesc"), update: update}
}

// Build expands the executable block against the resolved variables and the
// iteration timestamp and emits the invocation descriptor, persisting it to
// the info path as JSON.
func (b *Builder) Build(spec *descriptor.ExecutableSpec, vars map[string]any, ts time.Time) (*model.ExecutionDescriptor, error) {
	infoPath, err := expandPath(spec.Info.Location, vars, ts)
	if err != nil {
		return nil, err
	}

	if !b.update && infoPath != "" {
		if cached, ok := b.load(infoPath); ok {
			b.logger.Debug("execution info exists, update disabled, reusing", "path", infoPath)
			cached.Cached = true
			return cached, nil
		}
	}

	execPath, err := expandPath(spec.Location, vars, ts)
	if err != nil {
		return nil, err
	}
	libraryPath, err := expandPath(spec.Library.Location, vars, ts)
	if err != nil {
		return nil, err
	}
	args, err := expand.Braces(spec.Arguments, vars)
	if err != nil {
		return nil, err
	}

	deps := make([]string, 0, len(spec.Library.Dependencies))
	for _, dep := range spec.Library.Dependencies {
		p, err := expandPath(dep, vars, ts)
		if err != nil {
			return nil, err
		}
		deps = append(deps, p)
	}

	desc := &model.ExecutionDescriptor{
		ExecutablePath:  execPath,
		ArgumentList:    strings.Fields(args),
		InfoPath:        infoPath,
		LibraryPath:     libraryPath,
		DependencyPaths: deps,
		LdLibraryPath:   ldLibraryPath(deps),
	}

	if infoPath != "" {
		if err := b.save(infoPath, desc); err != nil {
			return nil, err
		}
	}
	b.logger.Debug("execution descriptor built",
		"executable", execPath, "args", len(desc.ArgumentList), "deps", len(deps))
	return desc, nil
}

// load reads a previously saved descriptor; a missing or corrupt file just
// means there is nothing to reuse.
func (b *Builder) load(path string) (*model.ExecutionDescriptor, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var desc model.ExecutionDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		b.logger.Warn("unreadable execution info, rebuilding", "path", path, "error", err)
		return nil, false
	}
	return &desc, true
}

func (b *Builder) save(path string, desc *model.ExecutionDescriptor) error {
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return model.ErrIO(path, err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return model.ErrIO(path, err)
	}
	return nil
}

// ldLibraryPath assembles the LD_LIBRARY_PATH value for the launching
// collaborator from the dependency directories, deduplicated in order.
func ldLibraryPath(deps []string) string {
	var dirs []string
	seen := map[string]bool{}
	for _, dep := range deps {
		dir := filepath.Dir(dep)
		if dir == "." || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return strings.Join(dirs, ":")
}

func expandPath(path string, vars map[string]any, ts time.Time) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := expand.Braces(path, vars)
	if err != nil {
		return "", err
	}
	return expand.DateTokens(expanded, ts), nil
}
