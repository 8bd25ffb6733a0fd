// Package registry reads the depot package registry, the source of
// evaluation jobs.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/modrac/pkgeval/internal/model"
)

// FileName is the registry file expected inside the depot directory.
const FileName = "Registry.toml"

type entry struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

type registryFile struct {
	Packages map[string]entry `toml:"packages"`
}

// Registry is the parsed package index.
type Registry struct {
	packages []model.Package
}

// Load parses the TOML registry at path. Entries are keyed by UUID; a key
// that is not a UUID or an entry without a name is an error.
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var f registryFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}

	packages := make([]model.Package, 0, len(f.Packages))
	for key, e := range f.Packages {
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("registry key %q is not a UUID: %w", key, err)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("registry entry %s has no name", key)
		}
		packages = append(packages, model.Package{
			Name: e.Name,
			UUID: id,
			Path: e.Path,
		})
	}
	// map iteration order is random, keep listings reproducible
	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Name < packages[j].Name
	})

	return &Registry{packages: packages}, nil
}

// Len returns the number of registered packages.
func (r *Registry) Len() int {
	return len(r.packages)
}

// List returns the registered packages. A non-nil filter restricts the
// result to the named packages; matched names are consumed from the filter
// and any name left over is warned about, non-fatally.
func (r *Registry) List(ctx context.Context, filter map[string]struct{}) []model.Package {
	if filter == nil {
		return append([]model.Package(nil), r.packages...)
	}

	var out []model.Package
	for _, p := range r.packages {
		if _, ok := filter[p.Name]; !ok {
			continue
		}
		delete(filter, p.Name)
		out = append(out, p)
	}
	for name := range filter {
		slog.WarnContext(ctx, "requested package not in registry", "package", name)
	}
	return out
}
