package artifact

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/modrac/pkgeval/internal/model"
)

// ManifestName is the version manifest file expected inside the depot
// directory.
const ManifestName = "Versions.toml"

// Manifest maps runtime versions to their artifact specs.
type Manifest map[string]model.VersionSpec

// LoadManifest parses the TOML version manifest at path and validates that
// every entry carries a checksum and exactly one artifact source.
func LoadManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading version manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parsing version manifest: %w", err)
	}

	for version, spec := range m {
		if spec.SHA == "" {
			return nil, fmt.Errorf("version %s has no sha", version)
		}
		if (spec.URL == "") == (spec.File == "") {
			return nil, fmt.Errorf("version %s needs exactly one of url or file", version)
		}
		spec.Version = version
		m[version] = spec
	}
	return m, nil
}
