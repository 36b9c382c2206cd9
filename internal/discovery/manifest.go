// Package discovery locates extension packages on disk and turns their
// manifests into discovery entries for the lifecycle manager.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/plugboard/internal/extension"
)

// ManifestFileName is the per-package manifest file discovery looks for.
const ManifestFileName = "extension.yaml"

// Manifest is the YAML metadata an extension package ships alongside its
// code.
type Manifest struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Version      string            `yaml:"version"`
	Summary      string            `yaml:"summary"`
	Author       string            `yaml:"author"`
	AuthorEmail  string            `yaml:"author_email"`
	License      string            `yaml:"license"`
	URL          string            `yaml:"url"`
	Requirements []string          `yaml:"requirements"`
	Configurable bool              `yaml:"configurable"`
	Metadata     map[string]string `yaml:"metadata"`

	// Assets is the package-relative directory of static assets, if any.
	Assets string `yaml:"assets"`
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from directory scan
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks the required manifest fields.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	return nil
}

// Seed converts the manifest into a descriptor seed, resolving the asset
// directory relative to the package directory.
func (m *Manifest) Seed(packageDir string) extension.Seed {
	seed := extension.Seed{
		ID:           m.ID,
		Name:         m.Name,
		Version:      m.Version,
		Summary:      m.Summary,
		Author:       m.Author,
		AuthorEmail:  m.AuthorEmail,
		License:      m.License,
		URL:          m.URL,
		Metadata:     m.Metadata,
		Requirements: m.Requirements,
		Configurable: m.Configurable,
	}
	if m.Assets != "" {
		seed.AssetsDir = filepath.Join(packageDir, m.Assets)
	}
	return seed
}
