package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
id: com.example.reports
name: Reports
version: 1.2.0
summary: Adds reporting pages
author: Example Corp
author_email: dev@example.com
license: MIT
url: https://example.com/reports
requirements:
  - com.example.charts
configurable: true
metadata:
  tier: beta
assets: static
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "com.example.reports", m.ID)
	assert.Equal(t, "Reports", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, []string{"com.example.charts"}, m.Requirements)
	assert.True(t, m.Configurable)
	assert.Equal(t, "beta", m.Metadata["tier"])

	seed := m.Seed(dir)
	assert.Equal(t, filepath.Join(dir, "static"), seed.AssetsDir)
	assert.Equal(t, "com.example.reports", seed.ID)
}

func TestLoadManifestMinimal(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "id: minimal\nname: Minimal\nversion: 0.1.0\n")

	m, err := LoadManifest(path)
	require.NoError(t, err)

	seed := m.Seed(dir)
	assert.Empty(t, seed.AssetsDir, "no assets dir unless declared")
	assert.False(t, seed.Configurable)
}

func TestLoadManifestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing id", "name: X\nversion: 1.0.0\n", "id is required"},
		{"missing name", "id: x\nversion: 1.0.0\n", "name is required"},
		{"missing version", "id: x\nname: X\n", "version is required"},
		{"bad yaml", "id: [unclosed\n", "parsing manifest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.content)
			_, err := LoadManifest(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), ManifestFileName))
	require.Error(t, err)
}
