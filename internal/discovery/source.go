package discovery

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/zjrosen/plugboard/internal/extension"
	"github.com/zjrosen/plugboard/internal/flags"
	"github.com/zjrosen/plugboard/internal/log"
)

// DirSource discovers extension packages by scanning a root directory
// for subdirectories containing an extension.yaml manifest. Each
// Entries call rescans, so additions and removals between calls are
// reflected.
type DirSource struct {
	root      string
	factories *FactoryRegistry
	flags     *flags.Registry
}

// NewDirSource creates a source scanning root, pairing manifests with
// factories from the registry. A nil feature-flag registry leaves every
// flag off.
func NewDirSource(root string, factories *FactoryRegistry, featureFlags *flags.Registry) *DirSource {
	return &DirSource{root: root, factories: factories, flags: featureFlags}
}

// Ensure DirSource implements extension.DiscoverySource.
var _ extension.DiscoverySource = (*DirSource)(nil)

// Entries scans the root for extension packages. A missing root yields
// no entries rather than an error, so hosts can start before any
// extension is installed. Unparseable manifests and manifests without a
// registered factory are skipped with a warning, unless the
// strict_manifests flag is on, in which case a bad manifest fails the
// whole pass.
func (s *DirSource) Entries(ctx context.Context) ([]extension.Entry, error) {
	dirs, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []extension.Entry
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !dir.IsDir() {
			continue
		}

		packageDir := filepath.Join(s.root, dir.Name())
		manifestPath := filepath.Join(packageDir, ManifestFileName)
		if _, err := os.Stat(manifestPath); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			if s.flags.Enabled(flags.FlagStrictManifests) {
				return nil, err
			}
			log.ErrorErr(log.CatDiscover, "skipping package with bad manifest", err, "dir", dir.Name())
			continue
		}

		factory, ok := s.factories.Lookup(manifest.ID)
		if !ok {
			log.Warn(log.CatDiscover, "no factory registered for manifest", "id", manifest.ID)
			continue
		}

		entries = append(entries, extension.Entry{
			Seed:    manifest.Seed(packageDir),
			Factory: factory,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Seed.ID < entries[j].Seed.ID
	})

	log.Debug(log.CatDiscover, "discovery pass complete", "root", s.root, "found", len(entries))
	return entries, nil
}

// StaticSource serves a fixed, swappable set of entries. Tests and
// embedded hosts use it instead of a directory scan.
type StaticSource struct {
	mu      sync.RWMutex
	entries []extension.Entry
}

// NewStaticSource creates a source serving the given entries.
func NewStaticSource(entries ...extension.Entry) *StaticSource {
	return &StaticSource{entries: entries}
}

var _ extension.DiscoverySource = (*StaticSource)(nil)

// Entries returns the current entry set.
func (s *StaticSource) Entries(ctx context.Context) ([]extension.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]extension.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// SetEntries replaces the entry set served by subsequent calls.
func (s *StaticSource) SetEntries(entries ...extension.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
}
