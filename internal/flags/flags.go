// Package flags provides read-only feature flags sourced from the host
// configuration's flags map. Unknown flags read as disabled, so shipping
// a flag check before the flag exists in anyone's config is safe.
package flags

import (
	"maps"
	"sort"

	"github.com/zjrosen/plugboard/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagStrictManifests makes discovery fail on a broken extension.yaml
	// instead of skipping the package with a warning.
	FlagStrictManifests = "strict_manifests"
)

// Registry holds feature flag state. Read-only after construction; a nil
// registry behaves as all-flags-off, so callers never need a nil check.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from the config's flags map. A nil map yields an
// empty registry with every flag disabled.
func New(flags map[string]bool) *Registry {
	copied := make(map[string]bool, len(flags))
	maps.Copy(copied, flags)
	r := &Registry{flags: copied}
	if enabled := r.EnabledNames(); len(enabled) > 0 {
		log.Info(log.CatConfig, "feature flags active", "flags", enabled)
	}
	return r
}

// Enabled reports whether the named flag is on. Unknown flags and nil
// registries read as off.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// EnabledNames returns the names of every flag currently on, sorted.
func (r *Registry) EnabledNames() []string {
	if r == nil {
		return nil
	}
	var out []string
	for name, on := range r.flags {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// All returns a copy of every known flag and its state.
func (r *Registry) All() map[string]bool {
	result := make(map[string]bool)
	if r != nil {
		maps.Copy(result, r.flags)
	}
	return result
}
