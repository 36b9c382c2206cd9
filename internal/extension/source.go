package extension

import "context"

// Seed is the manifest-derived portion of a descriptor: everything known
// about an extension package before the manager computes install state.
type Seed struct {
	ID           string
	Name         string
	Version      string
	Summary      string
	Author       string
	AuthorEmail  string
	License      string
	URL          string
	Metadata     map[string]string
	Requirements []string
	Configurable bool
	AssetsDir    string
}

// Entry pairs a descriptor seed with the factory that constructs the
// extension. The factory is opaque to discovery; the manager invokes it
// on enable.
type Entry struct {
	Seed    Seed
	Factory Factory
}

// DiscoverySource enumerates the extension packages currently available.
// Entries must be callable repeatedly and reflect additions and removals
// since the previous call; the manager reconciles its known set against
// each pass.
type DiscoverySource interface {
	Entries(ctx context.Context) ([]Entry, error)
}
