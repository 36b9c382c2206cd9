package extension

// Descriptor holds the static and derived metadata for one discovered
// extension package. One descriptor exists per known extension ID; it is
// rebuilt on every discovery pass and mutated by the manager as the
// extension moves between states.
type Descriptor struct {
	// ID is the stable identifier assigned in the extension manifest.
	// It is the primary key for registration records, hook ownership
	// and dependency references.
	ID string

	Name        string
	Version     string
	Summary     string
	Author      string
	AuthorEmail string
	License     string
	URL         string

	// Metadata carries arbitrary manifest key/value pairs the core does
	// not interpret.
	Metadata map[string]string

	// Requirements lists the IDs of extensions that must be enabled
	// before this one.
	Requirements []string

	// Configurable extensions get admin/config routes mounted while
	// enabled.
	Configurable bool

	// AssetsDir is the source directory of static assets shipped with
	// the package. Empty when the extension ships none.
	AssetsDir string

	// StaticPath is where the asset tree is installed under the host's
	// static root. Computed by the manager.
	StaticPath string

	// Enabled and Installed mirror the registration record. They are
	// kept current by the manager so callers can inspect state without
	// touching persistence.
	Enabled   bool
	Installed bool

	// ResolvedRequirements is filled in after a full discovery pass,
	// since a requirement may be discovered after its dependent.
	// Requirements that never resolve stay absent.
	ResolvedRequirements []*Descriptor
}

func descriptorFromSeed(seed Seed) *Descriptor {
	return &Descriptor{
		ID:           seed.ID,
		Name:         seed.Name,
		Version:      seed.Version,
		Summary:      seed.Summary,
		Author:       seed.Author,
		AuthorEmail:  seed.AuthorEmail,
		License:      seed.License,
		URL:          seed.URL,
		Metadata:     seed.Metadata,
		Requirements: seed.Requirements,
		Configurable: seed.Configurable,
		AssetsDir:    seed.AssetsDir,
	}
}

// HasRequirement reports whether id appears in the descriptor's declared
// requirements.
func (d *Descriptor) HasRequirement(id string) bool {
	for _, req := range d.Requirements {
		if req == id {
			return true
		}
	}
	return false
}
