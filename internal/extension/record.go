package extension

// RegistrationRecord is the persisted state for one extension ID. Exactly
// one record exists per discovered ID, created lazily on first discovery
// and never deleted by the manager.
type RegistrationRecord struct {
	ID        string
	Name      string
	Enabled   bool
	Installed bool

	// Settings is the opaque serialized key/value blob managed through
	// the Settings type. The manager never interprets it.
	Settings []byte
}

// RegistrationRepository is the persistence collaborator for registration
// records.
type RegistrationRepository interface {
	// FindAll returns every stored registration record.
	FindAll() ([]*RegistrationRecord, error)

	// FindByID returns the record for the given extension ID, or a
	// RegistrationNotFoundError when none exists.
	FindByID(id string) (*RegistrationRecord, error)

	// Create inserts a fresh record for the ID with enabled and
	// installed both false and an empty settings blob.
	Create(id, name string) (*RegistrationRecord, error)

	// Save persists the record, replacing all stored fields.
	Save(rec *RegistrationRecord) error

	// Close releases any resources held by the repository.
	Close() error
}
