package extension

import "encoding/json"

// Settings is a buffered key/value view over a registration record's
// settings blob. Reads and writes stay in memory until Save flushes the
// whole map back through the repository.
//
// Save is a full replace, not a merge: two Settings racing on the same
// record will clobber each other, last writer wins.
type Settings struct {
	values map[string]any
	record *RegistrationRecord
	repo   RegistrationRepository
}

// NewSettings builds a settings view over the record and loads the stored
// blob immediately.
func NewSettings(record *RegistrationRecord, repo RegistrationRepository) *Settings {
	s := &Settings{
		values: make(map[string]any),
		record: record,
		repo:   repo,
	}
	s.Load()
	return s
}

// Load replaces the in-memory contents with the record's persisted blob.
// A corrupt or empty blob leaves the map empty; parse failures never
// propagate to the caller.
func (s *Settings) Load() {
	s.values = make(map[string]any)
	if len(s.record.Settings) == 0 {
		return
	}

	var parsed map[string]any
	if err := json.Unmarshal(s.record.Settings, &parsed); err != nil {
		return
	}
	s.values = parsed
}

// Save serializes the entire in-memory map into the record and persists
// it through the repository.
func (s *Settings) Save() error {
	blob, err := json.Marshal(s.values)
	if err != nil {
		return err
	}

	s.record.Settings = blob
	return s.repo.Save(s.record)
}

// Get returns the value for key and whether it was present.
func (s *Settings) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the value for key as a string, or def when the key is
// absent or not a string.
func (s *Settings) GetString(key, def string) string {
	if v, ok := s.values[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

// Set stores a value in memory. Nothing is persisted until Save.
func (s *Settings) Set(key string, value any) {
	s.values[key] = value
}

// Delete removes a key from the in-memory map.
func (s *Settings) Delete(key string) {
	delete(s.values, key)
}

// Len returns the number of buffered keys.
func (s *Settings) Len() int {
	return len(s.values)
}
