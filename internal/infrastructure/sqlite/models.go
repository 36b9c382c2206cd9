package sqlite

import "github.com/zjrosen/plugboard/internal/extension"

// RegistrationModel represents the database row for the registrations
// table.
type RegistrationModel struct {
	ID        string
	Name      string
	Enabled   bool
	Installed bool
	Settings  []byte
}

func toRegistrationModel(rec *extension.RegistrationRecord) *RegistrationModel {
	return &RegistrationModel{
		ID:        rec.ID,
		Name:      rec.Name,
		Enabled:   rec.Enabled,
		Installed: rec.Installed,
		Settings:  rec.Settings,
	}
}

func (m *RegistrationModel) toDomain() *extension.RegistrationRecord {
	return &extension.RegistrationRecord{
		ID:        m.ID,
		Name:      m.Name,
		Enabled:   m.Enabled,
		Installed: m.Installed,
		Settings:  m.Settings,
	}
}
