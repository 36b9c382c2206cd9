package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/plugboard/internal/extension"
)

// registrationColumns is the list of columns to select for registration
// queries.
const registrationColumns = `id, name, enabled, installed, settings`

// registrationRepository implements extension.RegistrationRepository
// using SQLite.
type registrationRepository struct {
	db *DB
}

// NewRegistrationRepository creates a registration repository over the
// given database.
func NewRegistrationRepository(db *DB) extension.RegistrationRepository {
	return &registrationRepository{db: db}
}

// Ensure registrationRepository implements extension.RegistrationRepository.
var _ extension.RegistrationRepository = (*registrationRepository)(nil)

func scanRegistration(scanner interface{ Scan(...any) error }) (*RegistrationModel, error) {
	var model RegistrationModel
	err := scanner.Scan(&model.ID, &model.Name, &model.Enabled, &model.Installed, &model.Settings)
	return &model, err
}

// FindAll returns every stored registration record, ordered by ID.
func (r *registrationRepository) FindAll() ([]*extension.RegistrationRecord, error) {
	rows, err := r.db.conn.Query(`SELECT ` + registrationColumns + ` FROM registrations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations: %w", err)
	}
	defer rows.Close()

	var records []*extension.RegistrationRecord
	for rows.Next() {
		model, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		records = append(records, model.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}
	return records, nil
}

// FindByID retrieves a registration record by extension ID.
// Returns RegistrationNotFoundError if no matching record exists.
func (r *registrationRepository) FindByID(id string) (*extension.RegistrationRecord, error) {
	row := r.db.conn.QueryRow(
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
	model, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &extension.RegistrationNotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find registration by id: %w", err)
	}
	return model.toDomain(), nil
}

// Create inserts a fresh record for the ID with enabled and installed
// both false and an empty settings blob.
func (r *registrationRepository) Create(id, name string) (*extension.RegistrationRecord, error) {
	_, err := r.db.conn.Exec(
		`INSERT INTO registrations (id, name, enabled, installed, settings) VALUES (?, ?, 0, 0, x'')`,
		id, name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert registration: %w", err)
	}
	return &extension.RegistrationRecord{ID: id, Name: name}, nil
}

// Save persists a registration record, replacing all stored fields.
func (r *registrationRepository) Save(rec *extension.RegistrationRecord) error {
	model := toRegistrationModel(rec)
	settings := model.Settings
	if settings == nil {
		settings = []byte{}
	}

	_, err := r.db.conn.Exec(
		`UPDATE registrations SET name = ?, enabled = ?, installed = ?, settings = ? WHERE id = ?`,
		model.Name, model.Enabled, model.Installed, settings, model.ID)
	if err != nil {
		return fmt.Errorf("failed to update registration: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (r *registrationRepository) Close() error {
	return r.db.Close()
}
