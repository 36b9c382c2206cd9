// Package testutil provides test utilities for database setup.
package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"
)

// Schema is the registration-table schema used by tests that need a
// database without going through the migration machinery.
const Schema = `
CREATE TABLE registrations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 0,
	installed INTEGER NOT NULL DEFAULT 0,
	settings BLOB NOT NULL DEFAULT x''
);
`

// NewTestDB creates an in-memory SQLite database with the registration
// schema. The caller is responsible for closing the database.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(Schema)
	require.NoError(t, err)
	return db
}

// SeedRegistration inserts a registration row with the given state.
func SeedRegistration(t *testing.T, db *sql.DB, id, name string, enabled, installed bool) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO registrations (id, name, enabled, installed, settings) VALUES (?, ?, ?, ?, x'')`,
		id, name, enabled, installed)
	require.NoError(t, err)
}
