package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/zjrosen/plugboard/internal/extension"
	"github.com/zjrosen/plugboard/internal/log"
)

// Migrator applies an extension's own schema migrations against the
// registry database at install time. Extensions that ship persisted
// tables return one of these from SchemaMigrator.
type Migrator struct {
	db   *DB
	id   string
	fsys fs.FS
	dir  string
}

// NewMigrator builds a migrator for the extension with the given ID over
// the migration files found at dir inside fsys, typically an embedded
// filesystem shipped with the extension. Each extension tracks its
// applied versions in its own table, keyed by ID.
func NewMigrator(db *DB, id string, fsys fs.FS, dir string) *Migrator {
	return &Migrator{db: db, id: id, fsys: fsys, dir: dir}
}

// Ensure Migrator implements extension.SchemaMigrator.
var _ extension.SchemaMigrator = (*Migrator)(nil)

// ApplyPendingChanges runs any migrations not yet applied. Already
// up-to-date is not an error.
func (m *Migrator) ApplyPendingChanges(ctx context.Context) error {
	src, err := iofs.New(m.fsys, m.dir)
	if err != nil {
		return fmt.Errorf("loading extension migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(m.db.conn, &migratesqlite.Config{
		MigrationsTable: migrationsTableFor(m.id),
	})
	if err != nil {
		return fmt.Errorf("preparing migration driver: %w", err)
	}
	mig, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("preparing extension migrations: %w", err)
	}
	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying extension migrations: %w", err)
	}

	log.Debug(log.CatDB, "extension schema up to date", "id", m.id)
	return nil
}

// migrationsTableFor derives a per-extension version table name. IDs can
// contain characters SQLite identifiers cannot, so anything outside
// [a-zA-Z0-9_] is mapped to an underscore.
func migrationsTableFor(id string) string {
	sanitized := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sanitized = append(sanitized, r)
		default:
			sanitized = append(sanitized, '_')
		}
	}
	return "ext_migrations_" + string(sanitized)
}
