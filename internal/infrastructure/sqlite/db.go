// Package sqlite provides the SQLite-backed persistence layer for
// extension registration records.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/plugboard/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the registry database connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens (creating if needed) the registry database at path and
// brings its schema up to date. The parent directory is created with
// 0700 permissions. An existing database file is copied to <path>.bak
// before migrations run, so a bad migration never destroys the only
// copy of the registry.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := backupFile(path, path+".bak"); err != nil {
			return nil, fmt.Errorf("backing up database: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	log.Debug(log.CatDB, "registry database ready", "path", path)
	return &DB{conn: conn}, nil
}

// FromConn wraps an already-open connection. The caller owns the
// schema; no migrations run. Used by tests and embedders that manage
// their own database.
func FromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Conn exposes the underlying connection for repositories.
func (db *DB) Conn() *sql.DB { return db.conn }

// Close closes the database connection.
func (db *DB) Close() error { return db.conn.Close() }

func runMigrations(conn *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func backupFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
