// Package savedconn persists named connection profiles in sqlite.
package savedconn

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	sqlite3migrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"

	"pkt.systems/mongoui/schema"
	"pkt.systems/pslog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the saved connection table.
type Store struct {
	db     *sql.DB
	path   string
	seal   *sealer
	logger pslog.Logger
}

type openOptions struct {
	keyStore string
}

// Option configures Open.
type Option func(*openOptions)

// WithKeyStore sets the key store used to encrypt connection strings. It
// defaults to KeyStoreFile in the database directory.
func WithKeyStore(path string) Option {
	return func(o *openOptions) {
		o.keyStore = path
	}
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Connection strings are encrypted at rest unless path is
// ":memory:" and no key store is given.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("saved connection path is required")
	}
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create saved connection dir: %w", err)
		}
		if o.keyStore == "" {
			o.keyStore = filepath.Join(filepath.Dir(path), KeyStoreFile)
		}
	}
	var seal *sealer
	if o.keyStore != "" {
		var err error
		if seal, err = openSealer(o.keyStore); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate saved connections: %w", err)
	}
	log := pslog.Ctx(ctx)
	log.Debug("saved connections opened", "path", path, "key_store", o.keyStore)
	return &Store{db: db, path: path, seal: seal, logger: log}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3migrate.WithInstance(db, &sqlite3migrate.Config{})
	if err != nil {
		_ = src.Close()
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = src.Close()
		return err
	}
	// m.Close would also close db.
	defer src.Close()
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create stores a new profile and returns it with its id.
func (s *Store) Create(ctx context.Context, name, uri string) (schema.SavedConnection, error) {
	name, err := schema.NormalizeSaveName(name)
	if err != nil {
		return schema.SavedConnection{}, err
	}
	uri, err = schema.NormalizeURI(uri)
	if err != nil {
		return schema.SavedConnection{}, err
	}
	sealed, err := s.seal.seal(uri)
	if err != nil {
		return schema.SavedConnection{}, fmt.Errorf("encrypt uri: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO saved_dbs(name, uri) VALUES (?, ?)`, name, sealed)
	if err != nil {
		return schema.SavedConnection{}, mapConstraint(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return schema.SavedConnection{}, err
	}
	s.logger.Info("saved connection created", "saved_id", id, "name", name)
	return schema.SavedConnection{ID: schema.SavedConnectionID(id), Name: name, URI: uri}, nil
}

// List returns every profile ordered by id.
func (s *Store) List(ctx context.Context) ([]schema.SavedConnection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, uri FROM saved_dbs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []schema.SavedConnection{}
	for rows.Next() {
		var c schema.SavedConnection
		if err := rows.Scan(&c.ID, &c.Name, &c.URI); err != nil {
			return nil, err
		}
		if c.URI, err = s.seal.unseal(c.URI); err != nil {
			return nil, fmt.Errorf("saved connection %d: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns the profile with id.
func (s *Store) Get(ctx context.Context, id schema.SavedConnectionID) (schema.SavedConnection, error) {
	var c schema.SavedConnection
	err := s.db.QueryRowContext(ctx, `SELECT id, name, uri FROM saved_dbs WHERE id = ?`, int64(id)).Scan(&c.ID, &c.Name, &c.URI)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.SavedConnection{}, schema.ErrSavedConnectionNotFound
	}
	if err != nil {
		return schema.SavedConnection{}, err
	}
	if c.URI, err = s.seal.unseal(c.URI); err != nil {
		return schema.SavedConnection{}, fmt.Errorf("saved connection %d: %w", c.ID, err)
	}
	return c, nil
}

// Rename changes the name of a profile.
func (s *Store) Rename(ctx context.Context, id schema.SavedConnectionID, name string) error {
	name, err := schema.NormalizeSaveName(name)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE saved_dbs SET name = ? WHERE id = ?`, name, int64(id))
	if err != nil {
		return mapConstraint(err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	s.logger.Info("saved connection renamed", "saved_id", int64(id), "name", name)
	return nil
}

// Delete removes a profile.
func (s *Store) Delete(ctx context.Context, id schema.SavedConnectionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_dbs WHERE id = ?`, int64(id))
	if err != nil {
		return err
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	s.logger.Info("saved connection deleted", "saved_id", int64(id))
	return nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return schema.ErrSavedConnectionNotFound
	}
	return nil
}

func mapConstraint(err error) error {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return schema.ErrSavedNameExists
	}
	return err
}
