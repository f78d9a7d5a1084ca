// Package store persists normalized scan results in a relational store.
// The default backend is a sqlite file named after the input document;
// the same schema can be written to PostgreSQL instead. Every run
// starts from an empty store: Create discards whatever a previous run
// left behind.
package store

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/logging"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// DefaultExtension is appended to the artifact base of sqlite stores.
	DefaultExtension = ".sqlite3"

	sqlitePragmas = "?_pragma=foreign_keys(1)"
)

// Config holds store configuration.
type Config struct {
	Driver    string `yaml:"driver" json:"driver" mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres"`
	Extension string `yaml:"extension" json:"extension" mapstructure:"extension"`
	DSN       string `yaml:"dsn" json:"dsn" mapstructure:"dsn" validate:"required_if=Driver postgres"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Driver:    DriverSQLite,
		Extension: DefaultExtension,
	}
}

// Path returns the sqlite file for an artifact base, or "" for server backends.
func (c Config) Path(base string) string {
	if c.driver() != DriverSQLite {
		return ""
	}
	ext := c.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return base + ext
}

func (c Config) driver() string {
	if c.Driver == "" {
		return DriverSQLite
	}
	return c.Driver
}

// Store wraps sqlx.DB for a single pipeline run.
type Store struct {
	db     *sqlx.DB
	driver string
	path   string
	logger *logging.Logger
}

// Create discards any previous store for base and opens an empty one.
// Failures are reported as CodeStoreCreate errors and leave no artifact.
// A nil logger uses the process default.
func Create(ctx context.Context, cfg Config, base string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.driver() {
	case DriverSQLite:
		return createSQLite(ctx, cfg.Path(base), logger)
	case DriverPostgres:
		return createPostgres(ctx, cfg.DSN, logger)
	default:
		return nil, errors.WrapStoreError(errors.CodeStoreCreate, "create store",
			fmt.Errorf("unsupported driver %q", cfg.Driver))
	}
}

func createSQLite(ctx context.Context, path string, logger *logging.Logger) (*Store, error) {
	if err := discardFile(path); err != nil {
		return nil, errors.WrapStoreError(errors.CodeStoreCreate, "discard previous store", err)
	}

	db, err := sqlx.ConnectContext(ctx, DriverSQLite, path+sqlitePragmas)
	if err != nil {
		_ = os.Remove(path)
		return nil, errors.WrapStoreError(errors.CodeStoreCreate, "open store", err)
	}
	// sqlite allows one writer; a single connection keeps the run serial.
	db.SetMaxOpenConns(1)

	logger.InfoStore("store created", "path", path)
	return &Store{db: db, driver: DriverSQLite, path: path, logger: logger}, nil
}

func createPostgres(ctx context.Context, dsn string, logger *logging.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, DriverPostgres, dsn)
	if err != nil {
		// Don't log the DSN - it may contain credentials
		return nil, errors.WrapStoreError(errors.CodeStoreCreate, "connect store", err)
	}

	s := &Store{db: db, driver: DriverPostgres, logger: logger}
	if err := s.dropTables(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapStoreError(errors.CodeStoreCreate, "discard previous store", err)
	}

	logger.InfoStore("store created", "driver", DriverPostgres)
	return s, nil
}

// discardFile removes a previous sqlite artifact. A directory at the
// path is a conflict, not something to delete.
func discardFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("store path %s is a directory", path)
	}
	return os.Remove(path)
}

// Path returns the sqlite file backing the store, empty for postgres.
func (s *Store) Path() string {
	return s.path
}

// Driver returns the backend driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Close releases the underlying connection. The artifact stays.
func (s *Store) Close() error {
	return s.db.Close()
}

// Remove closes the store and deletes everything it created.
func (s *Store) Remove(ctx context.Context) error {
	var dropErr error
	if s.driver == DriverPostgres {
		dropErr = s.dropTables(ctx)
	}
	if err := s.db.Close(); err != nil && dropErr == nil {
		dropErr = err
	}
	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if dropErr != nil {
		s.logger.ErrorStore("failed to remove store", dropErr)
	}
	return dropErr
}

func (s *Store) dropTables(ctx context.Context) error {
	for _, table := range []string{"ports", "hosts", "services"} {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
