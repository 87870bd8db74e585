package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "modernc.org/sqlite"

	"imgharvest/pkg/config"
	"imgharvest/pkg/errors"
)

// Store persists metadata records. Each Insert is self-contained: no
// connection or transaction outlives the call.
type Store interface {
	Name() string
	Insert(ctx context.Context, rec Record) error
}

// DefaultTimeout bounds an insert when the configuration sets none
const DefaultTimeout = 5 * time.Second

// NewStore builds the store selected by cfg.Driver
func NewStore(cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres":
		return NewPostgresStore(cfg.DSN(), cfg.Timeout), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path, cfg.Timeout), nil
	case "sidecar":
		return NewSidecarStore(cfg.SidecarDir), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

const insertPostgres = `INSERT INTO image_metadata (keyword, url, local_path, width, height, size_bytes)
VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresStore opens a fresh pgx connection for every insert
type PostgresStore struct {
	dsn     string
	timeout time.Duration
}

// NewPostgresStore creates a store for the given DSN. timeout bounds each
// insert from connect to commit.
func NewPostgresStore(dsn string, timeout time.Duration) *PostgresStore {
	return &PostgresStore{dsn: dsn, timeout: timeout}
}

// Name returns the driver name
func (s *PostgresStore) Name() string {
	return "postgres"
}

// Insert opens, begins, inserts, commits and closes
func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "connect: %v", err)
	}
	defer conn.Close(context.Background())

	tx, err := conn.Begin(ctx)
	if err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "begin: %v", err)
	}
	defer tx.Rollback(context.Background())

	if _, err := tx.Exec(ctx, insertPostgres,
		rec.Keyword, rec.URL, rec.LocalPath, rec.Width, rec.Height, rec.SizeBytes); err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "insert: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "commit: %v", err)
	}
	return nil
}

const createSQLite = `CREATE TABLE IF NOT EXISTS image_metadata (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword TEXT NOT NULL,
	url TEXT NOT NULL,
	local_path TEXT NOT NULL,
	width INTEGER,
	height INTEGER,
	size_bytes INTEGER NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const insertSQLite = `INSERT INTO image_metadata (keyword, url, local_path, width, height, size_bytes)
VALUES (?, ?, ?, ?, ?, ?)`

// SQLiteStore opens the database file for every insert
type SQLiteStore struct {
	path    string
	timeout time.Duration
}

// NewSQLiteStore creates a store backed by the file at path
func NewSQLiteStore(path string, timeout time.Duration) *SQLiteStore {
	return &SQLiteStore{path: path, timeout: timeout}
}

// Name returns the driver name
func (s *SQLiteStore) Name() string {
	return "sqlite"
}

// Insert creates the table if needed and inserts rec in its own transaction
func (s *SQLiteStore) Insert(ctx context.Context, rec Record) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "open: %v", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "begin: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createSQLite); err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "create table: %v", err)
	}
	if _, err := tx.ExecContext(ctx, insertSQLite,
		rec.Keyword, rec.URL, rec.LocalPath, rec.Width, rec.Height, rec.SizeBytes); err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "insert: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "commit: %v", err)
	}
	return nil
}

// SidecarStore writes each record as <image name>.json into its own
// directory, keeping the output directory to image files only.
type SidecarStore struct {
	dir string
}

// NewSidecarStore creates a sidecar store writing into dir
func NewSidecarStore(dir string) *SidecarStore {
	return &SidecarStore{dir: dir}
}

// Name returns the driver name
func (s *SidecarStore) Name() string {
	return "sidecar"
}

// Dir returns the sidecar directory
func (s *SidecarStore) Dir() string {
	return s.dir
}

// PathFor returns the metadata file path for an image
func (s *SidecarStore) PathFor(imagePath string) string {
	return filepath.Join(s.dir, filepath.Base(imagePath)+".json")
}

// Insert writes the record atomically
func (s *SidecarStore) Insert(ctx context.Context, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "failed to marshal metadata: %v", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "failed to create metadata directory: %v", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".meta-*.part")
	if err != nil {
		return errors.New(errors.ErrorTypeStore, 0, "failed to create metadata file: %v", err)
	}
	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return errors.New(errors.ErrorTypeStore, 0, "failed to write metadata file: %v", err)
	}

	if err := os.Rename(tmp.Name(), s.PathFor(rec.LocalPath)); err != nil {
		os.Remove(tmp.Name())
		return errors.New(errors.ErrorTypeStore, 0, "failed to rename metadata file: %v", err)
	}
	return nil
}

// Load reads the metadata written for an image
func (s *SidecarStore) Load(imagePath string) (*Record, error) {
	data, err := os.ReadFile(s.PathFor(imagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &rec, nil
}
