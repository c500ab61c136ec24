package stores

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/openclinic/clinicdesk/pkg/telemetry"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// TimestampLayout is the ISO 8601 layout of created_at and updated_at values.
// Timestamps use the store-local clock and carry no zone.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Table names, also used as the entity label in telemetry.
const (
	entityPatients     = "patients"
	entityDoctors      = "doctors"
	entityAppointments = "appointments"
	entityInvoices     = "invoices"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db          *sql.DB
	path        string
	busyTimeout time.Duration
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	skipPurge   bool
	clock       func() time.Time
}

// Config holds SQLite store configuration
type Config struct {
	Path string

	// BusyTimeout bounds how long a statement waits on a locked database
	// before failing with ClassLocked. Defaults to 30s.
	BusyTimeout time.Duration

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SkipDemoPurge disables the startup removal of demo rows.
	SkipDemoPurge bool

	// Clock supplies created_at/updated_at values. Defaults to time.Now.
	Clock func() time.Time
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	// The path is opened as a SQLite URI, where these characters are delimiters or escapes.
	if strings.ContainsAny(cfg.Path, "?#%") {
		return nil, fmt.Errorf("database path %q must not contain '?', '#' or '%%'", cfg.Path)
	}

	// Set defaults
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 30 * time.Second
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 1
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 1
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &SQLiteStore{
		path:        cfg.Path,
		busyTimeout: cfg.BusyTimeout,
		maxOpen:     cfg.MaxOpenConns,
		maxIdle:     cfg.MaxIdleConns,
		maxLifetime: cfg.ConnMaxLifetime,
		skipPurge:   cfg.SkipDemoPurge,
		clock:       cfg.Clock,
	}, nil
}

// dsn builds the modernc.org/sqlite connection string. Foreign keys are left
// off: references are declared but not enforced.
func (s *SQLiteStore) dsn() string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", s.busyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(0)")
	q.Set("_txlock", "immediate")
	return "file:" + s.path + "?" + q.Encode()
}

// Init opens the database and verifies the connection.
func (s *SQLiteStore) Init(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.maxOpen)
	db.SetMaxIdleConns(s.maxIdle)
	db.SetConnMaxLifetime(s.maxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	telemetry.FromContext(ctx).NewComponentLogger("stores").
		WithField("path", s.path).
		Debug("database opened")
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

// Path returns the configured database path.
func (s *SQLiteStore) Path() string { return s.path }

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn as one unit of work. The transaction commits when fn returns
// nil and rolls back on error or panic; the connection is released either way.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()

	return fn(tx)
}

// run executes one instrumented unit of work against entity in a write
// transaction.
func (s *SQLiteStore) run(ctx context.Context, entity, operation string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return telemetry.RecordStoreOperation(ctx, entity, operation, func(ctx context.Context) error {
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			return fn(ctx, tx)
		})
		return wrapError(entity, operation+" failed", err)
	})
}

// read executes one instrumented query-only operation. Each statement runs in
// autocommit mode on a pooled connection, so reads never take the write
// reservation that _txlock=immediate gives transactions.
func (s *SQLiteStore) read(ctx context.Context, entity, operation string, fn func(ctx context.Context, q querier) error) error {
	return telemetry.RecordStoreOperation(ctx, entity, operation, func(ctx context.Context) error {
		if s.db == nil {
			return fmt.Errorf("database not initialized")
		}
		return wrapError(entity, operation+" failed", fn(ctx, s.db))
	})
}

// deleteSnapshot implements the read-then-delete contract shared by every
// entity. The read and the delete are separate units of work.
func (s *SQLiteStore) deleteSnapshot(ctx context.Context, entity string, id int64, read func(ctx context.Context, q querier) error) error {
	return telemetry.RecordStoreOperation(ctx, entity, "delete", func(ctx context.Context) error {
		if s.db == nil {
			return fmt.Errorf("database not initialized")
		}
		if err := read(ctx, s.db); err != nil {
			return wrapError(entity, "delete failed", err)
		}

		err := s.withTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM "+entity+" WHERE id = ?", id)
			return err
		})
		return wrapError(entity, "failed to delete record", err)
	})
}

// now returns the current timestamp in TimestampLayout.
func (s *SQLiteStore) now() string {
	return s.clock().Format(TimestampLayout)
}
