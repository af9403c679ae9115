package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"
)

// Operation statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusPartial   = "partial" // some members finished, some did not
)

// Operation kinds recorded by the CLI.
const (
	KindPower    = "power"
	KindPlan     = "plan"
	KindStage    = "stage"
	KindDiscover = "discover"
	KindSessions = "sessions"
)

// Operation is one journaled run: a power action, a plan apply, a staged
// sequence, and so on.
type Operation struct {
	ID         string
	Kind       string
	Name       string
	Status     string
	Detail     string
	StartedAt  time.Time
	FinishedAt *time.Time // nil while running
}

// MemberRecord is the last recorded state of one member within an operation.
type MemberRecord struct {
	OperationID string
	Member      string
	State       string
	Detail      string
	UpdatedAt   time.Time
}

// Store defines the journal persistence interface.
type Store interface {
	BeginOperation(ctx context.Context, kind, name string) (*Operation, error)
	FinishOperation(ctx context.Context, id, status, detail string) error
	SaveMember(ctx context.Context, operationID, member, state, detail string) error
	GetOperation(ctx context.Context, id string) (*Operation, error)
	ListOperations(ctx context.Context, limit int) ([]*Operation, error)
	Members(ctx context.Context, operationID string) ([]MemberRecord, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultPath returns the conventional journal location under the xdg data
// directory, creating parent directories as needed.
func DefaultPath() (string, error) {
	path, err := xdg.DataFile("hpcadm/journal.db")
	if err != nil {
		return "", fmt.Errorf("resolving journal path: %w", err)
	}
	return path, nil
}

// NewStore creates a SQLite-backed journal at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys, and
// busy timeout.
func NewStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	// Open SQLite with connection string for WAL mode, busy timeout
	// Note: modernc.org/sqlite doesn't support _foreign_keys in connection string
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return initStore(ctx, db)
}

// NewMemoryStore creates an in-memory SQLite journal for testing.
// Uses a shared cache so multiple connections see the same database.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	// Use file::memory:?cache=shared to allow multiple connections to the same in-memory DB
	connStr := "file::memory:?mode=memory&cache=shared"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	return initStore(ctx, db)
}

func initStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	// Enable foreign keys via PRAGMA (required for modernc.org/sqlite)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Allow 2 connections: one for primary queries, one for subqueries
	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
