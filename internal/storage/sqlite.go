package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/mailsearch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

const (
	// MemoryPath opens a private in-memory database
	MemoryPath = ":memory:"

	// DefaultTextLimit bounds lexical results when the caller passes no limit
	DefaultTextLimit = 10
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single connection: in-memory databases are per connection, and the FTS
	// rebuild must be visible to the query that follows it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// isFilePath reports whether dbPath refers to a plain file on disk
func isFilePath(dbPath string) bool {
	return dbPath != MemoryPath && !strings.HasPrefix(dbPath, "file:")
}

// NewSQLiteStorage opens an existing email store.
// A missing database file yields types.ErrCorpusUnavailable; the file is never created.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if isFilePath(dbPath) {
		if _, err := os.Stat(dbPath); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", types.ErrCorpusUnavailable, dbPath)
			}
			return nil, fmt.Errorf("failed to stat database: %w", err)
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// InitSQLiteStorage creates the database if needed and applies migrations.
// Ingestion tooling uses it to bootstrap an empty store.
func InitSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if isFilePath(dbPath) {
		if dir := filepath.Dir(dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Corpus operations

// tableExists checks sqlite_master for a table or virtual table
func (s *SQLiteStorage) tableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CorpusExists reports whether the emails table has been created
func (s *SQLiteStorage) CorpusExists(ctx context.Context) (bool, error) {
	return s.tableExists(ctx, "emails")
}

// ListEmails returns every email ordered by id
func (s *SQLiteStorage) ListEmails(ctx context.Context) ([]*Email, error) {
	query := `
		SELECT id, COALESCE(subject, ''), COALESCE(body, '')
		FROM emails
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEmails(rows)
}

// GetEmail retrieves a single email by id
func (s *SQLiteStorage) GetEmail(ctx context.Context, id int64) (*Email, error) {
	query := `
		SELECT id, COALESCE(subject, ''), COALESCE(body, '')
		FROM emails
		WHERE id = ?
	`
	var email Email
	err := s.db.QueryRowContext(ctx, query, id).Scan(&email.ID, &email.Subject, &email.Body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &email, nil
}

// InsertEmail stores an email. A zero ID lets SQLite assign one.
func (s *SQLiteStorage) InsertEmail(ctx context.Context, email *Email) error {
	var id interface{}
	if email.ID != 0 {
		id = email.ID
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO emails (id, subject, body) VALUES (?, ?, ?)",
		id, email.Subject, email.Body)
	if err != nil {
		return fmt.Errorf("failed to insert email: %w", err)
	}

	if email.ID == 0 {
		newID, err := result.LastInsertId()
		if err != nil {
			return err
		}
		email.ID = newID
	}
	return nil
}

// Full-text index operations

// RebuildTextIndex drops and recreates the FTS5 index over subject and body
// from the current contents of the emails table
func (s *SQLiteStorage) RebuildTextIndex(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin index rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		"DROP TABLE IF EXISTS emails_fts",
		"CREATE VIRTUAL TABLE emails_fts USING fts5(subject, body)",
		`INSERT INTO emails_fts (rowid, subject, body)
		 SELECT id, COALESCE(subject, ''), COALESCE(body, '') FROM emails`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to rebuild text index: %w", err)
		}
	}

	return tx.Commit()
}

// SearchText runs a lexical AND-of-terms query against the FTS5 index.
// Results come back in the engine's native order.
func (s *SQLiteStorage) SearchText(ctx context.Context, query string, limit int) ([]*Email, error) {
	return searchText(ctx, s.db, query, limit)
}

// Status operations

// GetStatus reports corpus and index statistics
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*CorpusStatus, error) {
	status := &CorpusStatus{}
	status.Health.DatabaseAccessible = true

	version, err := schemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	present, err := s.CorpusExists(ctx)
	if err != nil {
		return nil, err
	}
	status.Health.CorpusPresent = present

	if present {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM emails").Scan(&status.EmailsCount); err != nil {
			return nil, err
		}
	}

	built, err := s.tableExists(ctx, "emails_fts")
	if err != nil {
		return nil, err
	}
	status.Health.FTSIndexBuilt = built
	if built {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM emails_fts").Scan(&status.IndexedCount); err != nil {
			return nil, err
		}
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

// scanEmails collects id/subject/body rows
func scanEmails(rows *sql.Rows) ([]*Email, error) {
	emails := make([]*Email, 0)
	for rows.Next() {
		var email Email
		if err := rows.Scan(&email.ID, &email.Subject, &email.Body); err != nil {
			return nil, err
		}
		emails = append(emails, &email)
	}
	return emails, rows.Err()
}
