package storage

import (
	"context"
)

// Storage defines read access to the email corpus and its full-text index.
// The emails table is owned by the ingestion pipeline; this layer only reads it,
// apart from InsertEmail which exists for bootstrap tooling and tests.
type Storage interface {
	// Corpus operations
	CorpusExists(ctx context.Context) (bool, error)
	ListEmails(ctx context.Context) ([]*Email, error)
	GetEmail(ctx context.Context, id int64) (*Email, error)
	InsertEmail(ctx context.Context, email *Email) error

	// Full-text index operations
	RebuildTextIndex(ctx context.Context) error
	SearchText(ctx context.Context, query string, limit int) ([]*Email, error)

	// Status operations
	GetStatus(ctx context.Context) (*CorpusStatus, error)

	// Database operations
	Close() error
}

// Email represents a stored email message.
// Sender, receiver and thread columns exist in the table but are not read here.
type Email struct {
	ID      int64
	Subject string
	Body    string
}

// CorpusStatus contains statistics about the email store
type CorpusStatus struct {
	EmailsCount   int          `json:"emails_count"`
	IndexedCount  int          `json:"indexed_count"`
	SchemaVersion string       `json:"schema_version"`
	SizeMB        float64      `json:"db_size_mb"`
	Health        HealthStatus `json:"health"`
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible bool `json:"database_accessible"`
	CorpusPresent      bool `json:"corpus_present"`
	FTSIndexBuilt      bool `json:"fts_index_built"`
}

// VectorResult represents a result from vector similarity ranking.
// Index is the position of the ranked vector in the input slice.
type VectorResult struct {
	Index           int
	SimilarityScore float64
}
