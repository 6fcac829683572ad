// Package storage provides SQLite-based access to the email corpus.
//
// The storage layer manages:
//   - Read access to the emails table written by ingestion
//   - The FTS5 full-text index over subject and body
//   - Cosine similarity ranking helpers used by semantic search
//
// # Database Schema
//
// Tables:
//   - schema_version: Applied migrations (semver)
//   - emails: id, subject, body (sender, receiver, thread_id are stored but unused)
//   - emails_fts: FTS5 index over subject and body, rebuilt on demand
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("db/emails.db")
//	if errors.Is(err, types.ErrCorpusUnavailable) {
//	    log.Fatal("run ingestion first")
//	}
//	defer db.Close()
//
// NewSQLiteStorage never creates the database file. Bootstrap tooling uses
// InitSQLiteStorage, which creates the file and applies migrations.
//
// # Full-Text Search
//
// The index is rebuilt from scratch before each lexical query so results always
// reflect the current table:
//
//	if err := db.RebuildTextIndex(ctx); err != nil {
//	    return err
//	}
//	emails, err := db.SearchText(ctx, "alice bob", 10)
//
// Whitespace-separated terms are ANDed together ("alice" AND "bob"). Results are
// returned in the order FTS5 produces them; no score is exposed.
//
// # Vector Operations
//
//	results := storage.RankBySimilarity(queryVector, corpusVectors, 10)
//	for _, r := range results {
//	    fmt.Printf("email at %d: similarity %.3f\n", r.Index, r.SimilarityScore)
//	}
//
// Zero-norm or dimension-mismatched vectors score 0. Ties keep corpus order.
//
// # Build Tags
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite driver, FTS5 included
//
//     CGO_ENABLED=0 go build ./...
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Needs the sqlite_fts5 tag for the FTS5 module
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo,sqlite_fts5" ./...
package storage
