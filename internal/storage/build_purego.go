//go:build !sqlite_cgo
// +build !sqlite_cgo

package storage

// This file is compiled by default, without the sqlite_cgo tag.
// It uses a pure Go SQLite implementation that ships FTS5.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// The pure Go implementation provides:
//   - No C compiler required
//   - Cross-platform compilation
//   - FTS5 built in
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
