//go:build !sqlite_vec || !cgo

package storage

// Compiled without CGO or without the sqlite_vec tag. Uses the pure Go
// modernc.org/sqlite driver; vector math runs in the vector package.
//
// Build command:
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
