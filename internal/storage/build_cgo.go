//go:build sqlite_vec && cgo

package storage

// Compiled with CGO and the sqlite_vec tag. Registers the sqlite-vec
// extension with every mattn/go-sqlite3 connection so vec_version() and the
// vec_distance_* functions are available.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./...

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	vec.Auto()
}

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
