// Package storage persists the pattern catalog and one embedding per pattern.
//
// Two backends implement Storage:
//
//   - SQLiteStorage: database/sql over mattn/go-sqlite3 (built with the
//     sqlite_vec tag, which also registers the sqlite-vec extension) or the
//     pure Go modernc.org/sqlite driver. Vectors are little-endian float32
//     blobs and list fields are JSON arrays.
//   - PostgresStorage: a pgx connection pool with queries built by squirrel.
//     Vectors are REAL[] columns and list fields TEXT[].
//
// Both apply semver-tracked migrations on open.
//
// # Basic Usage
//
//	s, err := storage.Open(ctx, cfg.Storage, logger)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	patterns, err := s.ListByCategory(ctx, "creational")
//	embeddings, err := s.ListEmbeddings(ctx)
//
// # Atomicity
//
// UpsertEmbedding replaces a record in one statement, and UpsertEmbeddings
// writes a whole batch in one transaction. Readers see either the old record
// or the new one, never a mix.
//
// # Errors
//
// Driver failures and corrupt rows are returned as *types.StorageError.
// Missing rows match ErrNotFound, and invalid records are rejected with a
// *types.ValidationError before any write.
//
// # Build Tags
//
// CGO build with sqlite-vec:
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go build (default):
//
//	CGO_ENABLED=0 go build
package storage
