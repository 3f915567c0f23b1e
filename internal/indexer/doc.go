// Package indexer regenerates the stored embeddings of the pattern catalog.
//
// A run lists the catalog, keeps the patterns its scope selects, and embeds
// their canonical text in batches:
//
//	idx := indexer.New(store, store, gen, indexer.ConfigFromEmbedding(cfg.Embedding), m, logger)
//	stats, err := idx.RegenerateAll(ctx, indexer.Options{Scope: indexer.ScopeStale})
//
// # Pipelining
//
// At most Config.Concurrency batches are in flight. Each batch is one
// provider call (through the generator's retry policy) followed by one
// storage transaction, so a stored batch is always complete.
//
// # Failure
//
// The first failing batch cancels the run. Batches committed before the
// failure stay committed; a batch that was still generating when the run was
// canceled is discarded. Statistics describe what was committed even when an
// error is returned, and rerunning with ScopeMissing picks up the remainder.
//
// # Caching
//
// Runs bypass the embedding cache for both reads and writes.
//
// Only one run may be active per Indexer; a concurrent call returns
// ErrInProgress without blocking.
package indexer
