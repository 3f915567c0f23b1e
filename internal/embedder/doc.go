// Package embedder generates vector embeddings for patterns and queries.
//
// Five providers sit behind the Embedder interface: an offline feature-hashing
// model (local), a local Ollama server, and the OpenAI, Jina and Gemini APIs.
// A Selector walks a fixed priority list once per configuration load and keeps
// the first provider that reports itself available.
//
// # Generation
//
// Callers go through a Generator rather than a provider directly:
//
//	provider, err := embedder.NewSelector(cfg.Embedding, logger).Select(ctx)
//	if err != nil {
//	    return err
//	}
//	opts := embedder.OptionsFromConfig(cfg.Embedding)
//	opts.Cache = embedder.NewEmbeddingCache(cfg.Cache, m)
//	gen := embedder.NewGenerator(provider, opts)
//
//	res, err := gen.GenerateEmbeddings(ctx, texts)
//
// The Generator splits input into batches, retries transient failures with a
// fixed delay and fails the whole call if any batch gives up. Results carry the
// provider, model and dimension that produced them.
//
// # Caching
//
// Query embeddings are memoized per (model, normalized text). Bulk runs mark
// their context with cache.WithBypass so they never read or fill the cache.
//
// # Failures
//
// Every provider failure surfaces as a *types.ProviderError. Timeouts, rate
// limits and 5xx responses are transient; authentication failures, bad input
// and malformed responses are permanent and are not retried.
package embedder
