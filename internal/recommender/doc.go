// Package recommender ranks catalog patterns against free-text problem
// descriptions.
//
// A request is validated, the query is embedded through the configured
// provider (memoized by the embedding cache), and the vector and keyword
// engines run concurrently over the candidate patterns. Their scores are
// merged as
//
//	final      = semanticWeight*semantic + keywordWeight*keyword
//	agreement  = 1 - |semantic - keyword|        (0 when only one signal ran)
//	confidence = final * (0.5 + 0.5*agreement)
//
// so a pattern both signals agree on is more trustworthy than one carried by
// a single strong signal. Candidates are filtered by minimum confidence,
// sorted by final score with ascending pattern ID breaking ties, and
// enriched with a deterministic justification and alternatives.
//
// When the embedding provider fails and degraded mode is allowed, ranking
// falls back to the keyword signal alone. The fallback is logged at warn
// level, counted in metrics and flagged on every recommendation.
package recommender
