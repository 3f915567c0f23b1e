// Package types provides shared type definitions for the patternfinder MCP server.
//
// This package defines the domain types used across the recommendation
// pipeline: catalog patterns, persisted pattern embeddings, recommendation
// queries and results, and the error taxonomy shared by every component.
//
// # Core Types
//
// Pattern is a read-only catalog entry describing a design pattern:
//
//	pattern := &types.Pattern{
//	    ID:          "singleton",
//	    Name:        "Singleton",
//	    Category:    "creational",
//	    Description: "Ensure a class has only one instance and provide a global access point.",
//	    Complexity:  types.ComplexityLow,
//	}
//
// PatternEmbedding is the persisted vector for a pattern together with the
// provider metadata needed to audit and compare it:
//
//	emb := &types.PatternEmbedding{
//	    PatternID: "singleton",
//	    Vector:    vector,
//	    Dimension: 384,
//	    Model:     "local-hash-v1",
//	    Strategy:  "local",
//	}
//
// # Validation
//
// Domain types implement Validate methods:
//
//	if err := emb.Validate(); err != nil {
//	    return err // vector length differs from declared dimension
//	}
//
// # Errors
//
// Every failure surfaced by the pipeline belongs to one of a small set of
// kinds that callers can test with errors.Is (ErrValidation, ErrConfiguration,
// ErrProvider, ErrDimensionMismatch, ErrStorage) or inspect with errors.As
// (*ValidationError, *ProviderError, ...).
//
// # Scores
//
// All scores (semantic, keyword, final, confidence) are normalized to the
// [0, 1] range, with higher values indicating better matches.
package types
