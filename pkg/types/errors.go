package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by the recommendation pipeline matches
// exactly one of these with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrProvider          = errors.New("embedding provider error")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrStorage           = errors.New("storage error")
	ErrNotFound          = errors.New("not found")
)

// Search result errors
var (
	ErrInvalidPatternID      = errors.New("invalid pattern ID")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("score must be between 0 and 1")
)

// ValidationError reports a malformed request
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConfigurationError reports an invalid configuration value
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ProviderError reports an embedding provider failure.
// Transient failures (timeouts, rate limits) are retried; permanent ones are not.
type ProviderError struct {
	Provider  string
	Transient bool
	Exhausted bool // Transient failure that used up every retry attempt
	Attempts  int
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Exhausted {
		return fmt.Sprintf("embedding provider %s failed (%s, exhausted after %d attempts): %v", e.Provider, kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("embedding provider %s failed (%s): %v", e.Provider, kind, e.Err)
}

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

func (e *ProviderError) Unwrap() error { return e.Err }

// DimensionMismatchError reports a stored vector whose size differs from the query vector
type DimensionMismatchError struct {
	PatternID string
	Expected  int
	Got       int
}

func (e *DimensionMismatchError) Error() string {
	if e.PatternID == "" {
		return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Got)
	}
	return fmt.Sprintf("embedding dimension mismatch for pattern %s: expected %d, got %d", e.PatternID, e.Expected, e.Got)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// StorageError reports an unreachable store or a corrupt read
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func (e *StorageError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable provider failure
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient && !pe.Exhausted
	}
	return false
}
