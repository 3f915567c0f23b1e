package cache

import "context"

type bypassKey struct{}

// WithBypass marks ctx so cache-aware callers neither read nor write cached
// values. Bulk and administrative runs use it to keep interactive caches clean.
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

// Bypassed reports whether ctx was marked with WithBypass
func Bypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}
