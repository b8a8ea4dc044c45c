// Package ctxutil has small context helpers shared by outbound clients.
package ctxutil

import "context"

// Default returns context.Background() when ctx is nil so callers can
// pass through an optional context without nil checks of their own.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
