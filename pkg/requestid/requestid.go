// Package requestid carries the X-Request-ID of an inbound request through
// the context so outbound calls reuse it.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header holding the id.
const Header = "X-Request-ID"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the id stored in ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Ensure returns the id in ctx, or a new one when ctx has none.
func Ensure(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}

// Valid reports whether id is a well-formed UUID.
func Valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
