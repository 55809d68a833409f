package mailinglist

import (
	"context"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSessionContext sets the SessionRecord in the given context
func WithSessionContext(r context.Context, record *SessionRecord) context.Context {
	return context.WithValue(r, sessionCtxKey, record)
}

// SessionFromContext finds the session record from the context.
func SessionFromContext(ctx context.Context) (*SessionRecord, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*SessionRecord)
	return raw, ok
}
