package auth

import "context"

type contextKey struct{}

// WithAccount returns a copy of ctx carrying the authenticated account id.
func WithAccount(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, contextKey{}, accountID)
}

// AccountID returns the authenticated account id, or "" if none is set.
func AccountID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
