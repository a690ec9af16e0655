package shared

import (
	"context"
	"time"
)

// TokenInfo describes the bearer token that authenticated a request.
type TokenInfo struct {
	UserID    int64
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

type tokenContextKey struct{}

// ContextWithToken stores the authenticated token in context.
func ContextWithToken(ctx context.Context, info TokenInfo) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, info)
}

// TokenFromContext extracts the authenticated token from context.
func TokenFromContext(ctx context.Context) (TokenInfo, bool) {
	info, ok := ctx.Value(tokenContextKey{}).(TokenInfo)
	return info, ok
}
