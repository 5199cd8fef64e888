package auth

import (
	"context"
)

type callerKey struct{}

func ContextWithCaller(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func CallerFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(callerKey{}).(Claims)
	return c, ok
}
