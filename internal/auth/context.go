package auth

import "context"

type userKey struct{}

// WithUser returns a context carrying the signed-in user's id.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the signed-in user's id, or "" when anonymous.
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userKey{}).(string)
	return user
}
