package middleware

import "context"

// ContextKey is a private type for request context keys.
type ContextKey string

// UserIDCtxKey holds the authenticated user id set by JWTAuth.
const UserIDCtxKey = ContextKey("user_id")

// UserIDFromContext returns the authenticated user id, or "" for anonymous
// requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDCtxKey).(string)
	return userID
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDCtxKey, userID)
}
