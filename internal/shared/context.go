package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// CurrentUserID returns the user id bound to the session in context, if any.
func CurrentUserID(ctx context.Context) (string, bool) {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return "", false
	}
	id := sess.User()
	if id == "" {
		return "", false
	}
	return id, true
}
