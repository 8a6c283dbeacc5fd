package auth

import "context"

type sessionKey struct{}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session attached by WithSession. The boolean
// is false when there is none or it carries no user id.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	sess, ok := ctx.Value(sessionKey{}).(Session)
	if !ok || sess.UserID <= 0 {
		return Session{}, false
	}
	return sess, true
}
