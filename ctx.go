package session

import "context"

var managerCtxKey = &contextKey{"manager"}
var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithManager sets the session Manager in the given context. This is how
// the single owned state container reaches consumers: one writer, many
// readers, no package-level globals.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerCtxKey, m)
}

// ManagerFromContext finds the session Manager from the context.
func ManagerFromContext(ctx context.Context) (*Manager, bool) {
	raw, ok := ctx.Value(managerCtxKey).(*Manager)
	return raw, ok
}

// WithUser sets the User in the given context.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext finds the user from the context.
func UserFromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// CurrentUser returns the display copy of the logged-in user, preferring a
// user already resolved on the context over a Manager read.
func CurrentUser(ctx context.Context) (*User, bool) {
	if user, ok := UserFromContext(ctx); ok {
		return user, true
	}

	if m, ok := ManagerFromContext(ctx); ok {
		current := m.Current()
		if current.IsAuthenticated() {
			return current.User, true
		}
	}

	return nil, false
}
