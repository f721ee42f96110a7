package auth

import "context"

// Caller is the identity established from a validated token.
type Caller struct {
	UserID string
	Email  string
	Name   string
	Roles  []string
}

// CallerFromClaims snapshots the caller attributes carried by claims.
func CallerFromClaims(c *Claims) Caller {
	roles := make([]string, len(c.Roles))
	copy(roles, c.Roles)
	return Caller{UserID: c.Subject, Email: c.Email, Name: c.Name, Roles: roles}
}

// RoleSet returns the caller's roles as a set.
func (c Caller) RoleSet() RoleSet { return NewRoleSet(c.Roles...) }

type callerContextKey struct{}

// ContextWithCaller attaches the authenticated caller to the context.
func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, &caller)
}

// CallerFromContext extracts the authenticated caller from the context.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	v, ok := ctx.Value(callerContextKey{}).(*Caller)
	if !ok || v == nil {
		return Caller{}, false
	}
	return *v, true
}

// RolesFromContext is the default capability query used by the authorization
// middleware.
func RolesFromContext(ctx context.Context) (RoleSet, bool) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return nil, false
	}
	return caller.RoleSet(), true
}
