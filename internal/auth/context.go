package auth

import (
	"context"

	"keydesk/internal/session"
)

type ctxKey string

const claimsKey ctxKey = "sessionClaims"

type Claims struct {
	Subject   string
	Role      session.Role
	ManagerID string
}

func (c Claims) IsAdmin() bool {
	return c.Role == session.RoleAdmin
}

// Actor is the name activity entries are attributed to.
func (c Claims) Actor() string {
	if c.IsAdmin() {
		return "admin"
	}
	return c.ManagerID
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func FromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(claimsKey).(Claims); ok {
		return v
	}
	return Claims{}
}
