// Package identity carries the verified caller identity through the request context.
package identity

import "context"

// Role of an authenticated caller.
type Role string

const (
	RoleSponsor Role = "sponsor"
	RoleAdmin   Role = "admin"
	RoleSystem  Role = "system"
)

type contextKey string

const callerKey contextKey = "caller"

// Caller is the verified identity attached by the auth middleware.
// UserID is the source of truth for all payment paths; client-supplied
// user identifiers are ignored in its favor.
type Caller struct {
	UserID string
	Role   Role
}

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(callerKey).(Caller)
	if !ok || caller.UserID == "" {
		return Caller{}, false
	}
	return caller, true
}

// SystemCaller is used by internal paths (webhooks, scheduler) that bypass
// per-user ownership checks.
func SystemCaller() Caller {
	return Caller{UserID: "system", Role: RoleSystem}
}
