package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/pkg/enums"
	"github.com/wareline/wareline-backend/pkg/scope"
)

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxRole        contextKey = "actor_role"
	ctxWarehouseID contextKey = "warehouse_id"
	ctxAccessID    contextKey = "access_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func WarehouseIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxWarehouseID).(string); ok {
		return v
	}
	return ""
}

// AccessIDFromContext returns the jti of the presented access token. Logout
// uses it to revoke the matching session.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// ActorScope derives the warehouse visibility scope for the authenticated
// actor. Callers must run it behind the Auth middleware.
func ActorScope(ctx context.Context) scope.Scope {
	role := enums.UserRole(RoleFromContext(ctx))
	var home *uuid.UUID
	if raw := WarehouseIDFromContext(ctx); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			home = &id
		}
	}
	return scope.ForActor(role, home)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithWarehouseID injects the actor's home warehouse into the context.
func WithWarehouseID(ctx context.Context, warehouseID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxWarehouseID, warehouseID)
}

// WithAccessID injects the access token jti into the context.
func WithAccessID(ctx context.Context, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccessID, accessID)
}
