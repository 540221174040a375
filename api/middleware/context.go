package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxVendorID contextKey = "vendor_id"
	ctxRole     contextKey = "actor_role"
)

// Actor is the authenticated identity handlers act on behalf of.
type Actor struct {
	UserID   uuid.UUID
	VendorID *uuid.UUID
	Role     enums.ActorRole
}

// ActorFromContext extracts the authenticated actor seeded by Auth.
func ActorFromContext(ctx context.Context) Actor {
	actor := Actor{}
	if ctx == nil {
		return actor
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		actor.UserID = v
	}
	if v, ok := ctx.Value(ctxVendorID).(uuid.UUID); ok && v != uuid.Nil {
		vendorID := v
		actor.VendorID = &vendorID
	}
	if v, ok := ctx.Value(ctxRole).(enums.ActorRole); ok {
		actor.Role = v
	}
	return actor
}

// WithActor injects the actor into the context. Exposed for handler tests.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, actor.UserID)
	if actor.VendorID != nil {
		ctx = context.WithValue(ctx, ctxVendorID, *actor.VendorID)
	}
	return context.WithValue(ctx, ctxRole, actor.Role)
}
