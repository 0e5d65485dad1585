// Package tenantctx carries the per-request tenant scope.
//
// A Scope is established once per inbound request after the tenant has been
// resolved. Services read it from the context and hand it explicitly to every
// repository call, so storage access without a scope does not compile.
package tenantctx

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// ErrMissingScope is returned when no tenant has been bound to the context.
var ErrMissingScope = errors.New("tenant_not_resolved")

// Scope binds storage operations to one tenant partition.
type Scope struct {
	TenantID  snowflake.ID
	Partition string
}

// Valid reports whether the scope points at a real tenant.
func (s Scope) Valid() bool {
	return s.TenantID != 0 && s.Partition != ""
}

type scopeKey struct{}
type actorKey struct{}

// WithScope stores the scope in the context.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// FromContext returns the scope bound to ctx.
func FromContext(ctx context.Context) (Scope, error) {
	if ctx == nil {
		return Scope{}, ErrMissingScope
	}
	scope, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok || !scope.Valid() {
		return Scope{}, ErrMissingScope
	}
	return scope, nil
}

// TenantID returns the tenant id bound to ctx, if any.
func TenantID(ctx context.Context) (snowflake.ID, bool) {
	scope, err := FromContext(ctx)
	if err != nil {
		return 0, false
	}
	return scope.TenantID, true
}

// WithActorID records the authenticated admin for the request.
func WithActorID(ctx context.Context, adminID snowflake.ID) context.Context {
	return context.WithValue(ctx, actorKey{}, adminID)
}

// ActorID returns the authenticated admin, if any.
func ActorID(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(actorKey{}).(snowflake.ID)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}
