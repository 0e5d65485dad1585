package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/tenantdesk/internal/auth/domain"
	obscontext "github.com/smallbiznis/tenantdesk/internal/observability/context"
	tenantdomain "github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderOperatorKey = "X-Operator-Key"

	contextAdminKey = "admin"
	contextTokenKey = "admin_token"
)

// TenantContext resolves the tenant for the request host, or the single
// configured tenant, and binds its scope to the request context.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var (
			tenant tenantdomain.Tenant
			err    error
		)
		if s.cfg.SingleTenant() {
			tenant, err = s.tenants.EnsureSingle(ctx)
		} else {
			tenant, err = s.tenants.Resolve(ctx, c.Request.Host)
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}

		scope := tenantctx.Scope{TenantID: tenant.ID, Partition: tenant.SchemaName}
		ctx = tenantctx.WithScope(ctx, scope)
		ctx = obscontext.WithTenant(ctx, scope.Partition)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("tenant", scope.Partition))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AuthRequired admits requests carrying a token from the admin's active
// session set. It must run after TenantContext.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		admin, err := s.auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := tenantctx.WithActorID(c.Request.Context(), admin.ID)
		ctx = obscontext.WithActor(ctx, admin.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextAdminKey, admin)
		c.Set(contextTokenKey, raw)
		c.Next()
	}
}

// OperatorKeyRequired guards cross-tenant routes. An unset key disables
// them.
func (s *Server) OperatorKeyRequired() gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(s.cfg.OperatorAPIKey))
	return func(c *gin.Context) {
		given := []byte(strings.TrimSpace(c.GetHeader(HeaderOperatorKey)))
		if len(expected) == 0 || subtle.ConstantTimeCompare(given, expected) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func currentAdmin(c *gin.Context) (*authdomain.Admin, string, bool) {
	value, ok := c.Get(contextAdminKey)
	if !ok {
		return nil, "", false
	}
	admin, ok := value.(*authdomain.Admin)
	if !ok || admin == nil {
		return nil, "", false
	}
	return admin, c.GetString(contextTokenKey), true
}
