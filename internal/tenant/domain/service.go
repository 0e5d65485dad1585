package domain

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"gorm.io/gorm"
)

type CreateTenantRequest struct {
	Name          string `json:"name"`
	SchemaName    string `json:"schema_name"`
	DomainName    string `json:"domain_name"`
	AdminEmail    string `json:"admin_email,omitempty"`
	AdminPassword string `json:"admin_password,omitempty"`
	AdminName     string `json:"admin_name,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateTenantRequest) (Tenant, error)
	Resolve(ctx context.Context, host string) (Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	EnsureSingle(ctx context.Context) (Tenant, error)
}

// Bootstrapper seeds tenant-owned state inside the tenant creation
// transaction. Any error rolls the whole tenant back.
type Bootstrapper interface {
	Bootstrap(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, req CreateTenantRequest) error
}

var (
	ErrNotFound     = errors.New("tenant_not_found")
	ErrConflict     = errors.New("tenant_conflict")
	ErrInvalidInput = errors.New("invalid_tenant_input")
)

// NormalizeHost lower-cases host and strips any port and trailing dot.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}
