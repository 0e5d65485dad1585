package auth

import (
	"context"

	"github.com/smallbiznis/tenantdesk/internal/auth/domain"
	tenantdomain "github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"gorm.io/gorm"
)

// AdminBootstrapper creates the first admin of a new tenant when the
// creation request names one.
type AdminBootstrapper struct {
	svc domain.Service
}

func NewAdminBootstrapper(svc domain.Service) *AdminBootstrapper {
	return &AdminBootstrapper{svc: svc}
}

func (b *AdminBootstrapper) Bootstrap(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, req tenantdomain.CreateTenantRequest) error {
	if req.AdminEmail == "" {
		return nil
	}
	_, err := b.svc.CreateAdmin(ctx, tx, scope, domain.CreateAdminRequest{
		Email:    req.AdminEmail,
		Password: req.AdminPassword,
		Name:     req.AdminName,
	})
	return err
}
