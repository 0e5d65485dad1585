package rls

import (
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"gorm.io/gorm"
)

// WithTenant pins the postgres session variable read by the row level
// security policies for the lifetime of tx. Other dialects have no RLS and
// rely on the tenant_id predicate every repository adds.
func WithTenant(tx *gorm.DB, scope tenantctx.Scope) error {
	if tx == nil || tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT set_config('app.current_tenant', ?, true)", scope.TenantID.String()).Error
}
