package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/invoice/domain"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"gorm.io/gorm"
)

type ledger struct {
	clock clock.Clock
}

func Provide(c clock.Clock) domain.Ledger {
	return &ledger{clock: c}
}

// IncrementCredit adds amount to the stored credit in a single statement so
// concurrent payments never overwrite each other. It returns the number of
// live invoices touched.
func (l *ledger) IncrementCredit(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, invoiceID snowflake.ID, amount decimal.Decimal) (int64, error) {
	return l.move(ctx, tx, scope, invoiceID, amount, true)
}

// AdjustCredit is IncrementCredit without the removed filter. Corrections to
// payments already recorded still land on a soft-deleted invoice.
func (l *ledger) AdjustCredit(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, invoiceID snowflake.ID, amount decimal.Decimal) (int64, error) {
	return l.move(ctx, tx, scope, invoiceID, amount, false)
}

func (l *ledger) move(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, invoiceID snowflake.ID, amount decimal.Decimal, liveOnly bool) (int64, error) {
	q := tx.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("tenant_id = ? AND id = ?", scope.TenantID, invoiceID)
	if liveOnly {
		q = q.Where("removed = ?", false)
	}
	res := q.UpdateColumns(map[string]any{
		"credit":  gorm.Expr("credit + ?", amount),
		"updated": l.clock.Now(),
	})
	return res.RowsAffected, res.Error
}
