package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"gorm.io/gorm"
)

type Service interface {
	// Create stores the invoice and its items in one transaction. Credit
	// always starts at zero.
	Create(ctx context.Context, inv *Invoice) (*Invoice, error)
	// Update merges the header fields of payload; a present "items" key
	// replaces the item set.
	Update(ctx context.Context, id snowflake.ID, payload map[string]any) (*Invoice, error)
}

// Ledger moves invoice credit inside the caller's transaction.
type Ledger interface {
	IncrementCredit(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, invoiceID snowflake.ID, amount decimal.Decimal) (int64, error)
	AdjustCredit(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, invoiceID snowflake.ID, amount decimal.Decimal) (int64, error)
}
