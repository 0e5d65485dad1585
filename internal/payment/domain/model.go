package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tenantdesk/internal/document"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
)

// Payment is money received against an invoice.
type Payment struct {
	resource.Base
	Number        int64           `gorm:"not null;index" json:"number"`
	Year          int             `gorm:"not null;index" json:"year"`
	Date          time.Time       `gorm:"not null" json:"date"`
	Amount        decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	PaymentModeID *snowflake.ID   `json:"payment_mode_id,omitempty"`
	InvoiceID     snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	ClientID      snowflake.ID    `gorm:"not null;index" json:"client_id"`
	Note          string          `gorm:"type:text" json:"note"`
	Ref           string          `gorm:"type:varchar(255)" json:"ref"`
	PDF           string          `gorm:"type:varchar(255)" json:"pdf"`
}

func (Payment) TableName() string { return "payments" }

// Validate checks the caller-supplied fields. ClientID may be left empty and
// is then taken from the invoice.
func (p *Payment) Validate() error {
	p.Note = strings.TrimSpace(p.Note)
	p.Ref = strings.TrimSpace(p.Ref)

	var v validation.Collector
	if p.Number <= 0 {
		v.Add("number", "required", "number is required")
	}
	if p.Year <= 0 {
		v.Add("year", "required", "year is required")
	}
	if p.Date.IsZero() {
		v.Add("date", "required", "date is required")
	}
	if p.InvoiceID == 0 {
		v.Add("invoice_id", "required", "invoice_id is required")
	}
	if !p.Amount.IsPositive() {
		v.Add("amount", "invalid_value", "amount must be greater than zero")
	}
	return v.Err()
}

var Descriptor = resource.Descriptor{
	Name:         "payment",
	SearchFields: []string{"CAST(number AS CHAR(20))", "ref", "note"},
	Filterable:   []string{"invoice_id", "client_id", "payment_mode_id", "year", "number", "enabled"},
	Fields: map[string]resource.Field{
		"number":          {Kind: resource.KindInt, Required: true},
		"year":            {Kind: resource.KindInt, Required: true},
		"date":            {Kind: resource.KindDate, Required: true},
		"amount":          {Kind: resource.KindDecimal, Required: true},
		"payment_mode_id": {Kind: resource.KindID},
		"invoice_id":      {Kind: resource.KindID, Required: true},
		"client_id":       {Kind: resource.KindID, Required: true},
		"note":            {Kind: resource.KindText},
		"ref":             {Kind: resource.KindString},
		"enabled":         {Kind: resource.KindBool},
	},
	HasOwner: true,
}

type Engine = resource.Engine[Payment, *Payment]

type Service interface {
	// Record stores the payment and adds its amount to the invoice credit
	// in one transaction.
	Record(ctx context.Context, p *Payment) (*Payment, error)
	// Update merges payload; an amount change moves the invoice credit by
	// the difference.
	Update(ctx context.Context, id snowflake.ID, payload map[string]any) (*Payment, error)
	// Remove soft-deletes the payment and takes its amount back out of the
	// invoice credit.
	Remove(ctx context.Context, id snowflake.ID) (resource.DeleteResult[Payment], error)
}

// ErrLedgerInconsistent reports a payment whose credit update failed. The
// surrounding transaction is rolled back.
var ErrLedgerInconsistent = errors.New("ledger_inconsistent")

// PDFName is the rendered-document handle of a payment receipt.
func PDFName(id snowflake.ID) string {
	return document.PDFName("payment", id)
}
