// Package document holds the header and line item shapes shared by quotes
// and invoices, and the helpers that persist line items with their parent.
package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/repository"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"gorm.io/gorm"
)

const (
	StatusDraft   = "draft"
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusPaid    = "paid"
)

// Header is the commercial part of a quote or invoice. Totals are stored
// as supplied by the caller.
type Header struct {
	Number     int64           `gorm:"not null;index" json:"number"`
	Year       int             `gorm:"not null;index" json:"year"`
	Date       time.Time       `gorm:"not null" json:"date"`
	ExpiryDate *time.Time      `json:"expired_date,omitempty"`
	ClientID   snowflake.ID    `gorm:"not null;index" json:"client_id"`
	SubTotal   decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"sub_total"`
	TaxRate    decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_rate"`
	TaxTotal   decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"tax_total"`
	Discount   decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"discount"`
	Total      decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"total"`
	Note       string          `gorm:"type:text" json:"note"`
	Status     string          `gorm:"type:varchar(20);not null;index" json:"status"`
	PDF        string          `gorm:"type:varchar(255)" json:"pdf"`
}

// Validate normalizes the header and records missing required fields.
func (h *Header) Validate(v *validation.Collector) {
	h.Status = strings.ToLower(strings.TrimSpace(h.Status))
	if h.Status == "" {
		h.Status = StatusDraft
	}
	h.Note = strings.TrimSpace(h.Note)

	if h.Number <= 0 {
		v.Add("number", "required", "number is required")
	}
	if h.Year <= 0 {
		v.Add("year", "required", "year is required")
	}
	if h.Date.IsZero() {
		v.Add("date", "required", "date is required")
	}
	if h.ClientID == 0 {
		v.Add("client_id", "required", "client_id is required")
	}
	if h.ExpiryDate != nil && h.ExpiryDate.Before(h.Date) {
		v.Add("expired_date", "invalid_value", "expired_date cannot be before date")
	}
}

// CheckMerged validates a stored header after a partial update was applied
// to it, so rules spanning two fields hold whichever one was patched.
func CheckMerged(h Header) error {
	var v validation.Collector
	h.Validate(&v)
	return v.Err()
}

// Line is a snapshot of a sold item, decoupled from the live product.
type Line struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID    `gorm:"not null;index" json:"-"`
	ProductID   *snowflake.ID   `json:"product_id,omitempty"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"price"`
	Total       decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"total"`
}

func (l *Line) GetLine() *Line { return l }

func (l *Line) SetTenantID(id snowflake.ID) { l.TenantID = id }

// Copy returns the line without its identity so it can be re-parented.
func (l Line) Copy() Line {
	l.ID = 0
	l.TenantID = 0
	if l.ProductID != nil {
		pid := *l.ProductID
		l.ProductID = &pid
	}
	return l
}

// LineItem is satisfied by a pointer to a concrete item type embedding Line.
type LineItem[I any] interface {
	*I
	GetLine() *Line
	SetParent(id snowflake.ID)
}

// ValidateLines records field errors as items[i].field.
func ValidateLines(v *validation.Collector, lines []*Line) {
	for i, l := range lines {
		l.Name = strings.TrimSpace(l.Name)
		prefix := fmt.Sprintf("items[%d].", i)
		if l.Name == "" {
			v.Add(prefix+"name", "required", "name is required")
		}
		if l.Quantity.IsNegative() {
			v.Add(prefix+"quantity", "invalid_value", "quantity cannot be negative")
		}
		if l.Price.IsNegative() {
			v.Add(prefix+"price", "invalid_value", "price cannot be negative")
		}
	}
}

// Lines returns pointers to the embedded Line of each item.
func Lines[I any, PI LineItem[I]](items []I) []*Line {
	out := make([]*Line, 0, len(items))
	for i := range items {
		out = append(out, PI(&items[i]).GetLine())
	}
	return out
}

// SaveItems binds items to parentID and inserts them inside tx. When replace
// is set, the parent's existing items are deleted first.
func SaveItems[I any, PI LineItem[I]](
	ctx context.Context,
	tx *gorm.DB,
	scope tenantctx.Scope,
	newID func() snowflake.ID,
	parentColumn string,
	parentID snowflake.ID,
	items []I,
	replace bool,
) error {
	if replace {
		err := tx.WithContext(ctx).
			Where("tenant_id = ?", scope.TenantID).
			Where(parentColumn+" = ?", parentID).
			Delete(new(I)).Error
		if err != nil {
			return err
		}
	}
	if len(items) == 0 {
		return nil
	}

	rows := make([]*I, 0, len(items))
	for i := range items {
		item := PI(&items[i])
		item.GetLine().ID = newID()
		item.SetParent(parentID)
		rows = append(rows, &items[i])
	}
	return repository.ProvideStore[I](tx).BatchCreate(ctx, scope, rows)
}

// PDFName is the rendered-document handle for a stored document.
func PDFName(kind string, id snowflake.ID) string {
	return kind + "-" + id.String() + ".pdf"
}

// HeaderFields are the client-writable header attributes.
func HeaderFields() map[string]resource.Field {
	return map[string]resource.Field{
		"number":       {Kind: resource.KindInt, Required: true},
		"year":         {Kind: resource.KindInt, Required: true},
		"date":         {Kind: resource.KindDate, Required: true},
		"expired_date": {Column: "expiry_date", Kind: resource.KindDate},
		"client_id":    {Kind: resource.KindID, Required: true},
		"sub_total":    {Kind: resource.KindDecimal, Required: true},
		"tax_rate":     {Kind: resource.KindDecimal, Required: true},
		"tax_total":    {Kind: resource.KindDecimal, Required: true},
		"discount":     {Kind: resource.KindDecimal, Required: true},
		"total":        {Kind: resource.KindDecimal, Required: true},
		"note":         {Kind: resource.KindText},
		"status":       {Kind: resource.KindString, Required: true},
		"enabled":      {Kind: resource.KindBool},
	}
}

// SearchFields lets the document number be matched as text on every dialect.
var SearchFields = []string{"CAST(number AS CHAR(20))", "note"}

var Filterable = []string{"status", "client_id", "year", "number", "enabled"}
