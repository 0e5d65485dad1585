package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tenantdesk/internal/document"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
)

// Invoice is a billed document. Credit is the running sum of the payments
// recorded against it and is only ever moved by the payment ledger.
type Invoice struct {
	resource.Base
	document.Header
	Credit  decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"credit"`
	QuoteID *snowflake.ID   `gorm:"index" json:"quote_id,omitempty"`
	Items   []Item          `gorm:"foreignKey:InvoiceID" json:"items"`
}

func (Invoice) TableName() string { return "invoices" }

func (i *Invoice) Validate() error {
	var v validation.Collector
	i.Header.Validate(&v)
	document.ValidateLines(&v, document.Lines[Item, *Item](i.Items))
	return v.Err()
}

// Item is an invoice line.
type Item struct {
	document.Line
	InvoiceID snowflake.ID `gorm:"not null;index" json:"invoice_id"`
}

func (Item) TableName() string { return "invoice_items" }

func (i *Item) SetParent(id snowflake.ID) { i.InvoiceID = id }

var Descriptor = resource.Descriptor{
	Name:         "invoice",
	SearchFields: document.SearchFields,
	Filterable:   document.Filterable,
	Fields:       document.HeaderFields(),
	HasOwner:     true,
	Preloads:     []string{"Items"},
}

type Engine = resource.Engine[Invoice, *Invoice]
