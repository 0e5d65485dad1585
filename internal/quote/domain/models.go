package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/internal/document"
	invoicedomain "github.com/smallbiznis/tenantdesk/internal/invoice/domain"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
)

// Quote is a price offer to a client that may later become an invoice.
type Quote struct {
	resource.Base
	document.Header
	Items []Item `gorm:"foreignKey:QuoteID" json:"items"`
}

func (Quote) TableName() string { return "quotes" }

func (q *Quote) Validate() error {
	var v validation.Collector
	q.Header.Validate(&v)
	document.ValidateLines(&v, document.Lines[Item, *Item](q.Items))
	return v.Err()
}

type Item struct {
	document.Line
	QuoteID snowflake.ID `gorm:"not null;index" json:"quote_id"`
}

func (Item) TableName() string { return "quote_items" }

func (i *Item) SetParent(id snowflake.ID) { i.QuoteID = id }

var Descriptor = resource.Descriptor{
	Name:         "quote",
	SearchFields: document.SearchFields,
	Filterable:   document.Filterable,
	Fields:       document.HeaderFields(),
	HasOwner:     true,
	Preloads:     []string{"Items"},
}

type Engine = resource.Engine[Quote, *Quote]

type Service interface {
	Create(ctx context.Context, q *Quote) (*Quote, error)
	Update(ctx context.Context, id snowflake.ID, payload map[string]any) (*Quote, error)
	// Convert creates a draft invoice from the quote. The quote itself is
	// left unchanged and may be converted again.
	Convert(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error)
}
