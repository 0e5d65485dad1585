package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
)

// Product is a catalog entry. Documents snapshot its name and price into
// their line items.
type Product struct {
	resource.Base
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Reference   string          `gorm:"type:varchar(100);index" json:"reference"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"price"`
}

func (Product) TableName() string { return "products" }

func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	var v validation.Collector
	v.Required("name", p.Name)
	if p.Price.IsNegative() {
		v.Add("price", "invalid_value", "price cannot be negative")
	}
	return v.Err()
}

var Descriptor = resource.Descriptor{
	Name:         "product",
	SearchFields: []string{"name", "reference"},
	Filterable:   []string{"name", "reference", "enabled"},
	Fields: map[string]resource.Field{
		"name":        {Kind: resource.KindString, Required: true},
		"reference":   {Kind: resource.KindString},
		"description": {Kind: resource.KindText},
		"price":       {Kind: resource.KindDecimal, Required: true},
		"enabled":     {Kind: resource.KindBool},
	},
	HasOwner: true,
}

type Engine = resource.Engine[Product, *Product]
