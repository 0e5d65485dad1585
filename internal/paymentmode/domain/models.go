package domain

import (
	"strings"

	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
)

// PaymentMode is a way the tenant accepts money (cash, transfer, card).
type PaymentMode struct {
	resource.Base
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IsDefault   bool   `gorm:"not null" json:"is_default"`
}

func (PaymentMode) TableName() string { return "payment_modes" }

func (m *PaymentMode) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	var v validation.Collector
	v.Required("name", m.Name)
	return v.Err()
}

var Descriptor = resource.Descriptor{
	Name:         "paymentMode",
	SearchFields: []string{"name"},
	Filterable:   []string{"name", "enabled", "is_default"},
	Fields: map[string]resource.Field{
		"name":        {Kind: resource.KindString, Required: true},
		"description": {Kind: resource.KindText},
		"is_default":  {Kind: resource.KindBool},
		"enabled":     {Kind: resource.KindBool},
	},
	HasOwner: true,
}

type Engine = resource.Engine[PaymentMode, *PaymentMode]
