package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
)

// Customer is a client of the tenant business.
type Customer struct {
	resource.Base
	Name     string        `gorm:"type:varchar(255);not null" json:"name"`
	Phone    string        `gorm:"type:varchar(50)" json:"phone"`
	Country  string        `gorm:"type:varchar(100)" json:"country"`
	Address  string        `gorm:"type:text" json:"address"`
	Email    string        `gorm:"type:varchar(255);index" json:"email"`
	Assigned *snowflake.ID `json:"assigned,omitempty"`
}

func (Customer) TableName() string { return "customers" }

func (c *Customer) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)

	var v validation.Collector
	v.Required("name", c.Name)
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		v.Add("email", "invalid_format", "email is not a valid address")
	}
	return v.Err()
}

var Descriptor = resource.Descriptor{
	Name:         "client",
	SearchFields: []string{"name", "email", "phone"},
	Filterable:   []string{"name", "email", "country", "enabled", "assigned"},
	Fields: map[string]resource.Field{
		"name":     {Kind: resource.KindString, Required: true},
		"phone":    {Kind: resource.KindString},
		"country":  {Kind: resource.KindString},
		"address":  {Kind: resource.KindText},
		"email":    {Kind: resource.KindEmail},
		"assigned": {Kind: resource.KindID},
		"enabled":  {Kind: resource.KindBool},
	},
	HasOwner: true,
}

type Engine = resource.Engine[Customer, *Customer]
