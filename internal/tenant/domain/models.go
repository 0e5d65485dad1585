package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant is one isolated business account. SchemaName is its partition key.
type Tenant struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"type:varchar(100);not null" json:"name"`
	SchemaName string       `gorm:"type:varchar(63);not null;uniqueIndex" json:"schema_name"`
	PaidUntil  *time.Time   `gorm:"type:date" json:"paid_until"`
	OnTrial    bool         `gorm:"not null" json:"on_trial"`
	CreatedOn  time.Time    `gorm:"not null" json:"created_on"`
	Domains    []Domain     `gorm:"foreignKey:TenantID" json:"domains,omitempty"`
}

func (Tenant) TableName() string { return "tenants" }

// Domain maps a hostname to its tenant.
type Domain struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Domain    string       `gorm:"type:varchar(253);not null;uniqueIndex" json:"domain"`
	IsPrimary bool         `gorm:"not null" json:"is_primary"`
}

func (Domain) TableName() string { return "tenant_domains" }
