package resource

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Base holds the columns shared by every tenant-owned entity.
type Base struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID  `gorm:"not null;index" json:"-"`
	Enabled   bool          `gorm:"not null" json:"enabled"`
	Removed   bool          `gorm:"not null;index" json:"removed"`
	CreatedBy *snowflake.ID `json:"created_by,omitempty"`
	Created   time.Time     `gorm:"not null;index" json:"created"`
	Updated   time.Time     `gorm:"not null" json:"updated"`
}

func (b *Base) GetBase() *Base { return b }

func (b *Base) SetTenantID(id snowflake.ID) { b.TenantID = id }

// Model is satisfied by a pointer to an entity embedding Base.
type Model[T any] interface {
	*T
	GetBase() *Base
	Validate() error
}
