package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Setting is one tenant-wide configuration value keyed by name.
type Setting struct {
	ID       snowflake.ID   `gorm:"primaryKey" json:"id"`
	TenantID snowflake.ID   `gorm:"not null;uniqueIndex:idx_settings_tenant_key,priority:1" json:"-"`
	Key      string         `gorm:"column:setting_key;type:varchar(100);not null;uniqueIndex:idx_settings_tenant_key,priority:2" json:"key"`
	Value    datatypes.JSON `json:"value"`
	Enabled  bool           `gorm:"not null" json:"enabled"`
	Removed  bool           `gorm:"not null" json:"removed"`
	Created  time.Time      `gorm:"not null" json:"created"`
	Updated  time.Time      `gorm:"not null" json:"updated"`
}

func (Setting) TableName() string { return "settings" }

func (s *Setting) SetTenantID(id snowflake.ID) { s.TenantID = id }

type Service interface {
	List(ctx context.Context) ([]*Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, key string, value any) (*Setting, error)
	// Lookup decodes the value of key into out; it reports false when the
	// key is absent.
	Lookup(ctx context.Context, key string, out any) (bool, error)
}

var (
	ErrNotFound = errors.New("setting_not_found")
)
