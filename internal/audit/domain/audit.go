package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/pkg/db/pagination"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is one recorded mutation.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID      `gorm:"not null;index:idx_audit_tenant_created,priority:1" json:"-"`
	ActorID    *snowflake.ID     `json:"actor_id,omitempty"`
	Action     string            `gorm:"type:varchar(64);not null" json:"action"`
	TargetType string            `gorm:"type:varchar(64);not null" json:"target_type"`
	TargetID   *string           `gorm:"type:varchar(64)" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index:idx_audit_tenant_created,priority:2" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListRequest struct {
	pagination.Pagination
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, req ListRequest) ([]AuditLog, int64, error)
}

type Service interface {
	Record(ctx context.Context, scope tenantctx.Scope, entry Entry)
	List(ctx context.Context, scope tenantctx.Scope, req ListRequest) ([]AuditLog, pagination.PageInfo, error)
}

var (
	ErrInvalidAction = errors.New("invalid_action")
)
