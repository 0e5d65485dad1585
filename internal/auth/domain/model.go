// Package domain contains the admin identity and session types of a tenant.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Admin is a staff user of one tenant. All admins share one role tier.
type Admin struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID     snowflake.ID `gorm:"not null;uniqueIndex:ux_admins_tenant_email,priority:1" json:"-"`
	Email        string       `gorm:"type:varchar(255);not null;uniqueIndex:ux_admins_tenant_email,priority:2" json:"email"`
	Name         string       `gorm:"type:varchar(255);not null" json:"name"`
	Surname      string       `gorm:"type:varchar(255)" json:"surname"`
	PasswordHash string       `gorm:"type:text;not null" json:"-"`
	Enabled      bool         `gorm:"not null" json:"enabled"`
	Removed      bool         `gorm:"not null" json:"removed"`
	Created      time.Time    `gorm:"not null" json:"created"`
	Updated      time.Time    `gorm:"not null" json:"updated"`
}

func (Admin) TableName() string { return "admins" }

func (a *Admin) SetTenantID(id snowflake.ID) { a.TenantID = id }

// Active reports whether the admin may sign in.
func (a *Admin) Active() bool {
	return a.Enabled && !a.Removed
}

// Session is the per-admin record created on first login. It carries the
// pending password reset; the active tokens live in SessionToken rows.
type Session struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	TenantID    snowflake.ID `gorm:"not null;index"`
	AdminID     snowflake.ID `gorm:"not null;uniqueIndex"`
	ResetToken  *string      `gorm:"type:varchar(64)"`
	ResetExpiry *time.Time
	Created     time.Time `gorm:"not null"`
	Updated     time.Time `gorm:"not null"`
}

func (Session) TableName() string { return "admin_sessions" }

// SessionToken is one issued token in an admin's active set. Only the
// SHA-256 of the token is stored.
type SessionToken struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"not null;index"`
	AdminID   snowflake.ID `gorm:"not null;index"`
	TokenHash string       `gorm:"type:varchar(64);not null;uniqueIndex"`
	ExpiresAt time.Time    `gorm:"not null"`
	Created   time.Time    `gorm:"not null"`
}

func (SessionToken) TableName() string { return "admin_session_tokens" }
