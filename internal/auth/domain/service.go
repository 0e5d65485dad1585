package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"gorm.io/gorm"
)

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	// Logout removes token from the admin's active set. Removing a token
	// that is not in the set is a no-op.
	Logout(ctx context.Context, adminID snowflake.ID, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Admin, error)
	ForgetPassword(ctx context.Context, email string) (*ResetTicket, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	// CreateAdmin runs inside the caller's transaction.
	CreateAdmin(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, req CreateAdminRequest) (*Admin, error)
}

type Repository interface {
	FindAdminByEmail(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, email string) (*Admin, error)
	FindAdminByID(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, id snowflake.ID) (*Admin, error)
	InsertAdmin(ctx context.Context, db *gorm.DB, admin *Admin) error
	UpdateAdmin(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, id snowflake.ID, fields map[string]any) error

	FindSession(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID) (*Session, error)
	EnsureSession(ctx context.Context, db *gorm.DB, session *Session) error
	UpdateSession(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID, fields map[string]any) error
	ConsumeReset(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID, token string, now time.Time) (int64, error)

	AddToken(ctx context.Context, db *gorm.DB, token *SessionToken) error
	RemoveToken(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID, tokenHash string) (int64, error)
	RemoveAllTokens(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID) error
	TokenActive(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID, tokenHash string, now time.Time) (bool, error)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Admin     *Admin    `json:"admin"`
}

type ResetTicket struct {
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"resetToken"`
	NewPassword string `json:"password"`
}

type CreateAdminRequest struct {
	Email    string
	Password string
	Name     string
	Surname  string
}
