package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/internal/auth/domain"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindAdminByEmail(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, email string) (*domain.Admin, error) {
	var admin domain.Admin
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND email = ?", scope.TenantID, email).
		Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *repo) FindAdminByID(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, id snowflake.ID) (*domain.Admin, error) {
	var admin domain.Admin
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", scope.TenantID, id).
		Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *repo) InsertAdmin(ctx context.Context, db *gorm.DB, admin *domain.Admin) error {
	return db.WithContext(ctx).Create(admin).Error
}

func (r *repo) UpdateAdmin(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Admin{}).
		Where("tenant_id = ? AND id = ?", scope.TenantID, id).
		Updates(fields).Error
}

func (r *repo) FindSession(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND admin_id = ?", scope.TenantID, adminID).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// EnsureSession inserts the session record unless the admin already has one.
func (r *repo) EnsureSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "admin_id"}}, DoNothing: true}).
		Create(session).Error
}

func (r *repo) UpdateSession(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("tenant_id = ? AND admin_id = ?", scope.TenantID, adminID).
		Updates(fields).Error
}

// ConsumeReset clears the pending reset only while it still matches token and
// has not expired. Zero rows affected means another request consumed it first.
func (r *repo) ConsumeReset(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID, token string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("tenant_id = ? AND admin_id = ? AND reset_token = ? AND reset_expiry >= ?", scope.TenantID, adminID, token, now).
		Updates(map[string]any{
			"reset_token":  nil,
			"reset_expiry": nil,
			"updated":      now,
		})
	return res.RowsAffected, res.Error
}

func (r *repo) AddToken(ctx context.Context, db *gorm.DB, token *domain.SessionToken) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_hash"}}, DoNothing: true}).
		Create(token).Error
}

func (r *repo) RemoveToken(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID, tokenHash string) (int64, error) {
	res := db.WithContext(ctx).
		Where("tenant_id = ? AND admin_id = ? AND token_hash = ?", scope.TenantID, adminID, tokenHash).
		Delete(&domain.SessionToken{})
	return res.RowsAffected, res.Error
}

func (r *repo) RemoveAllTokens(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("tenant_id = ? AND admin_id = ?", scope.TenantID, adminID).
		Delete(&domain.SessionToken{}).Error
}

func (r *repo) TokenActive(ctx context.Context, db *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID, tokenHash string, now time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.SessionToken{}).
		Where("tenant_id = ? AND admin_id = ? AND token_hash = ? AND expires_at > ?", scope.TenantID, adminID, tokenHash, now).
		Count(&count).Error
	return count > 0, err
}
