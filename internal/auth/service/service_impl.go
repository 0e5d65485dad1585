package service

import (
	"context"
	"crypto/subtle"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/tenantdesk/internal/auth/domain"
	"github.com/smallbiznis/tenantdesk/internal/auth/password"
	"github.com/smallbiznis/tenantdesk/internal/auth/token"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/config"
	"github.com/smallbiznis/tenantdesk/internal/observability/metrics"
	"github.com/smallbiznis/tenantdesk/internal/providers/email"
	"github.com/smallbiznis/tenantdesk/internal/ratelimit"
	"github.com/smallbiznis/tenantdesk/pkg/db"
	"github.com/smallbiznis/tenantdesk/pkg/rls"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

// dummyHash keeps unknown-email logins as slow as wrong-password ones.
var dummyHash, _ = password.Hash("tenantdesk-dummy-password")

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Repo    domain.Repository
	Issuer  *token.Issuer
	Email   email.Provider
	Limiter *ratelimit.LoginLimiter `optional:"true"`
	Metrics *metrics.Metrics        `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	cfg     config.Config
	repo    domain.Repository
	issuer  *token.Issuer
	email   email.Provider
	limiter *ratelimit.LoginLimiter
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("auth.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		cfg:     p.Config,
		repo:    p.Repo,
		issuer:  p.Issuer,
		email:   p.Email,
		limiter: p.Limiter,
		metrics: p.Metrics,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	addr := normalizeEmail(req.Email)
	var v validation.Collector
	v.Required("email", addr)
	v.Required("password", req.Password)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.throttle(ctx, scope, "login", addr); err != nil {
		return nil, err
	}

	admin, err := s.repo.FindAdminByEmail(ctx, s.db, scope, addr)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		password.Verify(req.Password, dummyHash)
		s.metrics.RecordLoginFailure(ctx, scope.Partition, "unknown_email")
		return nil, domain.ErrInvalidCredentials
	}
	if !password.Verify(req.Password, admin.PasswordHash) {
		s.metrics.RecordLoginFailure(ctx, scope.Partition, "wrong_password")
		return nil, domain.ErrInvalidCredentials
	}
	if !admin.Active() {
		s.metrics.RecordLoginFailure(ctx, scope.Partition, "inactive")
		return nil, domain.ErrInvalidCredentials
	}

	raw, expires, err := s.issuer.Issue(admin.ID, scope.Partition)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, scope); err != nil {
			return err
		}
		if err := s.ensureSession(ctx, tx, scope, admin.ID, now); err != nil {
			return err
		}
		return s.repo.AddToken(ctx, tx, &domain.SessionToken{
			ID:        s.genID.Generate(),
			TenantID:  scope.TenantID,
			AdminID:   admin.ID,
			TokenHash: token.Hash(raw),
			ExpiresAt: expires,
			Created:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("admin logged in",
		zap.String("tenant", scope.Partition),
		zap.String("admin_id", admin.ID.String()),
	)
	return &domain.LoginResult{Token: raw, ExpiresAt: expires, Admin: admin}, nil
}

func (s *Service) Logout(ctx context.Context, adminID snowflake.ID, rawToken string) error {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return err
	}
	session, err := s.repo.FindSession(ctx, s.db, scope, adminID)
	if err != nil {
		return err
	}
	if session == nil {
		return domain.ErrSessionNotFound
	}
	_, err = s.repo.RemoveToken(ctx, s.db, scope, adminID, token.Hash(rawToken))
	return err
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Admin, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawToken) == "" {
		return nil, domain.ErrUnauthenticated
	}

	claims, err := s.issuer.Parse(rawToken)
	if err != nil {
		return nil, domain.ErrInvalidSession
	}
	if claims.Tenant != scope.Partition {
		return nil, domain.ErrInvalidSession
	}
	adminID, err := claims.AdminID()
	if err != nil {
		return nil, domain.ErrInvalidSession
	}

	active, err := s.repo.TokenActive(ctx, s.db, scope, adminID, token.Hash(rawToken), s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, domain.ErrInvalidSession
	}

	admin, err := s.repo.FindAdminByID(ctx, s.db, scope, adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil || !admin.Active() {
		return nil, domain.ErrInvalidSession
	}
	return admin, nil
}

func (s *Service) ForgetPassword(ctx context.Context, addr string) (*domain.ResetTicket, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	addr = normalizeEmail(addr)
	if addr == "" {
		return nil, validation.New("email", "required", "email is required")
	}
	if err := s.throttle(ctx, scope, "forgetpassword", addr); err != nil {
		return nil, err
	}

	admin, err := s.repo.FindAdminByEmail(ctx, s.db, scope, addr)
	if err != nil {
		return nil, err
	}
	if admin == nil || admin.Removed {
		return nil, domain.ErrAdminNotFound
	}

	now := s.clock.Now()
	ticket := &domain.ResetTicket{
		Email:     addr,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(resetTokenTTL),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, scope); err != nil {
			return err
		}
		if err := s.ensureSession(ctx, tx, scope, admin.ID, now); err != nil {
			return err
		}
		return s.repo.UpdateSession(ctx, tx, scope, admin.ID, map[string]any{
			"reset_token":  ticket.Token,
			"reset_expiry": ticket.ExpiresAt,
			"updated":      now,
		})
	})
	if err != nil {
		return nil, err
	}

	err = s.email.SendTemplate(ctx, []string{addr}, email.TemplatePasswordReset, map[string]any{
		"Company":   s.cfg.AppName,
		"Name":      admin.Name,
		"Token":     ticket.Token,
		"ExpiresAt": ticket.ExpiresAt.Format(time.RFC1123),
	})
	if err != nil {
		s.log.Warn("password reset email failed",
			zap.String("tenant", scope.Partition),
			zap.String("admin_id", admin.ID.String()),
			zap.Error(err),
		)
	}
	return ticket, nil
}

func (s *Service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return err
	}
	addr := normalizeEmail(req.Email)
	var v validation.Collector
	v.Required("email", addr)
	v.Required("resetToken", req.Token)
	v.Required("password", req.NewPassword)
	if req.NewPassword != "" && len(req.NewPassword) < password.MinLength {
		v.Add("password", "too_short", "password must be at least 8 characters")
	}
	if err := v.Err(); err != nil {
		return err
	}

	admin, err := s.repo.FindAdminByEmail(ctx, s.db, scope, addr)
	if err != nil {
		return err
	}
	if admin == nil || admin.Removed {
		return domain.ErrInvalidResetToken
	}
	session, err := s.repo.FindSession(ctx, s.db, scope, admin.ID)
	if err != nil {
		return err
	}
	if session == nil || session.ResetToken == nil ||
		subtle.ConstantTimeCompare([]byte(*session.ResetToken), []byte(req.Token)) != 1 {
		return domain.ErrInvalidResetToken
	}
	now := s.clock.Now()
	if session.ResetExpiry == nil || session.ResetExpiry.Before(now) {
		return domain.ErrResetTokenExpired
	}

	hashed, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, scope); err != nil {
			return err
		}
		consumed, err := s.repo.ConsumeReset(ctx, tx, scope, admin.ID, req.Token, now)
		if err != nil {
			return err
		}
		if consumed == 0 {
			return domain.ErrInvalidResetToken
		}
		if err := s.repo.UpdateAdmin(ctx, tx, scope, admin.ID, map[string]any{
			"password_hash": hashed,
			"updated":       now,
		}); err != nil {
			return err
		}
		return s.repo.RemoveAllTokens(ctx, tx, scope, admin.ID)
	})
}

func (s *Service) CreateAdmin(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, req domain.CreateAdminRequest) (*domain.Admin, error) {
	addr := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name, _, _ = strings.Cut(addr, "@")
	}

	var v validation.Collector
	v.Required("admin_email", addr)
	if addr != "" {
		if _, err := mail.ParseAddress(addr); err != nil {
			v.Add("admin_email", "invalid_format", "admin_email is not a valid address")
		}
	}
	if len(req.Password) < password.MinLength {
		v.Add("admin_password", "too_short", "admin_password must be at least 8 characters")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindAdminByEmail(ctx, tx, scope, addr)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAdminExists
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	admin := &domain.Admin{
		ID:           s.genID.Generate(),
		TenantID:     scope.TenantID,
		Email:        addr,
		Name:         name,
		Surname:      strings.TrimSpace(req.Surname),
		PasswordHash: hashed,
		Enabled:      true,
		Created:      now,
		Updated:      now,
	}
	if err := s.repo.InsertAdmin(ctx, tx, admin); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAdminExists
		}
		return nil, err
	}
	return admin, nil
}

func (s *Service) ensureSession(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, adminID snowflake.ID, now time.Time) error {
	return s.repo.EnsureSession(ctx, tx, &domain.Session{
		ID:       s.genID.Generate(),
		TenantID: scope.TenantID,
		AdminID:  adminID,
		Created:  now,
		Updated:  now,
	})
}

func (s *Service) throttle(ctx context.Context, scope tenantctx.Scope, endpoint, subject string) error {
	res, err := s.limiter.Allow(ctx, scope.Partition, endpoint+":"+subject)
	if err != nil {
		s.log.Warn("rate limit check failed", zap.Error(err))
		return nil
	}
	if res.Allowed {
		return nil
	}
	s.metrics.RecordRateLimitDenied(ctx, scope.Partition, endpoint)
	return &domain.RateLimitedError{RetryAfter: res.RetryAfter}
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
