package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/internal/auth/domain"
	"github.com/smallbiznis/tenantdesk/internal/auth/repository"
	"github.com/smallbiznis/tenantdesk/internal/auth/token"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/config"
	"github.com/smallbiznis/tenantdesk/internal/providers/email"
	"github.com/smallbiznis/tenantdesk/internal/ratelimit"
	"github.com/smallbiznis/tenantdesk/pkg/db"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var acme = tenantctx.Scope{TenantID: 1, Partition: "acme"}

type harness struct {
	svc   *Service
	db    *gorm.DB
	clock *clock.FakeClock
	mail  *email.MemoryProvider
	ctx   context.Context
}

func newHarness(t *testing.T, limits config.RateLimitConfig) harness {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Admin{}, &domain.Session{}, &domain.SessionToken{}))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	cfg := config.Config{AppName: "tenantdesk", RateLimit: limits}
	mail := &email.MemoryProvider{}

	svc := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fc,
		Config: cfg,
		Repo:   repository.Provide(),
		Issuer: token.NewIssuer([]byte("test-secret"), 24*time.Hour, "tenantdesk", fc),
		Email:  mail,
		Limiter: ratelimit.NewLoginLimiter(ratelimit.LoginLimiterParams{
			Config: cfg,
			Clock:  fc,
			Log:    zap.NewNop(),
		}),
	}).(*Service)

	h := harness{svc: svc, db: conn, clock: fc, mail: mail, ctx: tenantctx.WithScope(context.Background(), acme)}
	_, err = svc.CreateAdmin(h.ctx, conn, acme, domain.CreateAdminRequest{
		Email:    "Owner@Acme.test",
		Password: "correct-horse",
		Name:     "Owner",
	})
	require.NoError(t, err)
	return h
}

func (h harness) login(t *testing.T, pass string) (*domain.LoginResult, error) {
	t.Helper()
	return h.svc.Login(h.ctx, domain.LoginRequest{Email: "owner@acme.test", Password: pass})
}

func TestLoginAndAuthenticate(t *testing.T) {
	h := newHarness(t, config.RateLimitConfig{})

	res, err := h.login(t, "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, "owner@acme.test", res.Admin.Email)

	admin, err := h.svc.Authenticate(h.ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Admin.ID, admin.ID)

	t.Run("token of another tenant", func(t *testing.T) {
		other := tenantctx.WithScope(context.Background(), tenantctx.Scope{TenantID: 2, Partition: "globex"})
		_, err := h.svc.Authenticate(other, res.Token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := h.svc.Authenticate(h.ctx, "not-a-jwt")
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("expired token", func(t *testing.T) {
		h.clock.Advance(25 * time.Hour)
		_, err := h.svc.Authenticate(h.ctx, res.Token)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})
}

func TestLoginFailuresLookAlike(t *testing.T) {
	h := newHarness(t, config.RateLimitConfig{})

	_, err := h.login(t, "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = h.svc.Login(h.ctx, domain.LoginRequest{Email: "nobody@acme.test", Password: "correct-horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, h.db.Model(&domain.Admin{}).Where("email = ?", "owner@acme.test").Update("enabled", false).Error)
	_, err = h.login(t, "correct-horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, h.db.Model(&domain.Admin{}).Where("email = ?", "owner@acme.test").
		Updates(map[string]any{"enabled": true, "removed": true}).Error)
	_, err = h.login(t, "correct-horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = h.svc.Login(h.ctx, domain.LoginRequest{Email: "owner@acme.test"})
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestLogout(t *testing.T) {
	h := newHarness(t, config.RateLimitConfig{})

	var admin domain.Admin
	require.NoError(t, h.db.Where("email = ?", "owner@acme.test").Take(&admin).Error)

	err := h.svc.Logout(h.ctx, admin.ID, "whatever")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	first, err := h.login(t, "correct-horse")
	require.NoError(t, err)
	second, err := h.login(t, "correct-horse")
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(h.ctx, admin.ID, first.Token))
	_, err = h.svc.Authenticate(h.ctx, first.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = h.svc.Authenticate(h.ctx, second.Token)
	assert.NoError(t, err)

	assert.NoError(t, h.svc.Logout(h.ctx, admin.ID, first.Token))
}

func TestPasswordReset(t *testing.T) {
	h := newHarness(t, config.RateLimitConfig{})
	session, err := h.login(t, "correct-horse")
	require.NoError(t, err)

	ticket, err := h.svc.ForgetPassword(h.ctx, "owner@acme.test")
	require.NoError(t, err)
	assert.Equal(t, h.clock.Now().Add(time.Hour), ticket.ExpiresAt)

	sent := h.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"owner@acme.test"}, sent[0].To)
	assert.True(t, strings.Contains(sent[0].HTML, ticket.Token))

	reset := func(tok string) error {
		return h.svc.ResetPassword(h.ctx, domain.ResetPasswordRequest{
			Email:       "owner@acme.test",
			Token:       tok,
			NewPassword: "battery-staple",
		})
	}

	assert.ErrorIs(t, reset("not-the-token"), domain.ErrInvalidResetToken)
	require.NoError(t, reset(ticket.Token))

	_, err = h.svc.Authenticate(h.ctx, session.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
	_, err = h.login(t, "correct-horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = h.login(t, "battery-staple")
	assert.NoError(t, err)

	assert.ErrorIs(t, reset(ticket.Token), domain.ErrInvalidResetToken)

	t.Run("expired", func(t *testing.T) {
		ticket, err := h.svc.ForgetPassword(h.ctx, "owner@acme.test")
		require.NoError(t, err)
		h.clock.Advance(61 * time.Minute)
		assert.ErrorIs(t, reset(ticket.Token), domain.ErrResetTokenExpired)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := h.svc.ForgetPassword(h.ctx, "ghost@acme.test")
		assert.ErrorIs(t, err, domain.ErrAdminNotFound)
	})
}

func TestResetTokenIsSingleUseUnderConcurrency(t *testing.T) {
	for round := 0; round < 10; round++ {
		h := newHarness(t, config.RateLimitConfig{})
		ticket, err := h.svc.ForgetPassword(h.ctx, "owner@acme.test")
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = h.svc.ResetPassword(h.ctx, domain.ResetPasswordRequest{
					Email:       "owner@acme.test",
					Token:       ticket.Token,
					NewPassword: "battery-staple",
				})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrInvalidResetToken)
		}
		assert.Equal(t, 1, succeeded, "round %d", round)
	}
}

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t, config.RateLimitConfig{LoginRate: 0.001, LoginBurst: 2})

	for i := 0; i < 2; i++ {
		_, err := h.login(t, "wrong-password")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	_, err := h.login(t, "correct-horse")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	var limited *domain.RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Positive(t, limited.RetryAfter)
}

func TestCreateAdmin(t *testing.T) {
	h := newHarness(t, config.RateLimitConfig{})

	_, err := h.svc.CreateAdmin(h.ctx, h.db, acme, domain.CreateAdminRequest{Email: "owner@acme.test", Password: "another-pass"})
	assert.ErrorIs(t, err, domain.ErrAdminExists)

	_, err = h.svc.CreateAdmin(h.ctx, h.db, acme, domain.CreateAdminRequest{Email: "not-an-email", Password: "short"})
	errs, ok := validation.As(err)
	require.True(t, ok)
	assert.Len(t, errs, 2)

	other := tenantctx.Scope{TenantID: 2, Partition: "globex"}
	admin, err := h.svc.CreateAdmin(h.ctx, h.db, other, domain.CreateAdminRequest{Email: "owner@acme.test", Password: "another-pass"})
	require.NoError(t, err)
	assert.Equal(t, "owner", admin.Name)
}
