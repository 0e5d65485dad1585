package scheduler

import (
	"context"
	"testing"
	"time"

	authdomain "github.com/smallbiznis/tenantdesk/internal/auth/domain"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.Session{}, &authdomain.SessionToken{}))

	s, err := New(Params{DB: conn, Log: zap.NewNop(), Clock: clock.NewFakeClock(testNow), Config: cfg})
	require.NoError(t, err)
	return s, conn
}

func seedSessions(t *testing.T, conn *gorm.DB) {
	t.Helper()
	tokens := []authdomain.SessionToken{
		{ID: 1, TenantID: 7, AdminID: 70, TokenHash: "expired-a", ExpiresAt: testNow.Add(-time.Hour), Created: testNow.Add(-25 * time.Hour)},
		{ID: 2, TenantID: 8, AdminID: 80, TokenHash: "expired-b", ExpiresAt: testNow.Add(-time.Minute), Created: testNow.Add(-25 * time.Hour)},
		{ID: 3, TenantID: 7, AdminID: 70, TokenHash: "live", ExpiresAt: testNow.Add(time.Hour), Created: testNow},
	}
	require.NoError(t, conn.Create(&tokens).Error)

	stale := "stale-reset"
	fresh := "fresh-reset"
	staleExpiry := testNow.Add(-time.Minute)
	freshExpiry := testNow.Add(30 * time.Minute)
	sessions := []authdomain.Session{
		{ID: 10, TenantID: 7, AdminID: 70, ResetToken: &stale, ResetExpiry: &staleExpiry, Created: testNow, Updated: testNow},
		{ID: 11, TenantID: 8, AdminID: 80, ResetToken: &fresh, ResetExpiry: &freshExpiry, Created: testNow, Updated: testNow},
		{ID: 12, TenantID: 8, AdminID: 81, Created: testNow, Updated: testNow},
	}
	require.NoError(t, conn.Create(&sessions).Error)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop(), Clock: clock.SystemClock{}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOncePurgesExpiredState(t *testing.T) {
	s, conn := newTestScheduler(t, Config{})
	seedSessions(t, conn)

	require.NoError(t, s.RunOnce(context.Background()))

	var hashes []string
	require.NoError(t, conn.Model(&authdomain.SessionToken{}).Order("id").Pluck("token_hash", &hashes).Error)
	assert.Equal(t, []string{"live"}, hashes)

	var sessions []authdomain.Session
	require.NoError(t, conn.Order("id").Find(&sessions).Error)
	require.Len(t, sessions, 3)
	assert.Nil(t, sessions[0].ResetToken)
	assert.Nil(t, sessions[0].ResetExpiry)
	require.NotNil(t, sessions[1].ResetToken)
	assert.Equal(t, "fresh-reset", *sessions[1].ResetToken)
	assert.Nil(t, sessions[2].ResetToken)
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	s, conn := newTestScheduler(t, Config{EnabledJobs: []string{JobClearExpiredResets}})
	seedSessions(t, conn)

	require.NoError(t, s.RunOnce(context.Background()))

	var tokens int64
	require.NoError(t, conn.Model(&authdomain.SessionToken{}).Count(&tokens).Error)
	assert.Equal(t, int64(3), tokens)

	var cleared int64
	require.NoError(t, conn.Model(&authdomain.Session{}).Where("reset_token IS NULL").Count(&cleared).Error)
	assert.Equal(t, int64(2), cleared)
}

func TestPurgeExpiredTokensJobReportsCount(t *testing.T) {
	s, conn := newTestScheduler(t, Config{})
	seedSessions(t, conn)

	n, err := s.PurgeExpiredTokensJob(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.PurgeExpiredTokensJob(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIsJobEnabledIsCaseInsensitive(t *testing.T) {
	s := &Scheduler{cfg: Config{EnabledJobs: []string{"PURGE_EXPIRED_TOKENS"}}}
	assert.True(t, s.isJobEnabled(JobPurgeExpiredTokens))
	assert.False(t, s.isJobEnabled(JobClearExpiredResets))
}
