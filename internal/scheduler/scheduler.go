// Package scheduler runs periodic maintenance over the session store:
// expired bearer tokens are purged and lapsed password reset tokens are
// cleared, across all tenants.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	authdomain "github.com/smallbiznis/tenantdesk/internal/auth/domain"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobPurgeExpiredTokens = "purge_expired_tokens"
	JobClearExpiredResets = "clear_expired_resets"

	runLockKey = "tenantdesk:scheduler"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Locker *ratelimit.Locker `optional:"true"`
	Config Config            `optional:"true"`
}

type Scheduler struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	locker *ratelimit.Locker
	cfg    Config
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:     p.DB,
		log:    p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:  p.Clock,
		locker: p.Locker,
		cfg:    p.Config.withDefaults(),
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) (int64, error)) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	affected, err := fn(ctx)
	log := s.log.With(
		zap.String("job", name),
		zap.Int64("affected", affected),
		zap.Duration("duration", s.clock.Now().Sub(start)),
	)
	if err == nil {
		if affected > 0 {
			log.Info("job finished")
		} else {
			log.Debug("job finished")
		}
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every enabled job once.
func (s *Scheduler) RunOnce(parent context.Context) error {
	jobs := []struct {
		Name string
		Run  func(context.Context) (int64, error)
	}{
		{JobPurgeExpiredTokens, s.PurgeExpiredTokensJob},
		{JobClearExpiredResets, s.ClearExpiredResetsJob},
	}

	var err error
	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
		}
	}
	return err
}

// RunForever ticks until ctx is done. With a Redis-backed locker only one
// instance runs each tick.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		err := s.locker.WithLock(ctx, runLockKey, s.cfg.RunInterval, 0, s.RunOnce)
		switch {
		case errors.Is(err, ratelimit.ErrLockHeld):
			s.log.Debug("scheduler tick skipped, lock held elsewhere")
		case err != nil:
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// PurgeExpiredTokensJob deletes session tokens past their expiry.
func (s *Scheduler) PurgeExpiredTokensJob(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", s.clock.Now()).
		Delete(&authdomain.SessionToken{})
	return res.RowsAffected, res.Error
}

// ClearExpiredResetsJob drops password reset tokens that can no longer be
// redeemed.
func (s *Scheduler) ClearExpiredResetsJob(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	res := s.db.WithContext(ctx).
		Model(&authdomain.Session{}).
		Where("reset_expiry IS NOT NULL AND reset_expiry < ?", now).
		Updates(map[string]any{
			"reset_token":  nil,
			"reset_expiry": nil,
			"updated":      now,
		})
	return res.RowsAffected, res.Error
}
