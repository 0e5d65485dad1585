package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tenantdesk/internal/audit/domain"
	"github.com/smallbiznis/tenantdesk/internal/audit/masking"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	obscontext "github.com/smallbiznis/tenantdesk/internal/observability/context"
	"github.com/smallbiznis/tenantdesk/pkg/db/pagination"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Record appends an audit row. Failures are logged and swallowed so the
// audited operation is never rolled back by its audit trail.
func (s *Service) Record(ctx context.Context, scope tenantctx.Scope, entry auditdomain.Entry) {
	action := strings.TrimSpace(entry.Action)
	if action == "" || !scope.Valid() {
		s.log.Warn("audit entry dropped", zap.String("action", action), zap.Error(auditdomain.ErrInvalidAction))
		return
	}
	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	payload := masking.Redact(entry.Metadata)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		if payload == nil {
			payload = map[string]any{}
		}
		payload["request_id"] = requestID
	}

	row := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		TenantID:   scope.TenantID,
		Action:     action,
		TargetType: targetType,
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now(),
	}
	if actorID, ok := tenantctx.ActorID(ctx); ok {
		row.ActorID = &actorID
	}
	if targetID := strings.TrimSpace(entry.TargetID); targetID != "" {
		row.TargetID = &targetID
	}

	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("tenant", scope.Partition),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, scope tenantctx.Scope, req auditdomain.ListRequest) ([]auditdomain.AuditLog, pagination.PageInfo, error) {
	if !scope.Valid() {
		return nil, pagination.PageInfo{}, tenantctx.ErrMissingScope
	}
	req.Pagination = req.Pagination.Normalize()
	logs, total, err := s.repo.List(ctx, s.db, scope, req)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return logs, pagination.Build(req.Pagination, total), nil
}
