package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/tenantdesk/internal/customer/domain"
	"github.com/smallbiznis/tenantdesk/internal/document"
	"github.com/smallbiznis/tenantdesk/internal/invoice/domain"
	"github.com/smallbiznis/tenantdesk/internal/observability/metrics"
	"github.com/smallbiznis/tenantdesk/pkg/rls"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Engine    *domain.Engine
	Customers *customerdomain.Engine
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	engine    *domain.Engine
	customers *customerdomain.Engine
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		engine:    p.Engine,
		customers: p.Customers,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	items := inv.Items
	inv.Items = nil
	inv.ID = s.engine.GenID()
	inv.PDF = document.PDFName("invoice", inv.ID)
	inv.Credit = decimal.Zero

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, scope); err != nil {
			return err
		}
		if err := document.RequireClient(ctx, tx, s.customers, inv.ClientID); err != nil {
			return err
		}
		if _, err := s.engine.WithTx(tx).Create(ctx, inv); err != nil {
			return err
		}
		return document.SaveItems[domain.Item, *domain.Item](ctx, tx, scope, s.engine.GenID, "invoice_id", inv.ID, items, false)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDocumentCreated(ctx, scope.Partition, "invoice")
	s.log.Debug("invoice created",
		zap.String("tenant", scope.Partition),
		zap.String("invoice_id", inv.ID.String()),
		zap.Int("items", len(items)),
	)
	return s.engine.Read(ctx, inv.ID)
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, payload map[string]any) (*domain.Invoice, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	items, replace, err := document.TakeItems[domain.Item](payload)
	if err != nil {
		return nil, err
	}
	if replace {
		if err := validateItems(items); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, scope); err != nil {
			return err
		}
		updated, err := s.engine.WithTx(tx).Update(ctx, id, payload)
		if err != nil {
			return err
		}
		if err := document.CheckMerged(updated.Header); err != nil {
			return err
		}
		if _, ok := payload["client_id"]; ok {
			if err := document.RequireClient(ctx, tx, s.customers, updated.ClientID); err != nil {
				return err
			}
		}
		if !replace {
			return nil
		}
		return document.SaveItems[domain.Item, *domain.Item](ctx, tx, scope, s.engine.GenID, "invoice_id", id, items, true)
	})
	if err != nil {
		return nil, err
	}
	return s.engine.Read(ctx, id)
}

func validateItems(items []domain.Item) error {
	var v validation.Collector
	document.ValidateLines(&v, document.Lines[domain.Item, *domain.Item](items))
	return v.Err()
}
