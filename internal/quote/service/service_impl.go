package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/tenantdesk/internal/customer/domain"
	"github.com/smallbiznis/tenantdesk/internal/document"
	invoicedomain "github.com/smallbiznis/tenantdesk/internal/invoice/domain"
	"github.com/smallbiznis/tenantdesk/internal/observability/metrics"
	"github.com/smallbiznis/tenantdesk/internal/quote/domain"
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
	Invoices  invoicedomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	engine    *domain.Engine
	customers *customerdomain.Engine
	invoices  invoicedomain.Service
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("quote.service"),
		engine:    p.Engine,
		customers: p.Customers,
		invoices:  p.Invoices,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, q *domain.Quote) (*domain.Quote, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	items := q.Items
	q.Items = nil
	q.ID = s.engine.GenID()
	q.PDF = document.PDFName("quote", q.ID)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, scope); err != nil {
			return err
		}
		if err := document.RequireClient(ctx, tx, s.customers, q.ClientID); err != nil {
			return err
		}
		if _, err := s.engine.WithTx(tx).Create(ctx, q); err != nil {
			return err
		}
		return document.SaveItems[domain.Item, *domain.Item](ctx, tx, scope, s.engine.GenID, "quote_id", q.ID, items, false)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDocumentCreated(ctx, scope.Partition, "quote")
	return s.engine.Read(ctx, q.ID)
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, payload map[string]any) (*domain.Quote, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	items, replace, err := document.TakeItems[domain.Item](payload)
	if err != nil {
		return nil, err
	}
	if replace {
		var v validation.Collector
		document.ValidateLines(&v, document.Lines[domain.Item, *domain.Item](items))
		if err := v.Err(); err != nil {
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
		return document.SaveItems[domain.Item, *domain.Item](ctx, tx, scope, s.engine.GenID, "quote_id", id, items, true)
	})
	if err != nil {
		return nil, err
	}
	return s.engine.Read(ctx, id)
}

func (s *Service) Convert(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	q, err := s.engine.Read(ctx, id)
	if err != nil {
		return nil, err
	}

	inv := &invoicedomain.Invoice{
		Header:  q.Header,
		QuoteID: &q.ID,
		Items:   make([]invoicedomain.Item, 0, len(q.Items)),
	}
	inv.Enabled = true
	inv.Status = document.StatusDraft
	inv.PDF = ""
	if q.ExpiryDate != nil {
		expiry := *q.ExpiryDate
		inv.ExpiryDate = &expiry
	}
	for _, item := range q.Items {
		inv.Items = append(inv.Items, invoicedomain.Item{Line: item.Line.Copy()})
	}

	created, err := s.invoices.Create(ctx, inv)
	if err != nil {
		return nil, err
	}
	s.log.Info("quote converted",
		zap.String("quote_id", q.ID.String()),
		zap.String("invoice_id", created.ID.String()),
	)
	return created, nil
}
