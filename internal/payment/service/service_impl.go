package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/tenantdesk/internal/invoice/domain"
	"github.com/smallbiznis/tenantdesk/internal/observability/metrics"
	"github.com/smallbiznis/tenantdesk/internal/payment/domain"
	paymentmodedomain "github.com/smallbiznis/tenantdesk/internal/paymentmode/domain"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/rls"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Engine       *domain.Engine
	Invoices     *invoicedomain.Engine
	PaymentModes *paymentmodedomain.Engine
	Ledger       invoicedomain.Ledger
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	engine       *domain.Engine
	invoices     *invoicedomain.Engine
	paymentModes *paymentmodedomain.Engine
	ledger       invoicedomain.Ledger
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		engine:       p.Engine,
		invoices:     p.Invoices,
		paymentModes: p.PaymentModes,
		ledger:       p.Ledger,
		metrics:      p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	p.ID = s.engine.GenID()
	p.PDF = domain.PDFName(p.ID)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, scope); err != nil {
			return err
		}

		inv, err := s.invoices.WithTx(tx).Read(ctx, p.InvoiceID)
		if err != nil {
			return err
		}
		switch {
		case p.ClientID == 0:
			p.ClientID = inv.ClientID
		case p.ClientID != inv.ClientID:
			return validation.New("client_id", "mismatch", "client_id does not match the invoice client")
		}
		if err := s.requirePaymentMode(ctx, tx, p.PaymentModeID); err != nil {
			return err
		}

		if _, err := s.engine.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}
		return s.moveCredit(ctx, tx, scope, p.InvoiceID, p.Amount, false)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayment(ctx, scope.Partition)
	s.log.Info("payment recorded",
		zap.String("tenant", scope.Partition),
		zap.String("payment_id", p.ID.String()),
		zap.String("invoice_id", p.InvoiceID.String()),
		zap.String("amount", p.Amount.String()),
	)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, payload map[string]any) (*domain.Payment, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	for _, field := range []string{"invoice_id", "client_id"} {
		if _, ok := payload[field]; ok {
			return nil, validation.New(field, "immutable", field+" cannot be changed on a recorded payment")
		}
	}

	var updated *domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, scope); err != nil {
			return err
		}
		engine := s.engine.WithTx(tx)
		before, err := engine.Read(ctx, id)
		if err != nil {
			return err
		}
		updated, err = engine.Update(ctx, id, payload)
		if err != nil {
			return err
		}
		if !updated.Amount.IsPositive() {
			return validation.New("amount", "invalid_value", "amount must be greater than zero")
		}
		if _, ok := payload["payment_mode_id"]; ok {
			if err := s.requirePaymentMode(ctx, tx, updated.PaymentModeID); err != nil {
				return err
			}
		}

		delta := updated.Amount.Sub(before.Amount)
		if delta.IsZero() {
			return nil
		}
		return s.moveCredit(ctx, tx, scope, updated.InvoiceID, delta, true)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Remove(ctx context.Context, id snowflake.ID) (resource.DeleteResult[domain.Payment], error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return resource.DeleteResult[domain.Payment]{}, err
	}

	var res resource.DeleteResult[domain.Payment]
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, scope); err != nil {
			return err
		}
		deleted, err := s.engine.WithTx(tx).SoftDelete(ctx, id)
		if err != nil {
			return err
		}
		res = deleted
		if deleted.AlreadyRemoved {
			return nil
		}
		return s.moveCredit(ctx, tx, scope, deleted.Item.InvoiceID, deleted.Item.Amount.Neg(), true)
	})
	return res, err
}

// moveCredit applies amount to the invoice credit. New payments need a live
// invoice; corrections (correcting=true) also reach a soft-deleted one. A
// missing invoice is reported as not found; any storage failure aborts the
// transaction as a ledger inconsistency.
func (s *Service) moveCredit(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, invoiceID snowflake.ID, amount decimal.Decimal, correcting bool) error {
	move := s.ledger.IncrementCredit
	if correcting {
		move = s.ledger.AdjustCredit
	}
	affected, err := move(ctx, tx, scope, invoiceID, amount)
	if err != nil {
		s.log.Error("invoice credit update failed",
			zap.String("tenant", scope.Partition),
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", domain.ErrLedgerInconsistent, err)
	}
	if affected == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (s *Service) requirePaymentMode(ctx context.Context, tx *gorm.DB, id *snowflake.ID) error {
	if id == nil || s.paymentModes == nil {
		return nil
	}
	_, err := s.paymentModes.WithTx(tx).Read(ctx, *id)
	if errors.Is(err, resource.ErrNotFound) {
		return validation.New("payment_mode_id", "not_found", "payment mode does not exist")
	}
	return err
}
