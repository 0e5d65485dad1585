// Package summary computes period rollups over a tenant's documents.
package summary

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/tenantdesk/internal/customer/domain"
	"github.com/smallbiznis/tenantdesk/internal/document"
	invoicedomain "github.com/smallbiznis/tenantdesk/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/tenantdesk/internal/payment/domain"
	quotedomain "github.com/smallbiznis/tenantdesk/internal/quote/domain"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Kind string

const (
	KindClient  Kind = "client"
	KindQuote   Kind = "quote"
	KindInvoice Kind = "invoice"
	KindPayment Kind = "payment"
)

var ErrUnknownKind = errors.New("unknown_summary_kind")

// Request selects the period. Month 0 means the whole year.
type Request struct {
	Year  int `form:"year"`
	Month int `form:"month"`
}

type Result struct {
	Total        int64            `json:"total"`
	TotalAmount  *decimal.Decimal `json:"total_amount,omitempty"`
	PaidAmount   *decimal.Decimal `json:"paid_amount,omitempty"`
	UnpaidAmount *decimal.Decimal `json:"unpaid_amount,omitempty"`
	PerStatus    map[string]int64 `json:"per_status,omitempty"`
}

// row is the projection summed for every document kind.
type row struct {
	Status string
	Date   time.Time
	Amount decimal.Decimal
	Credit decimal.Decimal
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) *Service {
	return &Service{db: p.DB, log: p.Log.Named("summary.service")}
}

var Module = fx.Module("summary.service", fx.Provide(New))

// Summarize never fails on an empty period; it returns zero counts and
// amounts instead.
func (s *Service) Summarize(ctx context.Context, kind Kind, req Request) (Result, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return Result{}, err
	}
	if req.Month < 0 || req.Month > 12 {
		return Result{}, validation.New("month", "invalid_value", "month must be between 1 and 12")
	}

	switch kind {
	case KindClient:
		var total int64
		err := s.db.WithContext(ctx).
			Model(&customerdomain.Customer{}).
			Where("tenant_id = ? AND removed = ?", scope.TenantID, false).
			Count(&total).Error
		return Result{Total: total}, err
	case KindQuote:
		rows, err := s.rows(ctx, scope, &quotedomain.Quote{}, "status, date, total AS amount", req)
		if err != nil {
			return Result{}, err
		}
		return rollup(rows, req, document.StatusDraft, document.StatusPending, document.StatusSent), nil
	case KindInvoice:
		rows, err := s.rows(ctx, scope, &invoicedomain.Invoice{}, "status, date, total AS amount, credit", req)
		if err != nil {
			return Result{}, err
		}
		res := rollup(rows, req, document.StatusDraft, document.StatusPending, document.StatusPaid)
		paid := decimal.Zero
		for _, r := range filterMonth(rows, req.Month) {
			paid = paid.Add(r.Credit)
		}
		unpaid := res.TotalAmount.Sub(paid)
		res.PaidAmount = &paid
		res.UnpaidAmount = &unpaid
		return res, nil
	case KindPayment:
		rows, err := s.rows(ctx, scope, &paymentdomain.Payment{}, "date, amount", req)
		if err != nil {
			return Result{}, err
		}
		res := rollup(rows, req)
		res.PerStatus = nil
		return res, nil
	default:
		return Result{}, ErrUnknownKind
	}
}

func (s *Service) rows(ctx context.Context, scope tenantctx.Scope, model any, columns string, req Request) ([]row, error) {
	var rows []row
	err := s.db.WithContext(ctx).
		Model(model).
		Select(columns).
		Where("tenant_id = ? AND removed = ? AND year = ?", scope.TenantID, false, req.Year).
		Find(&rows).Error
	return rows, err
}

func filterMonth(rows []row, month int) []row {
	if month == 0 {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		if int(r.Date.Month()) == month {
			out = append(out, r)
		}
	}
	return out
}

func rollup(rows []row, req Request, statuses ...string) Result {
	perStatus := make(map[string]int64, len(statuses))
	for _, st := range statuses {
		perStatus[st] = 0
	}

	total := decimal.Zero
	var count int64
	for _, r := range filterMonth(rows, req.Month) {
		count++
		total = total.Add(r.Amount)
		if r.Status != "" {
			perStatus[r.Status]++
		}
	}
	return Result{Total: count, TotalAmount: &total, PerStatus: perStatus}
}
