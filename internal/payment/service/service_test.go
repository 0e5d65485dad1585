package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	customerdomain "github.com/smallbiznis/tenantdesk/internal/customer/domain"
	"github.com/smallbiznis/tenantdesk/internal/document"
	invoicedomain "github.com/smallbiznis/tenantdesk/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/tenantdesk/internal/invoice/repository"
	"github.com/smallbiznis/tenantdesk/internal/payment/domain"
	paymentmodedomain "github.com/smallbiznis/tenantdesk/internal/paymentmode/domain"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/db"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type failingLedger struct{}

func (failingLedger) IncrementCredit(context.Context, *gorm.DB, tenantctx.Scope, snowflake.ID, decimal.Decimal) (int64, error) {
	return 0, errors.New("disk full")
}

func (failingLedger) AdjustCredit(context.Context, *gorm.DB, tenantctx.Scope, snowflake.ID, decimal.Decimal) (int64, error) {
	return 0, errors.New("disk full")
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	payments *domain.Engine
	invoices *invoicedomain.Engine
	modes    *paymentmodedomain.Engine
	clientID snowflake.ID
}

func newFixture(t *testing.T, ledger invoicedomain.Ledger) fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&customerdomain.Customer{},
		&invoicedomain.Invoice{}, &invoicedomain.Item{},
		&paymentmodedomain.PaymentMode{},
		&domain.Payment{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	params := resource.EngineParams{DB: conn, GenID: node, Clock: fc, Log: zap.NewNop()}
	if ledger == nil {
		ledger = invoicerepo.Provide(fc)
	}

	f := fixture{
		db:       conn,
		payments: resource.NewEngine[domain.Payment, *domain.Payment](domain.Descriptor, params),
		invoices: resource.NewEngine[invoicedomain.Invoice, *invoicedomain.Invoice](invoicedomain.Descriptor, params),
		modes:    resource.NewEngine[paymentmodedomain.PaymentMode, *paymentmodedomain.PaymentMode](paymentmodedomain.Descriptor, params),
	}
	f.svc = New(Params{
		DB:           conn,
		Log:          zap.NewNop(),
		Engine:       f.payments,
		Invoices:     f.invoices,
		PaymentModes: f.modes,
		Ledger:       ledger,
	}).(*Service)

	customers := resource.NewEngine[customerdomain.Customer, *customerdomain.Customer](customerdomain.Descriptor, params)
	c := customers.New()
	c.Name = "Initech"
	created, err := customers.Create(tenantCtx(), c)
	require.NoError(t, err)
	f.clientID = created.ID
	return f
}

func tenantCtx() context.Context {
	return tenantctx.WithScope(context.Background(), tenantctx.Scope{TenantID: 5, Partition: "acme"})
}

func (f fixture) invoice(t *testing.T, ctx context.Context) *invoicedomain.Invoice {
	t.Helper()
	inv := f.invoices.New()
	inv.Header = document.Header{
		Number:   1,
		Year:     2024,
		Date:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ClientID: f.clientID,
		SubTotal: decimal.NewFromInt(100),
		TaxRate:  decimal.Zero,
		TaxTotal: decimal.Zero,
		Discount: decimal.Zero,
		Total:    decimal.NewFromInt(100),
	}
	created, err := f.invoices.Create(ctx, inv)
	require.NoError(t, err)
	return created
}

func (f fixture) credit(t *testing.T, ctx context.Context, id snowflake.ID) decimal.Decimal {
	t.Helper()
	inv, err := f.invoices.Read(ctx, id)
	require.NoError(t, err)
	return inv.Credit
}

func payment(invoiceID snowflake.ID, amount int64) *domain.Payment {
	return &domain.Payment{
		Number:    1,
		Year:      2024,
		Date:      time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		Amount:    decimal.NewFromInt(amount),
		InvoiceID: invoiceID,
	}
}

func TestRecordIncrementsCredit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := tenantCtx()
	inv := f.invoice(t, ctx)

	p, err := f.svc.Record(ctx, payment(inv.ID, 40))
	require.NoError(t, err)

	assert.Equal(t, "payment-"+p.ID.String()+".pdf", p.PDF)
	assert.Equal(t, f.clientID, p.ClientID)
	assert.True(t, decimal.NewFromInt(40).Equal(f.credit(t, ctx, inv.ID)))
}

func TestConcurrentPaymentsAccumulate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := tenantCtx()
	inv := f.invoice(t, ctx)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Record(ctx, payment(inv.ID, 50))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.True(t, decimal.NewFromInt(100).Equal(f.credit(t, ctx, inv.ID)))
}

func TestRecordRollsBackOnLedgerFailure(t *testing.T) {
	f := newFixture(t, failingLedger{})
	ctx := tenantCtx()
	inv := f.invoice(t, ctx)

	_, err := f.svc.Record(ctx, payment(inv.ID, 25))
	require.ErrorIs(t, err, domain.ErrLedgerInconsistent)

	var count int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.True(t, f.credit(t, ctx, inv.ID).IsZero())
}

func TestRecordRejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := tenantCtx()
	inv := f.invoice(t, ctx)

	t.Run("missing invoice", func(t *testing.T) {
		_, err := f.svc.Record(ctx, payment(snowflake.ID(4242), 10))
		assert.ErrorIs(t, err, resource.ErrNotFound)
	})

	t.Run("removed invoice", func(t *testing.T) {
		other := f.invoice(t, ctx)
		_, err := f.invoices.SoftDelete(ctx, other.ID)
		require.NoError(t, err)
		_, err = f.svc.Record(ctx, payment(other.ID, 10))
		assert.ErrorIs(t, err, resource.ErrNotFound)
	})

	t.Run("client mismatch", func(t *testing.T) {
		p := payment(inv.ID, 10)
		p.ClientID = snowflake.ID(77)
		_, err := f.svc.Record(ctx, p)
		errs, ok := validation.As(err)
		require.True(t, ok)
		assert.Equal(t, "client_id", errs[0].Field)
	})

	t.Run("non positive amount", func(t *testing.T) {
		_, err := f.svc.Record(ctx, payment(inv.ID, 0))
		assert.ErrorIs(t, err, validation.ErrInvalid)
	})

	t.Run("unknown payment mode", func(t *testing.T) {
		p := payment(inv.ID, 10)
		mode := snowflake.ID(31337)
		p.PaymentModeID = &mode
		_, err := f.svc.Record(ctx, p)
		errs, ok := validation.As(err)
		require.True(t, ok)
		assert.Equal(t, "payment_mode_id", errs[0].Field)
	})

	assert.True(t, f.credit(t, ctx, inv.ID).IsZero())
}

func TestUpdateAmountMovesCredit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := tenantCtx()
	inv := f.invoice(t, ctx)
	p, err := f.svc.Record(ctx, payment(inv.ID, 30))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, p.ID, map[string]any{"amount": "45", "ref": "TX-9"})
	require.NoError(t, err)
	assert.Equal(t, "TX-9", updated.Ref)
	assert.True(t, decimal.NewFromInt(45).Equal(f.credit(t, ctx, inv.ID)))

	_, err = f.svc.Update(ctx, p.ID, map[string]any{"invoice_id": inv.ID.String()})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = f.svc.Update(ctx, p.ID, map[string]any{"amount": "-5"})
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.True(t, decimal.NewFromInt(45).Equal(f.credit(t, ctx, inv.ID)))
}

func TestRemoveReversesCredit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := tenantCtx()
	inv := f.invoice(t, ctx)
	p, err := f.svc.Record(ctx, payment(inv.ID, 60))
	require.NoError(t, err)

	res, err := f.svc.Remove(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyRemoved)
	assert.True(t, f.credit(t, ctx, inv.ID).IsZero())

	res, err = f.svc.Remove(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyRemoved)
	assert.True(t, f.credit(t, ctx, inv.ID).IsZero())
}

func TestCorrectionsReachRemovedInvoice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := tenantCtx()
	inv := f.invoice(t, ctx)
	first, err := f.svc.Record(ctx, payment(inv.ID, 40))
	require.NoError(t, err)
	second, err := f.svc.Record(ctx, payment(inv.ID, 20))
	require.NoError(t, err)

	_, err = f.invoices.SoftDelete(ctx, inv.ID)
	require.NoError(t, err)

	storedCredit := func() decimal.Decimal {
		var stored invoicedomain.Invoice
		require.NoError(t, f.db.Where("tenant_id = ? AND id = ?", 5, inv.ID).Take(&stored).Error)
		return stored.Credit
	}

	_, err = f.svc.Update(ctx, second.ID, map[string]any{"amount": "25"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(65).Equal(storedCredit()))

	res, err := f.svc.Remove(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyRemoved)
	assert.True(t, decimal.NewFromInt(25).Equal(storedCredit()))

	_, err = f.payments.Read(ctx, first.ID)
	assert.ErrorIs(t, err, resource.ErrNotFound)

	_, err = f.svc.Record(ctx, payment(inv.ID, 10))
	assert.ErrorIs(t, err, resource.ErrNotFound)
}
