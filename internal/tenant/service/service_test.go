package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/config"
	tenantcache "github.com/smallbiznis/tenantdesk/internal/tenant/cache"
	"github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"github.com/smallbiznis/tenantdesk/internal/tenant/repository"
	"github.com/smallbiznis/tenantdesk/pkg/db"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingBootstrapper struct {
	scopes []tenantctx.Scope
	err    error
}

func (b *recordingBootstrapper) Bootstrap(_ context.Context, _ *gorm.DB, scope tenantctx.Scope, _ domain.CreateTenantRequest) error {
	b.scopes = append(b.scopes, scope)
	return b.err
}

func newTestService(t *testing.T, cfg config.Config, bootstrappers ...domain.Bootstrapper) (*Service, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Tenant{}, &domain.Domain{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:            conn,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clock.NewFakeClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		Config:        cfg,
		Repo:          repository.Provide(),
		Cache:         tenantcache.NewMemory(time.Minute),
		Bootstrappers: bootstrappers,
	}).(*Service)
	return svc, conn
}

func TestCreateAndResolve(t *testing.T) {
	boot := &recordingBootstrapper{}
	svc, _ := newTestService(t, config.Config{}, boot)
	ctx := context.Background()

	tenant, err := svc.Create(ctx, domain.CreateTenantRequest{
		Name:       "Acme",
		SchemaName: "acme",
		DomainName: "Acme.Example.com",
	})
	require.NoError(t, err)
	assert.True(t, tenant.OnTrial)
	require.Len(t, tenant.Domains, 1)
	assert.Equal(t, "acme.example.com", tenant.Domains[0].Domain)
	assert.True(t, tenant.Domains[0].IsPrimary)
	require.Len(t, boot.scopes, 1)
	assert.Equal(t, tenantctx.Scope{TenantID: tenant.ID, Partition: "acme"}, boot.scopes[0])

	resolved, err := svc.Resolve(ctx, "ACME.example.com:8080")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, resolved.ID)
	assert.Equal(t, "acme", resolved.SchemaName)

	_, err = svc.Resolve(ctx, "unknown.example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateConflictLeavesNoPartialState(t *testing.T) {
	svc, conn := newTestService(t, config.Config{})
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateTenantRequest{Name: "Acme", SchemaName: "acme", DomainName: "acme.test"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateTenantRequest{Name: "Other", SchemaName: "acme", DomainName: "other.test"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Create(ctx, domain.CreateTenantRequest{Name: "Other", SchemaName: "other", DomainName: "acme.test"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	var domains int64
	require.NoError(t, conn.Model(&domain.Domain{}).Count(&domains).Error)
	assert.Equal(t, int64(1), domains)

	_, err = svc.Resolve(ctx, "other.test")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRollsBackWhenBootstrapFails(t *testing.T) {
	boot := &recordingBootstrapper{err: errors.New("seed failed")}
	svc, conn := newTestService(t, config.Config{}, boot)

	_, err := svc.Create(context.Background(), domain.CreateTenantRequest{Name: "Acme", SchemaName: "acme", DomainName: "acme.test"})
	require.Error(t, err)

	var tenants, domains int64
	require.NoError(t, conn.Model(&domain.Tenant{}).Count(&tenants).Error)
	require.NoError(t, conn.Model(&domain.Domain{}).Count(&domains).Error)
	assert.Zero(t, tenants)
	assert.Zero(t, domains)
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newTestService(t, config.Config{})

	_, err := svc.Create(context.Background(), domain.CreateTenantRequest{Name: "", SchemaName: "Bad Schema", DomainName: ""})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	errs, ok := validation.As(err)
	require.True(t, ok)

	fields := map[string]string{}
	for _, fe := range errs {
		fields[fe.Field] = fe.Code
	}
	assert.Equal(t, "required", fields["name"])
	assert.Equal(t, "invalid_format", fields["schema_name"])
	assert.Equal(t, "required", fields["domain_name"])

	_, err = svc.Create(context.Background(), domain.CreateTenantRequest{
		Name: "Acme", SchemaName: "acme", DomainName: "acme.test", AdminEmail: "a@acme.test",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListOrdersByCreation(t *testing.T) {
	svc, _ := newTestService(t, config.Config{})
	ctx := context.Background()

	tenants, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tenants)

	for _, schema := range []string{"alpha", "beta"} {
		_, err := svc.Create(ctx, domain.CreateTenantRequest{Name: schema, SchemaName: schema, DomainName: schema + ".test"})
		require.NoError(t, err)
	}

	tenants, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "alpha", tenants[0].SchemaName)
	assert.Equal(t, "beta", tenants[1].SchemaName)
	assert.Len(t, tenants[1].Domains, 1)
}

func TestEnsureSingleCreatesOnce(t *testing.T) {
	cfg := config.Config{SingleTenantSchema: "public", SingleTenantName: "Default", SingleTenantCreate: true}
	svc, conn := newTestService(t, cfg)
	ctx := context.Background()

	first, err := svc.EnsureSingle(ctx)
	require.NoError(t, err)
	second, err := svc.EnsureSingle(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "public", first.SchemaName)

	var count int64
	require.NoError(t, conn.Model(&domain.Tenant{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnsureSingleWithoutAutocreate(t *testing.T) {
	svc, _ := newTestService(t, config.Config{SingleTenantSchema: "public"})
	_, err := svc.EnsureSingle(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
