package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/internal/audit"
	"github.com/smallbiznis/tenantdesk/internal/auth"
	"github.com/smallbiznis/tenantdesk/internal/cache"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/config"
	"github.com/smallbiznis/tenantdesk/internal/customer"
	"github.com/smallbiznis/tenantdesk/internal/invoice"
	"github.com/smallbiznis/tenantdesk/internal/migration"
	"github.com/smallbiznis/tenantdesk/internal/observability"
	"github.com/smallbiznis/tenantdesk/internal/payment"
	"github.com/smallbiznis/tenantdesk/internal/paymentmode"
	"github.com/smallbiznis/tenantdesk/internal/product"
	"github.com/smallbiznis/tenantdesk/internal/providers"
	"github.com/smallbiznis/tenantdesk/internal/quote"
	"github.com/smallbiznis/tenantdesk/internal/ratelimit"
	"github.com/smallbiznis/tenantdesk/internal/scheduler"
	"github.com/smallbiznis/tenantdesk/internal/server"
	"github.com/smallbiznis/tenantdesk/internal/setting"
	"github.com/smallbiznis/tenantdesk/internal/summary"
	"github.com/smallbiznis/tenantdesk/internal/tenant"
	"github.com/smallbiznis/tenantdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module,
		providers.Module,

		// Tenancy and access
		audit.Module,
		tenant.Module,
		auth.Module,
		setting.Module,

		// Business entities
		customer.Module,
		paymentmode.Module,
		product.Module,
		invoice.Module,
		quote.Module,
		payment.Module,
		summary.Module,

		migration.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
