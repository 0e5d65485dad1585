package auth

import (
	"github.com/smallbiznis/tenantdesk/internal/auth/repository"
	"github.com/smallbiznis/tenantdesk/internal/auth/service"
	"github.com/smallbiznis/tenantdesk/internal/auth/session"
	"github.com/smallbiznis/tenantdesk/internal/auth/token"
	tenantdomain "github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	session.Module,
	fx.Provide(repository.Provide),
	fx.Provide(token.NewFromConfig),
	fx.Provide(service.New),
	fx.Provide(
		fx.Annotate(
			NewAdminBootstrapper,
			fx.As(new(tenantdomain.Bootstrapper)),
			fx.ResultTags(`group:"tenant_bootstrappers"`),
		),
	),
)
