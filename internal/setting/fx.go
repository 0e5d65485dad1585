package setting

import (
	"github.com/smallbiznis/tenantdesk/internal/setting/domain"
	"github.com/smallbiznis/tenantdesk/internal/setting/service"
	tenantdomain "github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("setting.service",
	fx.Provide(service.New),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
	fx.Provide(
		fx.Annotate(
			service.NewBootstrapper,
			fx.As(new(tenantdomain.Bootstrapper)),
			fx.ResultTags(`group:"tenant_bootstrappers"`),
		),
	),
)
