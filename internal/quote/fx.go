package quote

import (
	"github.com/smallbiznis/tenantdesk/internal/quote/domain"
	"github.com/smallbiznis/tenantdesk/internal/quote/service"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"go.uber.org/fx"
)

var Module = fx.Module("quote.service",
	fx.Provide(resource.Provide[domain.Quote, *domain.Quote](domain.Descriptor)),
	fx.Provide(service.New),
)
