package payment

import (
	"github.com/smallbiznis/tenantdesk/internal/payment/domain"
	"github.com/smallbiznis/tenantdesk/internal/payment/service"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(resource.Provide[domain.Payment, *domain.Payment](domain.Descriptor)),
	fx.Provide(service.New),
)
