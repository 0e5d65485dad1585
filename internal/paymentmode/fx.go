package paymentmode

import (
	"github.com/smallbiznis/tenantdesk/internal/paymentmode/domain"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentmode.service",
	fx.Provide(resource.Provide[domain.PaymentMode, *domain.PaymentMode](domain.Descriptor)),
)
