package customer

import (
	"github.com/smallbiznis/tenantdesk/internal/customer/domain"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(resource.Provide[domain.Customer, *domain.Customer](domain.Descriptor)),
)
