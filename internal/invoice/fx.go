package invoice

import (
	"github.com/smallbiznis/tenantdesk/internal/invoice/domain"
	"github.com/smallbiznis/tenantdesk/internal/invoice/repository"
	"github.com/smallbiznis/tenantdesk/internal/invoice/service"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(resource.Provide[domain.Invoice, *domain.Invoice](domain.Descriptor)),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
