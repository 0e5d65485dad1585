package product

import (
	"github.com/smallbiznis/tenantdesk/internal/product/domain"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(resource.Provide[domain.Product, *domain.Product](domain.Descriptor)),
)
