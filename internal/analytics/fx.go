package analytics

import (
	"github.com/smallbiznis/ledgerly/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(service.NewService),
)
