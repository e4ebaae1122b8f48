package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/ledgerly/internal/analytics"
	analyticsdomain "github.com/smallbiznis/ledgerly/internal/analytics/domain"
	"github.com/smallbiznis/ledgerly/internal/billing"
	billingdomain "github.com/smallbiznis/ledgerly/internal/billing/domain"
	"github.com/smallbiznis/ledgerly/internal/clock"
	"github.com/smallbiznis/ledgerly/internal/config"
	"github.com/smallbiznis/ledgerly/internal/customer"
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
	"github.com/smallbiznis/ledgerly/internal/inventory"
	inventorydomain "github.com/smallbiznis/ledgerly/internal/inventory/domain"
	"github.com/smallbiznis/ledgerly/internal/migration"
	"github.com/smallbiznis/ledgerly/internal/observability"
	obslogger "github.com/smallbiznis/ledgerly/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ledgerly/internal/observability/tracing"
	"github.com/smallbiznis/ledgerly/internal/product"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
	"github.com/smallbiznis/ledgerly/internal/ratelimit"
	"github.com/smallbiznis/ledgerly/internal/settings"
	settingsdomain "github.com/smallbiznis/ledgerly/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	clock.Module,
	fx.Provide(registerGin),
	billing.Module,
	product.Module,
	customer.Module,
	inventory.Module,
	analytics.Module,
	settings.Module,
	ratelimit.Module,
	migration.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Log:             log,
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	billingSvc     billingdomain.Service
	productSvc     productdomain.Service
	customerSvc    customerdomain.Service
	inventoryRepo  inventorydomain.Repository
	analyticsSvc   analyticsdomain.Service
	settingsSvc    settingsdomain.Service
	invoiceLimiter *ratelimit.InvoiceLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	BillingSvc     billingdomain.Service
	ProductSvc     productdomain.Service
	CustomerSvc    customerdomain.Service
	InventoryRepo  inventorydomain.Repository
	AnalyticsSvc   analyticsdomain.Service
	SettingsSvc    settingsdomain.Service
	InvoiceLimiter *ratelimit.InvoiceLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		billingSvc:     p.BillingSvc,
		productSvc:     p.ProductSvc,
		customerSvc:    p.CustomerSvc,
		inventoryRepo:  p.InventoryRepo,
		analyticsSvc:   p.AnalyticsSvc,
		settingsSvc:    p.SettingsSvc,
		invoiceLimiter: p.InvoiceLimiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api", OrgMiddleware(s.cfg))

	api.POST("/billing", s.rateLimitInvoices(), s.CreateInvoice)
	api.GET("/billing", s.ListInvoices)
	api.GET("/billing/:id", s.GetInvoice)
	api.DELETE("/billing/:id", s.VoidInvoice)

	api.POST("/products", s.CreateProduct)
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProduct)
	api.PUT("/products/:id", s.UpdateProduct)
	api.DELETE("/products/:id", s.DeleteProduct)
	api.GET("/products/:id/inventory", s.ListInventoryLogs)

	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers", s.ListCustomers)
	api.GET("/customers/:id", s.GetCustomer)
	api.PUT("/customers/:id", s.UpdateCustomer)
	api.DELETE("/customers/:id", s.DeleteCustomer)

	api.GET("/analytics", s.GetAnalytics)

	api.GET("/settings", s.GetSettings)
	api.PUT("/settings", s.UpdateSettings)
}
