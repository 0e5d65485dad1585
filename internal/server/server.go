package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/tenantdesk/internal/audit/domain"
	authdomain "github.com/smallbiznis/tenantdesk/internal/auth/domain"
	"github.com/smallbiznis/tenantdesk/internal/auth/session"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/config"
	customerdomain "github.com/smallbiznis/tenantdesk/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/tenantdesk/internal/invoice/domain"
	"github.com/smallbiznis/tenantdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/tenantdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tenantdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tenantdesk/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/tenantdesk/internal/payment/domain"
	paymentmodedomain "github.com/smallbiznis/tenantdesk/internal/paymentmode/domain"
	productdomain "github.com/smallbiznis/tenantdesk/internal/product/domain"
	"github.com/smallbiznis/tenantdesk/internal/providers/email"
	quotedomain "github.com/smallbiznis/tenantdesk/internal/quote/domain"
	settingdomain "github.com/smallbiznis/tenantdesk/internal/setting/domain"
	"github.com/smallbiznis/tenantdesk/internal/summary"
	tenantdomain "github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", HeaderOperatorKey, obsmiddleware.HeaderRequestID},
			ExposeHeaders:    []string{obsmiddleware.HeaderRequestID, "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
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
	engine   *gin.Engine
	cfg      config.Config
	clock    clock.Clock
	tenants  tenantdomain.Service
	auth     authdomain.Service
	sessions *session.Manager
	audit    auditdomain.Service
	settings settingdomain.Service
	summary  *summary.Service
	mailer   email.Provider

	customers    *customerdomain.Engine
	paymentModes *paymentmodedomain.Engine
	products     *productdomain.Engine
	quotes       *quotedomain.Engine
	invoices     *invoicedomain.Engine
	payments     *paymentdomain.Engine

	quoteSvc   quotedomain.Service
	invoiceSvc invoicedomain.Service
	paymentSvc paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Clock    clock.Clock
	Tenants  tenantdomain.Service
	Auth     authdomain.Service
	Sessions *session.Manager
	Audit    auditdomain.Service `optional:"true"`
	Settings settingdomain.Service
	Summary  *summary.Service
	Mailer   email.Provider

	Customers    *customerdomain.Engine
	PaymentModes *paymentmodedomain.Engine
	Products     *productdomain.Engine
	Quotes       *quotedomain.Engine
	Invoices     *invoicedomain.Engine
	Payments     *paymentdomain.Engine

	QuoteSvc   quotedomain.Service
	InvoiceSvc invoicedomain.Service
	PaymentSvc paymentdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		clock:        p.Clock,
		tenants:      p.Tenants,
		auth:         p.Auth,
		sessions:     p.Sessions,
		audit:        p.Audit,
		settings:     p.Settings,
		summary:      p.Summary,
		mailer:       p.Mailer,
		customers:    p.Customers,
		paymentModes: p.PaymentModes,
		products:     p.Products,
		quotes:       p.Quotes,
		invoices:     p.Invoices,
		payments:     p.Payments,
		quoteSvc:     p.QuoteSvc,
		invoiceSvc:   p.InvoiceSvc,
		paymentSvc:   p.PaymentSvc,
	}

	s.registerTenantRoutes()
	s.registerAuthRoutes()
	s.registerAPIRoutes()
	s.registerFallback()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerTenantRoutes() {
	tenant := s.engine.Group("/tenant")

	tenant.POST("/create", s.CreateTenant)
	tenant.GET("/list", s.OperatorKeyRequired(), s.ListTenants)
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/", s.TenantContext())

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.AuthRequired(), s.Logout)
	auth.POST("/forgetpassword", s.ForgetPassword)
	auth.POST("/resetpassword", s.ResetPassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/", s.TenantContext(), s.AuthRequired())

	// -------- Clients --------
	client := api.Group("/client")
	newEntityRoutes(s.customers, s.audit).register(client)
	client.GET("/summary", s.Summary(summary.KindClient))

	// -------- Payment Modes --------
	newEntityRoutes(s.paymentModes, s.audit).register(api.Group("/paymentMode"))

	// -------- Products --------
	newEntityRoutes(s.products, s.audit).register(api.Group("/product"))

	// -------- Quotes --------
	quote := api.Group("/quote")
	quotes := newEntityRoutes(s.quotes, s.audit)
	quotes.create = s.quoteSvc.Create
	quotes.update = s.quoteSvc.Update
	quotes.register(quote)
	quote.GET("/summary", s.Summary(summary.KindQuote))
	quote.GET("/convert/:id", s.ConvertQuote)
	quote.POST("/mail", s.MailDocument(kindQuote))

	// -------- Invoices --------
	invoice := api.Group("/invoice")
	invoices := newEntityRoutes(s.invoices, s.audit)
	invoices.create = s.invoiceSvc.Create
	invoices.update = s.invoiceSvc.Update
	invoices.register(invoice)
	invoice.GET("/summary", s.Summary(summary.KindInvoice))
	invoice.POST("/mail", s.MailDocument(kindInvoice))

	// -------- Payments --------
	payment := api.Group("/payment")
	payments := newEntityRoutes(s.payments, s.audit)
	payments.create = s.paymentSvc.Record
	payments.update = s.paymentSvc.Update
	payments.remove = s.paymentSvc.Remove
	payments.register(payment)
	payment.GET("/summary", s.Summary(summary.KindPayment))
	payment.POST("/mail", s.MailDocument(kindPayment))

	// -------- Settings --------
	api.GET("/setting", s.ListSettings)
	api.GET("/setting/:key", s.GetSetting)
	api.PATCH("/setting/:key", s.UpdateSetting)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrRouteNotFound)
	})
}
