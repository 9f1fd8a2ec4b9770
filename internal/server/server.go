package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	authdomain "github.com/smallbiznis/invoicenexus/internal/auth/domain"
	"github.com/smallbiznis/invoicenexus/internal/auth/session"
	"github.com/smallbiznis/invoicenexus/internal/clock"
	"github.com/smallbiznis/invoicenexus/internal/config"
	"github.com/smallbiznis/invoicenexus/internal/observability"
	obslogger "github.com/smallbiznis/invoicenexus/internal/observability/logger"
	obstracing "github.com/smallbiznis/invoicenexus/internal/observability/tracing"
	"github.com/smallbiznis/invoicenexus/internal/ratelimit"
	"github.com/smallbiznis/invoicenexus/internal/render"
	"github.com/smallbiznis/invoicenexus/internal/workspace"
)

const shutdownTimeout = 10 * time.Second

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	decimal.MarshalJSONWithoutQuotes = true
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, _ *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	authsvc  authdomain.Service
	sessions *session.Manager
	limiter  *ratelimit.LoginLimiter
	registry *workspace.Registry
	renderer *render.Renderer
	company  *config.CompanyHolder
	clock    clock.Clock
	log      *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Authsvc  authdomain.Service
	Sessions *session.Manager
	Limiter  *ratelimit.LoginLimiter
	Registry *workspace.Registry
	Renderer *render.Renderer
	Company  *config.CompanyHolder
	Clock    clock.Clock
	Log      *zap.Logger
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		authsvc:  p.Authsvc,
		sessions: p.Sessions,
		limiter:  p.Limiter,
		registry: p.Registry,
		renderer: p.Renderer,
		company:  p.Company,
		clock:    p.Clock,
		log:      p.Log.Named("http"),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", s.Signup)
	authGroup.POST("/login", s.LoginRateLimit(), s.Login)
	authGroup.POST("/logout", s.AuthRequired(), s.Logout)
	authGroup.GET("/session", s.AuthRequired(), s.Session)

	protected := api.Group("", s.AuthRequired())
	protected.GET("/dashboard", s.Dashboard)
	protected.POST("/refresh", s.Refresh)
	protected.GET("/notifications", s.Notifications)
	protected.GET("/settings/company", s.CompanySettings)

	protected.GET("/employees", s.ListEmployees)
	protected.POST("/employees", s.CreateEmployee)
	protected.GET("/employees/:id", s.GetEmployee)
	protected.PUT("/employees/:id", s.UpdateEmployee)
	protected.DELETE("/employees/:id", s.DeleteEmployee)

	protected.GET("/invoices", s.ListInvoices)
	protected.GET("/invoices/defaults", s.InvoiceDefaults)
	protected.POST("/invoices", s.CreateInvoice)
	protected.GET("/invoices/:id", s.GetInvoice)
	protected.PUT("/invoices/:id", s.UpdateInvoice)
	protected.PATCH("/invoices/:id/status", s.UpdateInvoiceStatus)
	protected.DELETE("/invoices/:id", s.DeleteInvoice)
	protected.GET("/invoices/:id/pdf", s.InvoicePDF)
}
