package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/shopdesk/internal/audit/domain"
	"github.com/smallbiznis/shopdesk/internal/authorization"
	"github.com/smallbiznis/shopdesk/internal/config"
	"github.com/smallbiznis/shopdesk/internal/identity"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	"github.com/smallbiznis/shopdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/shopdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/shopdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/shopdesk/internal/observability/tracing"
	"github.com/smallbiznis/shopdesk/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/shopdesk/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/shopdesk/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine          *gin.Engine
	log             *zap.Logger
	identity        identity.Provider
	authzSvc        authorization.Service
	licenseSvc      licensedomain.Service
	subscriptionSvc subscriptiondomain.Service
	usageSvc        usagedomain.Service
	auditSvc        auditdomain.Service
	switchLimiter   *ratelimit.SwitchLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Log             *zap.Logger
	Identity        identity.Provider
	AuthzSvc        authorization.Service
	LicenseSvc      licensedomain.Service
	SubscriptionSvc subscriptiondomain.Service
	UsageSvc        usagedomain.Service
	AuditSvc        auditdomain.Service
	SwitchLimiter   *ratelimit.SwitchLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		log:             p.Log.Named("http.server"),
		identity:        p.Identity,
		authzSvc:        p.AuthzSvc,
		licenseSvc:      p.LicenseSvc,
		subscriptionSvc: p.SubscriptionSvc,
		usageSvc:        p.UsageSvc,
		auditSvc:        p.AuditSvc,
		switchLimiter:   p.SwitchLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(identity.GinMiddleware())
	api.Use(s.AuthRequired())

	api.GET("/licenses", s.authorize(authorization.ObjectLicense, authorization.ActionLicenseView), s.ListLicenses)
	api.GET("/subscription", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionView), s.GetCurrentSubscription)
	api.POST("/subscription/switch",
		s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionSwitch),
		s.SwitchRateLimit(),
		s.SwitchSubscription,
	)
	api.GET("/usage", s.authorize(authorization.ObjectUsage, authorization.ActionUsageView), s.GetUsage)
	api.GET("/license-panel",
		s.authorize(authorization.ObjectLicense, authorization.ActionLicenseView),
		s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionView),
		s.authorize(authorization.ObjectUsage, authorization.ActionUsageView),
		s.GetLicensePanel,
	)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(identity.GinMiddleware())
	admin.Use(s.AuthRequired())

	admin.GET("/subscriptions/duplicates", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionAudit), s.ListDuplicateSubscriptions)
	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
