package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/scrollvite/internal/auth"
	authdomain "github.com/smallbiznis/scrollvite/internal/auth/domain"
	"github.com/smallbiznis/scrollvite/internal/authorization"
	"github.com/smallbiznis/scrollvite/internal/catalog"
	"github.com/smallbiznis/scrollvite/internal/config"
	"github.com/smallbiznis/scrollvite/internal/invite"
	invitedomain "github.com/smallbiznis/scrollvite/internal/invite/domain"
	"github.com/smallbiznis/scrollvite/internal/lock"
	"github.com/smallbiznis/scrollvite/internal/notify"
	"github.com/smallbiznis/scrollvite/internal/observability"
	obslogger "github.com/smallbiznis/scrollvite/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/scrollvite/internal/observability/metrics"
	obstracing "github.com/smallbiznis/scrollvite/internal/observability/tracing"
	"github.com/smallbiznis/scrollvite/internal/order"
	orderdomain "github.com/smallbiznis/scrollvite/internal/order/domain"
	"github.com/smallbiznis/scrollvite/internal/payment"
	paymentdomain "github.com/smallbiznis/scrollvite/internal/payment/domain"
	"github.com/smallbiznis/scrollvite/internal/providers"
	"github.com/smallbiznis/scrollvite/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	auth.Module,
	authorization.Module,
	lock.Module,
	ratelimit.Module,
	providers.Module,
	notify.Module,
	catalog.Module,
	order.Module,
	payment.Module,
	invite.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
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

type Params struct {
	fx.In

	Engine     *gin.Engine
	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Verifier   authdomain.Verifier
	Authz      authorization.Service
	Limiter    ratelimit.Limiter
	OrderSvc   orderdomain.Service
	PaymentSvc paymentdomain.Service
	WebhookSvc paymentdomain.WebhookService
	InviteSvc  invitedomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	verifier   authdomain.Verifier
	authzSvc   authorization.Service
	limiter    ratelimit.Limiter
	orderSvc   orderdomain.Service
	paymentSvc paymentdomain.Service
	webhookSvc paymentdomain.WebhookService
	inviteSvc  invitedomain.Service
	obsMetrics *obsmetrics.Metrics
	validate   *validator.Validate
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:     p.Engine,
		cfg:        p.Config,
		db:         p.DB,
		log:        p.Log.Named("http.server"),
		verifier:   p.Verifier,
		authzSvc:   p.Authz,
		limiter:    p.Limiter,
		orderSvc:   p.OrderSvc,
		paymentSvc: p.PaymentSvc,
		webhookSvc: p.WebhookSvc,
		inviteSvc:  p.InviteSvc,
		obsMetrics: p.ObsMetrics,
		validate:   validator.New(),
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/ready", s.Ready)

	public := s.engine.Group("/public")
	public.GET("/invites/:slug", s.PublicInviteRateLimit(), s.GetPublicInvite)

	// Gateways authenticate webhooks with their own signature header.
	s.engine.POST("/api/payments/webhooks/:provider", s.HandlePaymentWebhook)

	api := s.engine.Group("/api", s.AuthRequired())
	api.POST("/purchases/:template_id",
		s.authorize(authorization.ObjectPurchase, authorization.ActionPurchaseCreate),
		s.CreatePurchase)
	api.GET("/purchases",
		s.authorize(authorization.ObjectPurchase, authorization.ActionPurchaseList),
		s.ListPurchases)
	api.POST("/payments/verify",
		s.authorize(authorization.ObjectPayment, authorization.ActionPaymentVerify),
		s.VerifyPayment)
	api.GET("/invites",
		s.authorize(authorization.ObjectInvite, authorization.ActionInviteRead),
		s.ListInvites)
	api.GET("/invites/:id",
		s.authorize(authorization.ObjectInvite, authorization.ActionInviteRead),
		s.GetInvite)
	api.PUT("/invites/:id",
		s.authorize(authorization.ObjectInvite, authorization.ActionInviteUpdate),
		s.UpdateInvite)
}

// Ready reports whether the database answers.
func (s *Server) Ready(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		s.log.Warn("readiness check failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
