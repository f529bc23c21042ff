package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/elevenplus/tutor/internal/billing"
	billingdomain "github.com/elevenplus/tutor/internal/billing/domain"
	"github.com/elevenplus/tutor/internal/clock"
	"github.com/elevenplus/tutor/internal/config"
	"github.com/elevenplus/tutor/internal/identity"
	"github.com/elevenplus/tutor/internal/migration"
	"github.com/elevenplus/tutor/internal/mockexam"
	mockexamdomain "github.com/elevenplus/tutor/internal/mockexam/domain"
	mockexamservice "github.com/elevenplus/tutor/internal/mockexam/service"
	"github.com/elevenplus/tutor/internal/observability"
	obsmiddleware "github.com/elevenplus/tutor/internal/observability/logger"
	obsmetrics "github.com/elevenplus/tutor/internal/observability/metrics"
	obstracing "github.com/elevenplus/tutor/internal/observability/tracing"
	"github.com/elevenplus/tutor/internal/profile"
	profiledomain "github.com/elevenplus/tutor/internal/profile/domain"
	"github.com/elevenplus/tutor/internal/progress"
	progressdomain "github.com/elevenplus/tutor/internal/progress/domain"
	"github.com/elevenplus/tutor/internal/ratelimit"
	"github.com/elevenplus/tutor/internal/usage"
	usagedomain "github.com/elevenplus/tutor/internal/usage/domain"
	"github.com/elevenplus/tutor/pkg/db"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	db.Module,
	migration.Module,
	observability.Module,
	identity.Module,
	profile.Module,
	usage.Module,
	billing.Module,
	mockexam.Module,
	progress.Module,
	ratelimit.Module,
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
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	clock          clock.Clock
	verifier       identity.TokenVerifier
	profileSvc     profiledomain.Service
	usageSvc       usagedomain.Service
	reconciler     billingdomain.Reconciler
	checkoutSvc    billingdomain.CheckoutService
	mockexamSvc    mockexamdomain.Service
	examSessions   *mockexamservice.SessionManager
	progressSvc    progressdomain.Service
	consumeLimiter *ratelimit.ConsumeLimiter
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	Clock          clock.Clock
	Verifier       identity.TokenVerifier
	ProfileSvc     profiledomain.Service
	UsageSvc       usagedomain.Service
	Reconciler     billingdomain.Reconciler
	CheckoutSvc    billingdomain.CheckoutService
	MockexamSvc    mockexamdomain.Service
	ExamSessions   *mockexamservice.SessionManager
	ProgressSvc    progressdomain.Service
	ConsumeLimiter *ratelimit.ConsumeLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		clock:          p.Clock,
		verifier:       p.Verifier,
		profileSvc:     p.ProfileSvc,
		usageSvc:       p.UsageSvc,
		reconciler:     p.Reconciler,
		checkoutSvc:    p.CheckoutSvc,
		mockexamSvc:    p.MockexamSvc,
		examSessions:   p.ExamSessions,
		progressSvc:    p.ProgressSvc,
		consumeLimiter: p.ConsumeLimiter,
		obsMetrics:     p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Usage --------
	api.GET("/usage", s.AuthRequired(), s.CheckUsage)
	api.POST("/usage", s.AuthRequired(), s.ConsumeRateLimit(), s.ConsumeUsage)

	// -------- Billing --------
	api.POST("/billing/checkout", s.AuthRequired(), s.CreateCheckout)
	api.POST("/billing/portal", s.AuthRequired(), s.CreatePortal)

	// -------- Papers --------
	api.GET("/papers/completed", s.AuthRequired(), s.ListCompletedPapers)
	api.POST("/papers/completed", s.AuthRequired(), s.MarkPaperCompleted)

	// -------- Exam sessions --------
	api.POST("/exams/sessions", s.AuthRequired(), s.StartExamSession)
	api.GET("/exams/sessions/:id", s.AuthRequired(), s.GetExamSession)
	api.POST("/exams/sessions/:id/finish", s.AuthRequired(), s.FinishExamSession)

	// -------- Progress --------
	api.GET("/progress", s.AuthRequired(), s.GetProgress)
}

func (s *Server) registerWebhookRoutes() {
	// Webhooks authenticate by signature, not bearer token.
	s.engine.POST("/api/webhooks/billing", s.HandleBillingWebhook)
}
