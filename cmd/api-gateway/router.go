package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/handler"
	"github.com/noah-isme/admission-agent-api/internal/middleware"
	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/internal/service"
	"github.com/noah-isme/admission-agent-api/pkg/config"
	"github.com/noah-isme/admission-agent-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/admission-agent-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/admission-agent-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth          *handler.AuthHandler
	students      *handler.StudentHandler
	circulars     *handler.CircularHandler
	eligibility   *handler.EligibilityHandler
	applications  *handler.ApplicationHandler
	workflow      *handler.WorkflowHandler
	wallet        *handler.WalletHandler
	notifications *handler.NotificationHandler
	checks        *handler.RequirementCheckHandler
	analyzer      *handler.AnalyzerHandler
	admitCards    *handler.AdmitCardHandler
	dashboard     *handler.DashboardHandler
	metrics       *handler.MetricsHandler
}

func newRouter(
	cfg *config.Config,
	logr *zap.Logger,
	metrics *service.MetricsService,
	tokens middleware.TokenValidator,
	audit middleware.AuditWriter,
	h routeHandlers,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/signup", h.auth.Signup)
	auth.POST("/login", h.auth.Login)
	auth.POST("/refresh", h.auth.Refresh)

	// Signed token carries its own authorization.
	api.GET("/admit-cards/download", h.admitCards.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	secured.POST("/auth/logout", h.auth.Logout)
	secured.POST("/auth/change-password", h.auth.ChangePassword)
	secured.GET("/auth/me", h.auth.Me)

	if cfg.Dashboard.Enabled {
		secured.GET("/dashboard", h.dashboard.Student)
	}

	students := secured.Group("/students")
	students.GET("/me", h.students.Me)
	students.POST("/me", h.students.Create)
	students.PUT("/me", h.students.Update)
	students.POST("/board-result", h.students.BoardResult)

	universities := secured.Group("/universities")
	universities.GET("", h.circulars.List)
	universities.GET("/:id", h.circulars.Get)

	eligibility := secured.Group("/eligibility")
	eligibility.GET("", h.eligibility.List)
	eligibility.GET("/:id", h.eligibility.Check)

	applications := secured.Group("/applications")
	applications.GET("", h.applications.List)
	applications.POST("", h.applications.Create)
	applications.GET("/stats", h.applications.Stats)
	applications.GET("/:id", h.applications.Get)
	applications.PATCH("/:id/auto-apply", h.applications.ToggleAutoApply)
	applications.POST("/:id/submit", middleware.Audit(audit, models.AuditActionSubmit, "applications"), h.applications.Submit)
	applications.GET("/:id/admit-card", h.admitCards.Link)

	workflow := secured.Group("/workflow")
	workflow.GET("/stages", h.workflow.Stages)
	workflow.POST("/start", h.workflow.Start)
	workflow.GET("/:applicationId", h.workflow.Status)
	workflow.POST("/:applicationId/cancel", h.workflow.Cancel)

	wallet := secured.Group("/wallet")
	wallet.GET("", h.wallet.Summary)
	wallet.GET("/transactions", h.wallet.Transactions)
	wallet.POST("/recharge", middleware.Audit(audit, models.AuditActionRecharge, "transactions"), h.wallet.Recharge)
	wallet.GET("/statement", h.wallet.Statement)

	notifications := secured.Group("/notifications")
	notifications.GET("", h.notifications.List)
	notifications.POST("/read-all", h.notifications.MarkAllRead)
	notifications.POST("/reminders", h.notifications.CreateReminder)
	notifications.PATCH("/:id/read", h.notifications.MarkRead)

	checks := secured.Group("/requirement-checks")
	checks.POST("", h.checks.Create)
	checks.GET("/:id", h.checks.Get)

	admin := secured.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	admin.GET("/students", h.students.List)
	admin.GET("/students/:id", h.students.Get)
	admin.GET("/admin/applications", h.applications.Search)
	admin.PATCH("/admin/applications/:id/status", middleware.Audit(audit, models.AuditActionStatusChange, "applications"), h.applications.UpdateStatus)
	admin.GET("/admin/metrics", h.metrics.Summary)
	if cfg.Dashboard.Enabled {
		admin.GET("/admin/dashboard", h.dashboard.Admin)
	}

	if cfg.Analyzer.Enabled {
		analyze := admin.Group("/analyze")
		analyze.POST("", middleware.Audit(audit, models.AuditActionAnalyze, "analysis_jobs"), h.analyzer.Create)
		analyze.GET("/results", h.analyzer.ListResults)
		analyze.GET("/results/:id", h.analyzer.GetResult)
		analyze.GET("/:id", h.analyzer.Get)
	}

	return r
}
