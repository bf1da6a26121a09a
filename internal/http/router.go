package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/asvo/qmscore-backend/internal/http/handlers"
	httpMW "github.com/asvo/qmscore-backend/internal/http/middleware"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	RouteSheetHandler *httpH.RouteSheetHandler
	UnitHandler       *httpH.UnitHandler
	EscalationHandler *httpH.EscalationHandler
	DHRHandler        *httpH.DHRHandler
	AuditHandler      *httpH.AuditHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("qmscore-backend"))
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.GET("/me", cfg.AuthHandler.Me)
		}

		// Route sheet
		if cfg.RouteSheetHandler != nil {
			protected.GET("/route-sheet/by-serial/:serialNumber", cfg.RouteSheetHandler.GetBySerial)
			protected.GET("/route-sheet/by-unit/:unitId", cfg.RouteSheetHandler.GetByUnit)
			protected.GET("/route-sheet/operations/:id", cfg.RouteSheetHandler.GetOperation)
			protected.GET("/route-sheet/active", cfg.RouteSheetHandler.GetActive)
			protected.GET("/route-sheet/workstation/:sectionId", cfg.RouteSheetHandler.GetWorkstation)
			protected.POST("/route-sheet/operations/:id/start", cfg.RouteSheetHandler.Start)
			protected.POST("/route-sheet/operations/:id/respond", cfg.RouteSheetHandler.Respond)
			protected.POST("/route-sheet/operations/:id/complete", cfg.RouteSheetHandler.Complete)
			protected.POST("/route-sheet/operations/:id/fail", cfg.RouteSheetHandler.Fail)
			protected.POST("/route-sheet/operations/:id/hold", cfg.RouteSheetHandler.Hold)
			protected.POST("/route-sheet/operations/:id/inspect", cfg.RouteSheetHandler.Inspect)
		}

		// Units
		if cfg.UnitHandler != nil {
			protected.GET("/units/:id", cfg.UnitHandler.Get)
			protected.POST("/units/:id/release", cfg.UnitHandler.Release)
		}

		// SLA escalation
		if cfg.EscalationHandler != nil {
			protected.POST("/nc/escalation/check", cfg.EscalationHandler.Check)
			protected.GET("/nc/escalation/overdue", cfg.EscalationHandler.Overdue)
		}

		// Device history record
		if cfg.DHRHandler != nil {
			protected.GET("/dhr/by-unit/:unitId", cfg.DHRHandler.GetByUnit)
		}

		// Audit chain
		if cfg.AuditHandler != nil {
			protected.GET("/audit/verify", cfg.AuditHandler.Verify)
		}
	}

	return r
}
