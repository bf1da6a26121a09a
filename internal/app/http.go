package app

import (
	"github.com/gin-gonic/gin"

	httpx "github.com/asvo/qmscore-backend/internal/http"
	"github.com/asvo/qmscore-backend/internal/http/handlers"
	"github.com/asvo/qmscore-backend/internal/http/middleware"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	RouteSheet *handlers.RouteSheetHandler
	Unit       *handlers.UnitHandler
	Escalation *handlers.EscalationHandler
	DHR        *handlers.DHRHandler
	Audit      *handlers.AuditHandler
}

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     handlers.NewHealthHandler(),
		Auth:       handlers.NewAuthHandler(log, services.Auth),
		RouteSheet: handlers.NewRouteSheetHandler(log, services.Operation),
		Unit:       handlers.NewUnitHandler(log, services.Unit),
		Escalation: handlers.NewEscalationHandler(log, services.Escalation),
		DHR:        handlers.NewDHRHandler(log, services.DHR),
		Audit:      handlers.NewAuditHandler(log, services.Audit),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, h Handlers, mw Middleware) *gin.Engine {
	return httpx.NewRouter(httpx.RouterConfig{
		Log:               log,
		HealthHandler:     h.Health,
		AuthHandler:       h.Auth,
		AuthMiddleware:    mw.Auth,
		RouteSheetHandler: h.RouteSheet,
		UnitHandler:       h.Unit,
		EscalationHandler: h.Escalation,
		DHRHandler:        h.DHR,
		AuditHandler:      h.Audit,
	})
}
