package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/asvo/qmscore-backend/internal/http/response"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/services"
)

type EscalationHandler struct {
	log               *logger.Logger
	escalationService services.EscalationService
}

func NewEscalationHandler(log *logger.Logger, escalationService services.EscalationService) *EscalationHandler {
	handlerLogger := log.With("handler", "EscalationHandler")
	return &EscalationHandler{log: handlerLogger, escalationService: escalationService}
}

// Check runs one escalation sweep on demand, outside the worker schedule.
func (h *EscalationHandler) Check(c *gin.Context) {
	summary, err := h.escalationService.CheckAndEscalate(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, summary)
}

func (h *EscalationHandler) Overdue(c *gin.Context) {
	snapshot, err := h.escalationService.GetOverdueItems(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, snapshot)
}
