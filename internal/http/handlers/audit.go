package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/asvo/qmscore-backend/internal/http/response"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/services"
)

type AuditHandler struct {
	log          *logger.Logger
	auditService services.AuditService
}

func NewAuditHandler(log *logger.Logger, auditService services.AuditService) *AuditHandler {
	handlerLogger := log.With("handler", "AuditHandler")
	return &AuditHandler{log: handlerLogger, auditService: auditService}
}

func (h *AuditHandler) Verify(c *gin.Context) {
	report, err := h.auditService.Verify(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, report)
}
