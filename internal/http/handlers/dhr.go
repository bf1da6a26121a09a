package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/asvo/qmscore-backend/internal/http/response"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/services"
)

type DHRHandler struct {
	log        *logger.Logger
	dhrService services.DHRService
}

func NewDHRHandler(log *logger.Logger, dhrService services.DHRService) *DHRHandler {
	handlerLogger := log.With("handler", "DHRHandler")
	return &DHRHandler{log: handlerLogger, dhrService: dhrService}
}

func (h *DHRHandler) GetByUnit(c *gin.Context) {
	unitID, ok := parseUUIDParam(c, "unitId")
	if !ok {
		return
	}
	records, err := h.dhrService.ListByUnit(c.Request.Context(), unitID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, records)
}
