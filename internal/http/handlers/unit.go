package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asvo/qmscore-backend/internal/http/response"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/pkg/qmserr"
	"github.com/asvo/qmscore-backend/internal/services"
)

type UnitHandler struct {
	log         *logger.Logger
	unitService services.UnitService
}

func NewUnitHandler(log *logger.Logger, unitService services.UnitService) *UnitHandler {
	handlerLogger := log.With("handler", "UnitHandler")
	return &UnitHandler{log: handlerLogger, unitService: unitService}
}

func (h *UnitHandler) Get(c *gin.Context) {
	unitID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	unit, err := h.unitService.Get(c.Request.Context(), unitID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, unit)
}

func (h *UnitHandler) Release(c *gin.Context) {
	unitID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.ReleaseInput
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.RespondError(c, http.StatusBadRequest, string(qmserr.CodeValidation), err)
		return
	}
	unit, err := h.unitService.Release(c.Request.Context(), unitID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, unit)
}
