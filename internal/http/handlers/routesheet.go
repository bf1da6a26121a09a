package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/asvo/qmscore-backend/internal/http/response"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/pkg/qmserr"
	"github.com/asvo/qmscore-backend/internal/services"
)

type RouteSheetHandler struct {
	log              *logger.Logger
	operationService services.OperationService
}

func NewRouteSheetHandler(log *logger.Logger, operationService services.OperationService) *RouteSheetHandler {
	handlerLogger := log.With("handler", "RouteSheetHandler")
	return &RouteSheetHandler{log: handlerLogger, operationService: operationService}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(qmserr.CodeValidation), err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *RouteSheetHandler) GetBySerial(c *gin.Context) {
	sheet, err := h.operationService.GetBySerial(c.Request.Context(), c.Param("serialNumber"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, sheet)
}

func (h *RouteSheetHandler) GetByUnit(c *gin.Context) {
	unitID, ok := parseUUIDParam(c, "unitId")
	if !ok {
		return
	}
	sheet, err := h.operationService.GetByUnit(c.Request.Context(), unitID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, sheet)
}

func (h *RouteSheetHandler) GetOperation(c *gin.Context) {
	operationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	operation, err := h.operationService.GetOperation(c.Request.Context(), operationID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, operation)
}

func (h *RouteSheetHandler) GetActive(c *gin.Context) {
	operations, err := h.operationService.GetActive(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, operations)
}

func (h *RouteSheetHandler) GetWorkstation(c *gin.Context) {
	sectionID, ok := parseUUIDParam(c, "sectionId")
	if !ok {
		return
	}
	operations, err := h.operationService.GetWorkstation(c.Request.Context(), sectionID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, operations)
}

func (h *RouteSheetHandler) Start(c *gin.Context) {
	operationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.StartInput
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.RespondError(c, http.StatusBadRequest, string(qmserr.CodeValidation), err)
		return
	}
	operation, err := h.operationService.Start(c.Request.Context(), operationID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, operation)
}

func (h *RouteSheetHandler) Respond(c *gin.Context) {
	operationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Responses []services.ResponseInput `json:"responses"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(qmserr.CodeValidation), err)
		return
	}
	responses, err := h.operationService.Respond(c.Request.Context(), operationID, req.Responses)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, responses)
}

func (h *RouteSheetHandler) Complete(c *gin.Context) {
	operationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.CompleteInput
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.RespondError(c, http.StatusBadRequest, string(qmserr.CodeValidation), err)
		return
	}
	operation, err := h.operationService.Complete(c.Request.Context(), operationID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, operation)
}

func (h *RouteSheetHandler) Fail(c *gin.Context) {
	operationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.FailInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, string(qmserr.CodeValidation), err)
		return
	}
	operation, err := h.operationService.Fail(c.Request.Context(), operationID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, operation)
}

func (h *RouteSheetHandler) Hold(c *gin.Context) {
	operationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.HoldInput
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.RespondError(c, http.StatusBadRequest, string(qmserr.CodeValidation), err)
		return
	}
	operation, err := h.operationService.Hold(c.Request.Context(), operationID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, operation)
}

func (h *RouteSheetHandler) Inspect(c *gin.Context) {
	operationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req services.InspectInput
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.RespondError(c, http.StatusBadRequest, string(qmserr.CodeValidation), err)
		return
	}
	operation, err := h.operationService.Inspect(c.Request.Context(), operationID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, operation)
}
