package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/pkg/qmserr"
	"github.com/asvo/qmscore-backend/internal/repos"
	"github.com/asvo/qmscore-backend/internal/requestdata"
	"github.com/asvo/qmscore-backend/internal/types"
)

// Audit actions emitted by route-sheet transitions.
const (
	auditOperationStart    = "OPERATION_START"
	auditOperationComplete = "OPERATION_COMPLETE"
	auditOperationFail     = "OPERATION_FAIL"
	auditOperationHold     = "OPERATION_HOLD"
	auditOperationInspect  = "OPERATION_INSPECT"
	auditAutoHold          = "MES_AUTO_HOLD"
)

// DHR event kinds.
const (
	dhrEventComplete = "OPERATION_COMPLETE"
	dhrEventFail     = "OPERATION_FAIL"
)

// RouteSheet bundles a unit with its full operation history.
type RouteSheet struct {
	Unit       *types.WorkOrderUnit     `json:"unit"`
	Operations []*types.OperationRecord `json:"operations"`
}

type StartInput struct {
	EquipmentID            *uuid.UUID `json:"equipment_id,omitempty"`
	EquipmentCalibrationOk *bool      `json:"equipment_calibration_ok,omitempty"`
}

type ResponseInput struct {
	ChecklistItemID uuid.UUID `json:"checklist_item_id"`
	ResponseValue   *string   `json:"response_value,omitempty"`
	NumericValue    *float64  `json:"numeric_value,omitempty"`
	BooleanValue    *bool     `json:"boolean_value,omitempty"`
	PhotoURL        *string   `json:"photo_url,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

type CompleteInput struct {
	OperatorSignatureID *uuid.UUID `json:"operator_signature_id,omitempty"`
	Notes               string     `json:"notes,omitempty"`
}

type FailInput struct {
	Comment string `json:"comment"`
}

type HoldInput struct {
	Reason string `json:"reason,omitempty"`
}

type InspectInput struct {
	Result               *string    `json:"result,omitempty"`
	InspectorSignatureID *uuid.UUID `json:"inspector_signature_id,omitempty"`
	Notes                string     `json:"notes,omitempty"`
}

type OperationService interface {
	GetBySerial(ctx context.Context, serialNumber string) (*RouteSheet, error)
	GetByUnit(ctx context.Context, unitID uuid.UUID) (*RouteSheet, error)
	GetOperation(ctx context.Context, operationID uuid.UUID) (*types.OperationRecord, error)
	GetActive(ctx context.Context) ([]*types.OperationRecord, error)
	GetWorkstation(ctx context.Context, sectionID uuid.UUID) ([]*types.OperationRecord, error)
	Start(ctx context.Context, operationID uuid.UUID, input StartInput) (*types.OperationRecord, error)
	Respond(ctx context.Context, operationID uuid.UUID, responses []ResponseInput) ([]*types.ChecklistResponse, error)
	Complete(ctx context.Context, operationID uuid.UUID, input CompleteInput) (*types.OperationRecord, error)
	Fail(ctx context.Context, operationID uuid.UUID, input FailInput) (*types.OperationRecord, error)
	Hold(ctx context.Context, operationID uuid.UUID, input HoldInput) (*types.OperationRecord, error)
	Inspect(ctx context.Context, operationID uuid.UUID, input InspectInput) (*types.OperationRecord, error)
}

type operationService struct {
	db            *gorm.DB
	log           *logger.Logger
	runner        repos.TxRunner
	operationRepo repos.OperationRepo
	unitRepo      repos.UnitRepo
	routeStepRepo repos.RouteStepRepo
	checklistRepo repos.StepChecklistRepo
	responseRepo  repos.ChecklistResponseRepo
	equipmentRepo repos.EquipmentRepo
	ncRepo        repos.NonconformityRepo
	dhrService    DHRService
	auditService  AuditService
	autoNCDueDays int
	now           func() time.Time
}

func NewOperationService(
	db *gorm.DB,
	log *logger.Logger,
	runner repos.TxRunner,
	operationRepo repos.OperationRepo,
	unitRepo repos.UnitRepo,
	routeStepRepo repos.RouteStepRepo,
	checklistRepo repos.StepChecklistRepo,
	responseRepo repos.ChecklistResponseRepo,
	equipmentRepo repos.EquipmentRepo,
	ncRepo repos.NonconformityRepo,
	dhrService DHRService,
	auditService AuditService,
	autoNCDueDays int,
) OperationService {
	serviceLog := log.With("service", "OperationService")
	if runner == nil {
		runner = repos.NewGormTxRunner(db)
	}
	return &operationService{
		db:            db,
		log:           serviceLog,
		runner:        runner,
		operationRepo: operationRepo,
		unitRepo:      unitRepo,
		routeStepRepo: routeStepRepo,
		checklistRepo: checklistRepo,
		responseRepo:  responseRepo,
		equipmentRepo: equipmentRepo,
		ncRepo:        ncRepo,
		dhrService:    dhrService,
		auditService:  auditService,
		autoNCDueDays: autoNCDueDays,
		now:           time.Now,
	}
}

// ─── Queries ───

func (os *operationService) GetBySerial(ctx context.Context, serialNumber string) (*RouteSheet, error) {
	dbc := dbctx.Context{Ctx: ctx}

	unit, err := os.unitRepo.GetBySerial(dbc, serialNumber)
	if err != nil {
		return nil, qmserr.MapError("operation.get_by_serial", err)
	}
	operations, err := os.operationRepo.GetByUnit(dbc, unit.ID)
	if err != nil {
		return nil, qmserr.MapError("operation.get_by_serial", err)
	}
	return &RouteSheet{Unit: unit, Operations: operations}, nil
}

func (os *operationService) GetByUnit(ctx context.Context, unitID uuid.UUID) (*RouteSheet, error) {
	dbc := dbctx.Context{Ctx: ctx}

	unit, err := os.unitRepo.GetByID(dbc, unitID)
	if err != nil {
		return nil, qmserr.MapError("operation.get_by_unit", err)
	}
	operations, err := os.operationRepo.GetByUnit(dbc, unitID)
	if err != nil {
		return nil, qmserr.MapError("operation.get_by_unit", err)
	}
	return &RouteSheet{Unit: unit, Operations: operations}, nil
}

func (os *operationService) GetOperation(ctx context.Context, operationID uuid.UUID) (*types.OperationRecord, error) {
	operation, err := os.operationRepo.GetByID(dbctx.Context{Ctx: ctx}, operationID)
	if err != nil {
		return nil, qmserr.MapError("operation.get", err)
	}
	return operation, nil
}

func (os *operationService) GetActive(ctx context.Context) ([]*types.OperationRecord, error) {
	actor := requestdata.ActorID(ctx)
	if actor == uuid.Nil {
		return nil, qmserr.New(qmserr.CodeUnauthorized, "operation.get_active", "authorization required")
	}
	operations, err := os.operationRepo.GetActiveByOperator(dbctx.Context{Ctx: ctx}, actor)
	if err != nil {
		return nil, qmserr.MapError("operation.get_active", err)
	}
	return operations, nil
}

func (os *operationService) GetWorkstation(ctx context.Context, sectionID uuid.UUID) ([]*types.OperationRecord, error) {
	var results []*types.OperationRecord

	err := os.db.WithContext(ctx).
		Preload("Responses").
		Preload("RouteStep").
		Joins("JOIN work_order_unit ON work_order_unit.id = operation_record.unit_id").
		Where("work_order_unit.section_id = ? AND operation_record.status IN ?",
			sectionID, []string{types.OperationStatusPending, types.OperationStatusInProgress}).
		Order("operation_record.step_order ASC").
		Find(&results).Error
	if err != nil {
		return nil, qmserr.MapError("operation.get_workstation", err)
	}
	return results, nil
}

// ─── Gate check ───

type gateResult struct {
	OK           bool
	BlockingStep *types.OperationRecord
}

// checkGate verifies that every earlier go/no-go operation on the unit is
// COMPLETED with result PASS before a later step may start.
func (os *operationService) checkGate(dbc dbctx.Context, unitID uuid.UUID, currentStepOrder int) (gateResult, error) {
	priorOps, err := os.operationRepo.GetPriorByUnit(dbc, unitID, currentStepOrder)
	if err != nil {
		return gateResult{}, err
	}

	for _, op := range priorOps {
		isGoNoGo := op.RouteStep != nil && op.RouteStep.IsGoNoGo
		if !isGoNoGo {
			continue
		}
		passed := op.Status == types.OperationStatusCompleted &&
			op.Result != nil && *op.Result == types.ResultPass
		if !passed {
			return gateResult{OK: false, BlockingStep: op}, nil
		}
	}
	return gateResult{OK: true}, nil
}

// ─── Transitions ───

func (os *operationService) Start(ctx context.Context, operationID uuid.UUID, input StartInput) (*types.OperationRecord, error) {
	actor := requestdata.ActorID(ctx)
	if actor == uuid.Nil {
		return nil, qmserr.New(qmserr.CodeUnauthorized, "operation.start", "authorization required")
	}

	var operation *types.OperationRecord
	err := os.runner.InTx(ctx, func(dbc dbctx.Context) error {
		op, err := os.operationRepo.GetByID(dbc, operationID)
		if err != nil {
			return err
		}
		if op.Status != types.OperationStatusPending {
			return qmserr.Newf(qmserr.CodeInvalidState, "operation.start",
				"cannot start operation with status: %s", op.Status)
		}

		gate, err := os.checkGate(dbc, op.UnitID, op.StepOrder)
		if err != nil {
			return err
		}
		if !gate.OK {
			return qmserr.Newf(qmserr.CodeValidation, "operation.start",
				"gate check failed: step %q (order %d) must be completed first",
				gate.BlockingStep.StepName, gate.BlockingStep.StepOrder)
		}

		if err := os.checkEquipment(dbc, op.RouteStep); err != nil {
			return err
		}

		startedAt := os.now()
		fields := map[string]interface{}{
			"status":      types.OperationStatusInProgress,
			"operator_id": actor,
			"started_at":  startedAt,
		}
		if input.EquipmentID != nil {
			fields["equipment_id"] = *input.EquipmentID
		}
		if input.EquipmentCalibrationOk != nil {
			fields["equipment_calibration_ok"] = *input.EquipmentCalibrationOk
		}
		rows, err := os.operationRepo.UpdateStatusGuarded(dbc, op.ID, types.OperationStatusPending, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return qmserr.New(qmserr.CodeInvalidState, "operation.start",
				"operation was started by another user")
		}

		if err := os.unitRepo.UpdateFields(dbc, op.UnitID, map[string]interface{}{
			"status":          types.UnitStatusInProgress,
			"current_step_id": op.RouteStepID,
		}); err != nil {
			return err
		}
		operation = op
		return nil
	})
	if err != nil {
		return nil, qmserr.MapError("operation.start", err)
	}

	os.bestEffort("operation.start.audit", func() error {
		_, err := os.auditService.Log(ctx, AuditEvent{
			UserID:      &actor,
			Action:      auditOperationStart,
			Entity:      "OperationRecord",
			EntityID:    &operation.ID,
			Description: fmt.Sprintf("Started operation %q (step %d) for unit %s", operation.StepName, operation.StepOrder, operation.UnitID),
			Metadata: map[string]interface{}{
				"unit_id":       operation.UnitID,
				"work_order_id": operation.WorkOrderID,
				"step_order":    operation.StepOrder,
				"operator_id":   actor,
			},
		})
		return err
	})

	return os.reload(ctx, operationID)
}

func (os *operationService) Respond(ctx context.Context, operationID uuid.UUID, responses []ResponseInput) ([]*types.ChecklistResponse, error) {
	actor := requestdata.ActorID(ctx)
	if actor == uuid.Nil {
		return nil, qmserr.New(qmserr.CodeUnauthorized, "operation.respond", "authorization required")
	}
	if len(responses) == 0 {
		return nil, qmserr.New(qmserr.CodeValidation, "operation.respond",
			"request must contain a non-empty responses array")
	}

	var created []*types.ChecklistResponse
	err := os.runner.InTx(ctx, func(dbc dbctx.Context) error {
		op, err := os.operationRepo.GetByID(dbc, operationID)
		if err != nil {
			return err
		}
		if op.Status != types.OperationStatusInProgress {
			return qmserr.New(qmserr.CodeInvalidState, "operation.respond",
				"operation must be IN_PROGRESS to record responses")
		}

		respondedAt := os.now()
		records := make([]*types.ChecklistResponse, 0, len(responses))
		for _, input := range responses {
			if input.ChecklistItemID == uuid.Nil {
				return qmserr.New(qmserr.CodeValidation, "operation.respond",
					"each response must include checklist_item_id")
			}

			question := fmt.Sprintf("Checklist item %s", input.ChecklistItemID)
			responseType := types.ResponseTypeText
			var withinTolerance *string

			item, err := os.checklistRepo.GetByID(dbc, input.ChecklistItemID)
			if err == nil && item != nil {
				question = item.Question
				responseType = item.ResponseType
				if responseType == types.ResponseTypeNumeric && input.NumericValue != nil {
					withinTolerance = EvaluateTolerance(input.NumericValue, item)
				}
			}

			records = append(records, &types.ChecklistResponse{
				OperationID:     op.ID,
				ChecklistItemID: input.ChecklistItemID,
				Question:        question,
				ResponseType:    responseType,
				ResponseValue:   input.ResponseValue,
				NumericValue:    input.NumericValue,
				BooleanValue:    input.BooleanValue,
				WithinTolerance: withinTolerance,
				PhotoURL:        input.PhotoURL,
				RespondedByID:   actor,
				RespondedAt:     respondedAt,
				Notes:           input.Notes,
			})
		}

		created, err = os.responseRepo.Create(dbc, records)
		return err
	})
	if err != nil {
		return nil, qmserr.MapError("operation.respond", err)
	}
	return created, nil
}

func (os *operationService) Complete(ctx context.Context, operationID uuid.UUID, input CompleteInput) (*types.OperationRecord, error) {
	actor := requestdata.ActorID(ctx)
	if actor == uuid.Nil {
		return nil, qmserr.New(qmserr.CodeUnauthorized, "operation.complete", "authorization required")
	}

	var (
		operation *types.OperationRecord
		autoHeld  bool
		ncRecord  *types.Nonconformity
		redCount  int
	)
	err := os.runner.InTx(ctx, func(dbc dbctx.Context) error {
		op, err := os.operationRepo.GetByID(dbc, operationID)
		if err != nil {
			return err
		}
		if op.Status != types.OperationStatusInProgress {
			return qmserr.Newf(qmserr.CodeInvalidState, "operation.complete",
				"cannot complete operation with status: %s", op.Status)
		}

		if err := os.checkMandatoryChecklist(dbc, op); err != nil {
			return err
		}

		redResponses := responsesWithTolerance(op.Responses, types.ToleranceRed)
		redCount = len(redResponses)
		autoHeld, err = os.anyAutoHoldItem(dbc, redResponses)
		if err != nil {
			return err
		}

		if autoHeld {
			if err := os.unitRepo.UpdateFields(dbc, op.UnitID, map[string]interface{}{
				"status":      types.UnitStatusOnHold,
				"hold_reason": fmt.Sprintf("Auto-hold: out-of-tolerance at step %q", op.StepName),
			}); err != nil {
				return err
			}
			ncRecord, err = os.createAutoNC(dbc, op, redResponses)
			if err != nil {
				return err
			}
		}

		completedAt := os.now()
		result := types.ResultPass
		if autoHeld {
			result = types.ResultFail
		}
		fields := map[string]interface{}{
			"status":       types.OperationStatusCompleted,
			"result":       result,
			"completed_at": completedAt,
		}
		if op.StartedAt != nil {
			fields["duration_seconds"] = int(math.Round(completedAt.Sub(*op.StartedAt).Seconds()))
		}
		if ncRecord != nil {
			fields["nc_id"] = ncRecord.ID
		}
		if input.OperatorSignatureID != nil {
			fields["operator_signature_id"] = *input.OperatorSignatureID
		}
		if strings.TrimSpace(input.Notes) != "" {
			fields["notes"] = input.Notes
		}
		rows, err := os.operationRepo.UpdateStatusGuarded(dbc, op.ID, types.OperationStatusInProgress, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return qmserr.New(qmserr.CodeInvalidState, "operation.complete",
				"operation was completed by another user")
		}

		if !autoHeld {
			if err := os.advanceUnit(dbc, op); err != nil {
				return err
			}
		}
		operation = op
		return nil
	})
	if err != nil {
		return nil, qmserr.MapError("operation.complete", err)
	}

	updated, reloadErr := os.reload(ctx, operationID)
	if reloadErr != nil {
		return nil, reloadErr
	}

	os.bestEffort("operation.complete.dhr", func() error {
		_, err := os.dhrService.RecordOperation(ctx, updated, dhrEventComplete)
		return err
	})
	if autoHeld {
		os.bestEffort("operation.complete.audit_hold", func() error {
			meta := map[string]interface{}{
				"unit_id":            operation.UnitID,
				"red_response_count": redCount,
			}
			if ncRecord != nil {
				meta["nc_id"] = ncRecord.ID
			}
			_, err := os.auditService.Log(ctx, AuditEvent{
				UserID:      &actor,
				Action:      auditAutoHold,
				Entity:      "OperationRecord",
				EntityID:    &operation.ID,
				Description: fmt.Sprintf("Auto-hold triggered at step %q for unit %s", operation.StepName, operation.UnitID),
				Severity:    types.NotifySeverityCritical,
				Metadata:    meta,
			})
			return err
		})
	}
	os.bestEffort("operation.complete.audit", func() error {
		result := types.ResultPass
		if autoHeld {
			result = types.ResultFail
		}
		_, err := os.auditService.Log(ctx, AuditEvent{
			UserID:      &actor,
			Action:      auditOperationComplete,
			Entity:      "OperationRecord",
			EntityID:    &operation.ID,
			Description: fmt.Sprintf("Completed operation %q (step %d) for unit %s, result: %s", operation.StepName, operation.StepOrder, operation.UnitID, result),
			Metadata: map[string]interface{}{
				"unit_id":       operation.UnitID,
				"work_order_id": operation.WorkOrderID,
				"step_order":    operation.StepOrder,
				"result":        result,
				"auto_held":     autoHeld,
			},
		})
		return err
	})

	return updated, nil
}

func (os *operationService) Fail(ctx context.Context, operationID uuid.UUID, input FailInput) (*types.OperationRecord, error) {
	actor := requestdata.ActorID(ctx)
	if actor == uuid.Nil {
		return nil, qmserr.New(qmserr.CodeUnauthorized, "operation.fail", "authorization required")
	}
	comment := strings.TrimSpace(input.Comment)
	if comment == "" {
		return nil, qmserr.New(qmserr.CodeValidation, "operation.fail",
			"a comment is required when failing an operation")
	}

	op, err := os.operationRepo.GetByID(dbctx.Context{Ctx: ctx}, operationID)
	if err != nil {
		return nil, qmserr.MapError("operation.fail", err)
	}

	// NC creation is a secondary effect: a broken NC sequence must not block
	// recording the operator's failure verdict.
	var ncRecord *types.Nonconformity
	os.bestEffort("operation.fail.nc", func() error {
		var ncErr error
		ncRecord, ncErr = os.createFailNC(dbctx.Context{Ctx: ctx}, op, actor, comment)
		return ncErr
	})

	err = os.runner.InTx(ctx, func(dbc dbctx.Context) error {
		completedAt := os.now()
		fields := map[string]interface{}{
			"status":       types.OperationStatusFailed,
			"result":       types.ResultFail,
			"completed_at": completedAt,
			"notes":        comment,
		}
		if op.StartedAt != nil {
			fields["duration_seconds"] = int(math.Round(completedAt.Sub(*op.StartedAt).Seconds()))
		}
		if ncRecord != nil {
			fields["nc_id"] = ncRecord.ID
		}
		rows, err := os.operationRepo.UpdateStatusGuarded(dbc, op.ID, op.Status, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return qmserr.New(qmserr.CodeInvalidState, "operation.fail",
				"operation was modified concurrently")
		}

		return os.unitRepo.UpdateFields(dbc, op.UnitID, map[string]interface{}{
			"status":      types.UnitStatusOnHold,
			"hold_reason": fmt.Sprintf("Operation failed: %q, %s", op.StepName, comment),
		})
	})
	if err != nil {
		return nil, qmserr.MapError("operation.fail", err)
	}

	updated, reloadErr := os.reload(ctx, operationID)
	if reloadErr != nil {
		return nil, reloadErr
	}

	os.bestEffort("operation.fail.dhr", func() error {
		_, err := os.dhrService.RecordOperation(ctx, updated, dhrEventFail)
		return err
	})
	os.bestEffort("operation.fail.audit", func() error {
		meta := map[string]interface{}{
			"unit_id":       op.UnitID,
			"work_order_id": op.WorkOrderID,
			"step_order":    op.StepOrder,
			"comment":       comment,
		}
		if ncRecord != nil {
			meta["nc_id"] = ncRecord.ID
		}
		_, err := os.auditService.Log(ctx, AuditEvent{
			UserID:      &actor,
			Action:      auditOperationFail,
			Entity:      "OperationRecord",
			EntityID:    &op.ID,
			Description: fmt.Sprintf("Failed operation %q (step %d) for unit %s: %s", op.StepName, op.StepOrder, op.UnitID, comment),
			Severity:    types.NotifySeverityWarning,
			Metadata:    meta,
		})
		return err
	})

	return updated, nil
}

func (os *operationService) Hold(ctx context.Context, operationID uuid.UUID, input HoldInput) (*types.OperationRecord, error) {
	actor := requestdata.ActorID(ctx)
	if actor == uuid.Nil {
		return nil, qmserr.New(qmserr.CodeUnauthorized, "operation.hold", "authorization required")
	}

	var operation *types.OperationRecord
	err := os.runner.InTx(ctx, func(dbc dbctx.Context) error {
		op, err := os.operationRepo.GetByID(dbc, operationID)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{"status": types.OperationStatusOnHold}
		if strings.TrimSpace(input.Reason) != "" {
			fields["notes"] = input.Reason
		}
		if err := os.operationRepo.UpdateFields(dbc, op.ID, fields); err != nil {
			return err
		}

		holdReason := input.Reason
		if strings.TrimSpace(holdReason) == "" {
			holdReason = fmt.Sprintf("Operation %q placed on hold", op.StepName)
		}
		if err := os.unitRepo.UpdateFields(dbc, op.UnitID, map[string]interface{}{
			"status":      types.UnitStatusOnHold,
			"hold_reason": holdReason,
		}); err != nil {
			return err
		}
		operation = op
		return nil
	})
	if err != nil {
		return nil, qmserr.MapError("operation.hold", err)
	}

	os.bestEffort("operation.hold.audit", func() error {
		_, err := os.auditService.Log(ctx, AuditEvent{
			UserID:      &actor,
			Action:      auditOperationHold,
			Entity:      "OperationRecord",
			EntityID:    &operation.ID,
			Description: fmt.Sprintf("Placed operation %q on hold for unit %s", operation.StepName, operation.UnitID),
			Metadata: map[string]interface{}{
				"unit_id":       operation.UnitID,
				"work_order_id": operation.WorkOrderID,
				"reason":        input.Reason,
			},
		})
		return err
	})

	return os.reload(ctx, operationID)
}

func (os *operationService) Inspect(ctx context.Context, operationID uuid.UUID, input InspectInput) (*types.OperationRecord, error) {
	actor := requestdata.ActorID(ctx)
	if actor == uuid.Nil {
		return nil, qmserr.New(qmserr.CodeUnauthorized, "operation.inspect", "authorization required")
	}

	var operation *types.OperationRecord
	err := os.runner.InTx(ctx, func(dbc dbctx.Context) error {
		op, err := os.operationRepo.GetByID(dbc, operationID)
		if err != nil {
			return err
		}
		if op.OperatorID != nil && *op.OperatorID == actor {
			return qmserr.New(qmserr.CodeValidation, "operation.inspect",
				"inspector cannot be the same person as the operator")
		}

		fields := map[string]interface{}{"inspector_id": actor}
		if input.InspectorSignatureID != nil {
			fields["inspector_signature_id"] = *input.InspectorSignatureID
		}
		if strings.TrimSpace(input.Notes) != "" {
			annotated := fmt.Sprintf("[Inspector] %s", input.Notes)
			if op.Notes != "" {
				annotated = op.Notes + "\n" + annotated
			}
			fields["notes"] = annotated
		}
		if input.Result != nil {
			fields["result"] = *input.Result
		}
		if err := os.operationRepo.UpdateFields(dbc, op.ID, fields); err != nil {
			return err
		}
		operation = op
		return nil
	})
	if err != nil {
		return nil, qmserr.MapError("operation.inspect", err)
	}

	os.bestEffort("operation.inspect.audit", func() error {
		_, err := os.auditService.Log(ctx, AuditEvent{
			UserID:      &actor,
			Action:      auditOperationInspect,
			Entity:      "OperationRecord",
			EntityID:    &operation.ID,
			Description: fmt.Sprintf("Inspector verified operation %q for unit %s", operation.StepName, operation.UnitID),
			Metadata: map[string]interface{}{
				"unit_id":       operation.UnitID,
				"work_order_id": operation.WorkOrderID,
				"inspector_id":  actor,
				"operator_id":   operation.OperatorID,
			},
		})
		return err
	})

	return os.reload(ctx, operationID)
}

// ─── Internals ───

// bestEffort runs a secondary side effect and only logs its failure. The
// primary transition has already been decided by the time these run.
func (os *operationService) bestEffort(op string, fn func() error) {
	if err := fn(); err != nil {
		os.log.Warn("Best-effort side effect failed", "op", op, "error", err)
	}
}

func (os *operationService) reload(ctx context.Context, operationID uuid.UUID) (*types.OperationRecord, error) {
	updated, err := os.operationRepo.GetByID(dbctx.Context{Ctx: ctx}, operationID)
	if err != nil {
		return nil, qmserr.MapError("operation.reload", err)
	}
	return updated, nil
}

// checkEquipment verifies every piece of equipment the route step requires
// still has a VALID calibration.
func (os *operationService) checkEquipment(dbc dbctx.Context, step *types.ProcessRouteStep) error {
	if step == nil || len(step.RequiredEquipmentIDs) == 0 {
		return nil
	}
	var equipmentIDs []uuid.UUID
	if err := json.Unmarshal(step.RequiredEquipmentIDs, &equipmentIDs); err != nil {
		return qmserr.Wrap(qmserr.CodeInternal, "operation.start", err)
	}

	items, err := os.equipmentRepo.GetByIDs(dbc, equipmentIDs)
	if err != nil {
		return err
	}
	for _, eq := range items {
		if eq.CalibrationStatus != types.CalibrationValid {
			return qmserr.Newf(qmserr.CodeValidation, "operation.start",
				"equipment %q calibration is not valid: %s", eq.Name, eq.CalibrationStatus)
		}
	}
	return nil
}

func (os *operationService) checkMandatoryChecklist(dbc dbctx.Context, op *types.OperationRecord) error {
	items, err := os.checklistRepo.GetByStep(dbc, op.RouteStepID)
	if err != nil {
		return err
	}

	responded := make(map[uuid.UUID]bool, len(op.Responses))
	for _, r := range op.Responses {
		responded[r.ChecklistItemID] = true
	}

	var missing []string
	for _, item := range items {
		if item.IsMandatory && !responded[item.ID] {
			missing = append(missing, item.Question)
		}
	}
	if len(missing) > 0 {
		return qmserr.Newf(qmserr.CodeValidation, "operation.complete",
			"mandatory checklist items not answered: %s", strings.Join(missing, ", "))
	}
	return nil
}

func responsesWithTolerance(responses []*types.ChecklistResponse, tolerance string) []*types.ChecklistResponse {
	var out []*types.ChecklistResponse
	for _, r := range responses {
		if r.WithinTolerance != nil && *r.WithinTolerance == tolerance {
			out = append(out, r)
		}
	}
	return out
}

func (os *operationService) anyAutoHoldItem(dbc dbctx.Context, redResponses []*types.ChecklistResponse) (bool, error) {
	for _, r := range redResponses {
		item, err := os.checklistRepo.GetByID(dbc, r.ChecklistItemID)
		if err != nil {
			continue
		}
		if item.IsAutoHold {
			return true, nil
		}
	}
	return false, nil
}

func (os *operationService) nextNCNumber(dbc dbctx.Context, asOf time.Time) (string, error) {
	year := asOf.Year()
	count, err := os.ncRepo.CountByYear(dbc, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("NC-%d-%04d", year, count+1), nil
}

func (os *operationService) createAutoNC(dbc dbctx.Context, op *types.OperationRecord, redResponses []*types.ChecklistResponse) (*types.Nonconformity, error) {
	now := os.now()
	number, err := os.nextNCNumber(dbc, now)
	if err != nil {
		return nil, err
	}

	failedItems := make([]string, 0, len(redResponses))
	for _, r := range redResponses {
		failedItems = append(failedItems, r.Question)
	}

	reportedBy := uuid.Nil
	if op.OperatorID != nil {
		reportedBy = *op.OperatorID
	}
	dueDate := now.AddDate(0, 0, os.autoNCDueDays)

	nc := &types.Nonconformity{
		Number:            number,
		Title:             fmt.Sprintf("Auto-hold at step %q for unit %s", op.StepName, op.UnitID),
		Description:       fmt.Sprintf("Out-of-tolerance checklist responses detected during operation %s.\nFailed items: %s", op.ID, strings.Join(failedItems, ", ")),
		Source:            types.NCSourceMESAuto,
		Classification:    types.NCClassMinor,
		Status:            types.NCStatusOpen,
		ReportedByID:      reportedBy,
		WorkOrderID:       &op.WorkOrderID,
		UnitID:            &op.UnitID,
		OperationRecordID: &op.ID,
		DetectedAt:        now,
		DueDate:           &dueDate,
	}
	created, err := os.ncRepo.Create(dbc, []*types.Nonconformity{nc})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

func (os *operationService) createFailNC(dbc dbctx.Context, op *types.OperationRecord, actor uuid.UUID, comment string) (*types.Nonconformity, error) {
	now := os.now()
	number, err := os.nextNCNumber(dbc, now)
	if err != nil {
		return nil, err
	}
	dueDate := now.AddDate(0, 0, os.autoNCDueDays)

	nc := &types.Nonconformity{
		Number:            number,
		Title:             fmt.Sprintf("Operation failed: %q for unit %s", op.StepName, op.UnitID),
		Description:       comment,
		Source:            types.NCSourceMESOperationFail,
		Classification:    types.NCClassMajor,
		Status:            types.NCStatusOpen,
		ReportedByID:      actor,
		WorkOrderID:       &op.WorkOrderID,
		UnitID:            &op.UnitID,
		OperationRecordID: &op.ID,
		DetectedAt:        now,
		DueDate:           &dueDate,
	}
	created, err := os.ncRepo.Create(dbc, []*types.Nonconformity{nc})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// advanceUnit moves the unit's current-step pointer to the next route step,
// or parks it at QC_PENDING when the route is exhausted.
func (os *operationService) advanceUnit(dbc dbctx.Context, op *types.OperationRecord) error {
	if op.RouteStep == nil {
		return nil
	}
	next, err := os.routeStepRepo.GetNextStep(dbc, op.RouteStep.RouteID, op.RouteStep.StepOrder)
	if err != nil {
		return err
	}
	if next != nil {
		return os.unitRepo.UpdateFields(dbc, op.UnitID, map[string]interface{}{
			"current_step_id": next.ID,
		})
	}
	return os.unitRepo.UpdateFields(dbc, op.UnitID, map[string]interface{}{
		"status":          types.UnitStatusQCPending,
		"current_step_id": nil,
	})
}
