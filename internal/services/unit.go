package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/pkg/qmserr"
	"github.com/asvo/qmscore-backend/internal/repos"
	"github.com/asvo/qmscore-backend/internal/requestdata"
	"github.com/asvo/qmscore-backend/internal/types"
)

const auditUnitRelease = "UNIT_RELEASE"

type ReleaseInput struct {
	ResumeTo string `json:"resume_to,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type UnitService interface {
	Get(ctx context.Context, unitID uuid.UUID) (*types.WorkOrderUnit, error)
	Release(ctx context.Context, unitID uuid.UUID, input ReleaseInput) (*types.WorkOrderUnit, error)
}

type unitService struct {
	db            *gorm.DB
	log           *logger.Logger
	runner        repos.TxRunner
	unitRepo      repos.UnitRepo
	operationRepo repos.OperationRepo
	auditService  AuditService
}

func NewUnitService(
	db *gorm.DB,
	log *logger.Logger,
	runner repos.TxRunner,
	unitRepo repos.UnitRepo,
	operationRepo repos.OperationRepo,
	auditService AuditService,
) UnitService {
	serviceLog := log.With("service", "UnitService")
	if runner == nil {
		runner = repos.NewGormTxRunner(db)
	}
	return &unitService{
		db:            db,
		log:           serviceLog,
		runner:        runner,
		unitRepo:      unitRepo,
		operationRepo: operationRepo,
		auditService:  auditService,
	}
}

func (us *unitService) Get(ctx context.Context, unitID uuid.UUID) (*types.WorkOrderUnit, error) {
	unit, err := us.unitRepo.GetByID(dbctx.Context{Ctx: ctx}, unitID)
	if err != nil {
		return nil, qmserr.MapError("unit.get", err)
	}
	return unit, nil
}

// Release returns an ON_HOLD unit to production. ResumeTo chooses the target
// state; when empty, the unit resumes IN_PROGRESS while it still points at a
// route step and goes to QC_PENDING otherwise.
func (us *unitService) Release(ctx context.Context, unitID uuid.UUID, input ReleaseInput) (*types.WorkOrderUnit, error) {
	actor := requestdata.ActorID(ctx)
	if actor == uuid.Nil {
		return nil, qmserr.New(qmserr.CodeUnauthorized, "unit.release", "authorization required")
	}

	var unit *types.WorkOrderUnit
	err := us.runner.InTx(ctx, func(dbc dbctx.Context) error {
		u, err := us.unitRepo.GetByID(dbc, unitID)
		if err != nil {
			return err
		}
		if u.Status != types.UnitStatusOnHold {
			return qmserr.Newf(qmserr.CodeInvalidState, "unit.release",
				"cannot release unit with status: %s", u.Status)
		}

		resumeTo := input.ResumeTo
		if resumeTo == "" {
			if u.CurrentStepID != nil {
				resumeTo = types.UnitStatusInProgress
			} else {
				resumeTo = types.UnitStatusQCPending
			}
		}
		if resumeTo != types.UnitStatusInProgress && resumeTo != types.UnitStatusQCPending {
			return qmserr.Newf(qmserr.CodeValidation, "unit.release",
				"resume_to must be %s or %s", types.UnitStatusInProgress, types.UnitStatusQCPending)
		}

		rows, err := us.unitRepo.UpdateStatusGuarded(dbc, u.ID,
			[]string{types.UnitStatusOnHold},
			map[string]interface{}{
				"status":      resumeTo,
				"hold_reason": "",
			})
		if err != nil {
			return err
		}
		if rows == 0 {
			return qmserr.New(qmserr.CodeInvalidState, "unit.release",
				"unit was released by another user")
		}

		// A held operation on the active step resumes with its unit.
		if resumeTo == types.UnitStatusInProgress && u.CurrentStepID != nil {
			held, err := us.operationRepo.GetByUnitAndStep(dbc, u.ID, *u.CurrentStepID,
				[]string{types.OperationStatusOnHold})
			if err == nil && held != nil {
				if _, err := us.operationRepo.UpdateStatusGuarded(dbc, held.ID,
					types.OperationStatusOnHold,
					map[string]interface{}{"status": types.OperationStatusInProgress}); err != nil {
					return err
				}
			}
		}
		unit = u
		return nil
	})
	if err != nil {
		return nil, qmserr.MapError("unit.release", err)
	}

	if _, auditErr := us.auditService.Log(ctx, AuditEvent{
		UserID:      &actor,
		Action:      auditUnitRelease,
		Entity:      "WorkOrderUnit",
		EntityID:    &unit.ID,
		Description: fmt.Sprintf("Released unit %s from hold", unit.SerialNumber),
		Metadata: map[string]interface{}{
			"work_order_id": unit.WorkOrderID,
			"notes":         input.Notes,
		},
	}); auditErr != nil {
		us.log.Warn("Audit append failed", "op", "unit.release", "error", auditErr)
	}

	updated, err := us.unitRepo.GetByID(dbctx.Context{Ctx: ctx}, unitID)
	if err != nil {
		return nil, qmserr.MapError("unit.release", err)
	}
	return updated, nil
}
