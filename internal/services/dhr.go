package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/pkg/qmserr"
	"github.com/asvo/qmscore-backend/internal/repos"
	"github.com/asvo/qmscore-backend/internal/types"
)

type DHRService interface {
	RecordOperation(ctx context.Context, operation *types.OperationRecord, action string) (*types.DHRRecord, error)
	ListByUnit(ctx context.Context, unitID uuid.UUID) ([]*types.DHRRecord, error)
}

type dhrService struct {
	db      *gorm.DB
	log     *logger.Logger
	dhrRepo repos.DHRRepo
}

func NewDHRService(db *gorm.DB, log *logger.Logger, dhrRepo repos.DHRRepo) DHRService {
	serviceLog := log.With("service", "DHRService")
	return &dhrService{db: db, log: serviceLog, dhrRepo: dhrRepo}
}

// RecordOperation appends one device-history line for an operation
// transition. Callers treat failures as best-effort.
func (ds *dhrService) RecordOperation(ctx context.Context, operation *types.OperationRecord, action string) (*types.DHRRecord, error) {
	if operation == nil {
		return nil, qmserr.New(qmserr.CodeValidation, "dhr.record", "operation record required")
	}

	record := &types.DHRRecord{
		UnitID:            operation.UnitID,
		WorkOrderID:       operation.WorkOrderID,
		RecordType:        types.DHRRecordProductionStep,
		OperationRecordID: &operation.ID,
		StepName:          operation.StepName,
		StepOrder:         &operation.StepOrder,
		Result:            operation.Result,
		OperatorID:        operation.OperatorID,
		StartedAt:         operation.StartedAt,
		CompletedAt:       operation.CompletedAt,
		Action:            action,
		Notes:             operation.Notes,
	}

	created, err := ds.dhrRepo.Create(dbctx.Context{Ctx: ctx}, []*types.DHRRecord{record})
	if err != nil {
		return nil, qmserr.MapError("dhr.record", err)
	}
	return created[0], nil
}

func (ds *dhrService) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]*types.DHRRecord, error) {
	records, err := ds.dhrRepo.GetByUnit(dbctx.Context{Ctx: ctx}, unitID)
	if err != nil {
		return nil, qmserr.MapError("dhr.list", err)
	}
	return records, nil
}
