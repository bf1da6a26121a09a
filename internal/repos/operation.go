package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

type OperationRepo interface {
	Create(dbc dbctx.Context, records []*types.OperationRecord) ([]*types.OperationRecord, error)
	GetByID(dbc dbctx.Context, recordID uuid.UUID) (*types.OperationRecord, error)
	GetByUnit(dbc dbctx.Context, unitID uuid.UUID) ([]*types.OperationRecord, error)
	GetPriorByUnit(dbc dbctx.Context, unitID uuid.UUID, beforeOrder int) ([]*types.OperationRecord, error)
	GetByUnitAndStep(dbc dbctx.Context, unitID, stepID uuid.UUID, statuses []string) (*types.OperationRecord, error)
	GetActiveByOperator(dbc dbctx.Context, operatorID uuid.UUID) ([]*types.OperationRecord, error)
	GetActiveByEquipment(dbc dbctx.Context, equipmentID uuid.UUID) ([]*types.OperationRecord, error)
	UpdateFields(dbc dbctx.Context, recordID uuid.UUID, fields map[string]interface{}) error
	UpdateStatusGuarded(dbc dbctx.Context, recordID uuid.UUID, fromStatus string, fields map[string]interface{}) (int64, error)
}

type operationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOperationRepo(db *gorm.DB, baseLog *logger.Logger) OperationRepo {
	repoLog := baseLog.With("repo", "OperationRepo")
	return &operationRepo{db: db, log: repoLog}
}

func (or *operationRepo) Create(dbc dbctx.Context, records []*types.OperationRecord) ([]*types.OperationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}

	if len(records) == 0 {
		return []*types.OperationRecord{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (or *operationRepo) GetByID(dbc dbctx.Context, recordID uuid.UUID) (*types.OperationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}

	var result types.OperationRecord

	if err := transaction.WithContext(dbc.Ctx).
		Preload("Responses").
		Preload("RouteStep").
		Where("id = ?", recordID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (or *operationRepo) GetByUnit(dbc dbctx.Context, unitID uuid.UUID) ([]*types.OperationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}

	var results []*types.OperationRecord

	if err := transaction.WithContext(dbc.Ctx).
		Preload("Responses").
		Preload("RouteStep").
		Where("unit_id = ?", unitID).
		Order("step_order ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetPriorByUnit returns the unit's operations strictly before beforeOrder,
// with their route steps attached, for gate evaluation.
func (or *operationRepo) GetPriorByUnit(dbc dbctx.Context, unitID uuid.UUID, beforeOrder int) ([]*types.OperationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}

	var results []*types.OperationRecord

	if err := transaction.WithContext(dbc.Ctx).
		Preload("RouteStep").
		Where("unit_id = ? AND step_order < ?", unitID, beforeOrder).
		Order("step_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (or *operationRepo) GetByUnitAndStep(dbc dbctx.Context, unitID, stepID uuid.UUID, statuses []string) (*types.OperationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}

	var result types.OperationRecord

	query := transaction.WithContext(dbc.Ctx).
		Where("unit_id = ? AND route_step_id = ?", unitID, stepID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if err := query.Order("created_at DESC").First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (or *operationRepo) GetActiveByOperator(dbc dbctx.Context, operatorID uuid.UUID) ([]*types.OperationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}

	var results []*types.OperationRecord

	if err := transaction.WithContext(dbc.Ctx).
		Where("operator_id = ? AND status = ?", operatorID, types.OperationStatusInProgress).
		Order("started_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (or *operationRepo) GetActiveByEquipment(dbc dbctx.Context, equipmentID uuid.UUID) ([]*types.OperationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}

	var results []*types.OperationRecord

	if err := transaction.WithContext(dbc.Ctx).
		Where("equipment_id = ? AND status = ?", equipmentID, types.OperationStatusInProgress).
		Order("started_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (or *operationRepo) UpdateFields(dbc dbctx.Context, recordID uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}

	return transaction.WithContext(dbc.Ctx).
		Model(&types.OperationRecord{}).
		Where("id = ?", recordID).
		Updates(fields).Error
}

// UpdateStatusGuarded transitions the record only while it still holds
// fromStatus. A zero row count means another writer got there first.
func (or *operationRepo) UpdateStatusGuarded(dbc dbctx.Context, recordID uuid.UUID, fromStatus string, fields map[string]interface{}) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}

	res := transaction.WithContext(dbc.Ctx).
		Model(&types.OperationRecord{}).
		Where("id = ? AND status = ?", recordID, fromStatus).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
