package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

type UnitRepo interface {
	Create(dbc dbctx.Context, units []*types.WorkOrderUnit) ([]*types.WorkOrderUnit, error)
	GetByID(dbc dbctx.Context, unitID uuid.UUID) (*types.WorkOrderUnit, error)
	GetBySerial(dbc dbctx.Context, serialNumber string) (*types.WorkOrderUnit, error)
	UpdateFields(dbc dbctx.Context, unitID uuid.UUID, fields map[string]interface{}) error
	UpdateStatusGuarded(dbc dbctx.Context, unitID uuid.UUID, fromStatuses []string, fields map[string]interface{}) (int64, error)
}

type unitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUnitRepo(db *gorm.DB, baseLog *logger.Logger) UnitRepo {
	repoLog := baseLog.With("repo", "UnitRepo")
	return &unitRepo{db: db, log: repoLog}
}

func (ur *unitRepo) Create(dbc dbctx.Context, units []*types.WorkOrderUnit) ([]*types.WorkOrderUnit, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}

	if len(units) == 0 {
		return []*types.WorkOrderUnit{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

func (ur *unitRepo) GetByID(dbc dbctx.Context, unitID uuid.UUID) (*types.WorkOrderUnit, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}

	var result types.WorkOrderUnit

	if err := transaction.WithContext(dbc.Ctx).
		Preload("CurrentStep").
		Where("id = ?", unitID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ur *unitRepo) GetBySerial(dbc dbctx.Context, serialNumber string) (*types.WorkOrderUnit, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}

	var result types.WorkOrderUnit

	if err := transaction.WithContext(dbc.Ctx).
		Preload("CurrentStep").
		Where("serial_number = ?", serialNumber).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ur *unitRepo) UpdateFields(dbc dbctx.Context, unitID uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}

	return transaction.WithContext(dbc.Ctx).
		Model(&types.WorkOrderUnit{}).
		Where("id = ?", unitID).
		Updates(fields).Error
}

// UpdateStatusGuarded applies fields only while the unit is still in one of
// fromStatuses, and reports how many rows actually changed. Callers treat a
// zero count as a lost race.
func (ur *unitRepo) UpdateStatusGuarded(dbc dbctx.Context, unitID uuid.UUID, fromStatuses []string, fields map[string]interface{}) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}

	res := transaction.WithContext(dbc.Ctx).
		Model(&types.WorkOrderUnit{}).
		Where("id = ? AND status IN ?", unitID, fromStatuses).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
