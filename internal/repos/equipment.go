package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

type EquipmentRepo interface {
	GetByID(dbc dbctx.Context, equipmentID uuid.UUID) (*types.Equipment, error)
	GetByIDs(dbc dbctx.Context, equipmentIDs []uuid.UUID) ([]*types.Equipment, error)
}

type equipmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEquipmentRepo(db *gorm.DB, baseLog *logger.Logger) EquipmentRepo {
	repoLog := baseLog.With("repo", "EquipmentRepo")
	return &equipmentRepo{db: db, log: repoLog}
}

func (er *equipmentRepo) GetByID(dbc dbctx.Context, equipmentID uuid.UUID) (*types.Equipment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = er.db
	}

	var result types.Equipment

	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", equipmentID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (er *equipmentRepo) GetByIDs(dbc dbctx.Context, equipmentIDs []uuid.UUID) ([]*types.Equipment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = er.db
	}

	var results []*types.Equipment

	if len(equipmentIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", equipmentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
