package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

type StepChecklistRepo interface {
	GetByID(dbc dbctx.Context, itemID uuid.UUID) (*types.StepChecklist, error)
	GetByStep(dbc dbctx.Context, stepID uuid.UUID) ([]*types.StepChecklist, error)
}

type stepChecklistRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStepChecklistRepo(db *gorm.DB, baseLog *logger.Logger) StepChecklistRepo {
	repoLog := baseLog.With("repo", "StepChecklistRepo")
	return &stepChecklistRepo{db: db, log: repoLog}
}

func (sc *stepChecklistRepo) GetByID(dbc dbctx.Context, itemID uuid.UUID) (*types.StepChecklist, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sc.db
	}

	var result types.StepChecklist

	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", itemID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (sc *stepChecklistRepo) GetByStep(dbc dbctx.Context, stepID uuid.UUID) ([]*types.StepChecklist, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sc.db
	}

	var results []*types.StepChecklist

	if err := transaction.WithContext(dbc.Ctx).
		Where("step_id = ?", stepID).
		Order("item_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
