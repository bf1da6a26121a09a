package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

type DHRRepo interface {
	Create(dbc dbctx.Context, records []*types.DHRRecord) ([]*types.DHRRecord, error)
	GetByUnit(dbc dbctx.Context, unitID uuid.UUID) ([]*types.DHRRecord, error)
}

type dhrRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDHRRepo(db *gorm.DB, baseLog *logger.Logger) DHRRepo {
	repoLog := baseLog.With("repo", "DHRRepo")
	return &dhrRepo{db: db, log: repoLog}
}

func (dr *dhrRepo) Create(dbc dbctx.Context, records []*types.DHRRecord) ([]*types.DHRRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = dr.db
	}

	if len(records) == 0 {
		return []*types.DHRRecord{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (dr *dhrRepo) GetByUnit(dbc dbctx.Context, unitID uuid.UUID) ([]*types.DHRRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = dr.db
	}

	var results []*types.DHRRecord

	if err := transaction.WithContext(dbc.Ctx).
		Preload("Operator").
		Where("unit_id = ?", unitID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
