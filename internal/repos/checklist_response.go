package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

type ChecklistResponseRepo interface {
	Create(dbc dbctx.Context, responses []*types.ChecklistResponse) ([]*types.ChecklistResponse, error)
	GetByOperation(dbc dbctx.Context, operationID uuid.UUID) ([]*types.ChecklistResponse, error)
}

type checklistResponseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChecklistResponseRepo(db *gorm.DB, baseLog *logger.Logger) ChecklistResponseRepo {
	repoLog := baseLog.With("repo", "ChecklistResponseRepo")
	return &checklistResponseRepo{db: db, log: repoLog}
}

func (cr *checklistResponseRepo) Create(dbc dbctx.Context, responses []*types.ChecklistResponse) ([]*types.ChecklistResponse, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(responses) == 0 {
		return []*types.ChecklistResponse{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (cr *checklistResponseRepo) GetByOperation(dbc dbctx.Context, operationID uuid.UUID) ([]*types.ChecklistResponse, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.ChecklistResponse

	if err := transaction.WithContext(dbc.Ctx).
		Where("operation_id = ?", operationID).
		Order("responded_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
