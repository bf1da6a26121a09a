package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

// Terminal states exempt from due-date tracking. Everything else, including
// INEFFECTIVE, stays in the overdue sweep.
var capaClosedStatuses = []string{
	types.CapaStatusClosed,
	types.CapaStatusEffective,
}

var capaActionClosedStatuses = []string{
	types.CapaActionStatusCompleted,
	types.CapaActionStatusCancelled,
}

type CapaRepo interface {
	GetByID(dbc dbctx.Context, capaID uuid.UUID) (*types.Capa, error)
	GetOverdue(dbc dbctx.Context, asOf time.Time) ([]*types.Capa, error)
	GetOverdueActions(dbc dbctx.Context, asOf time.Time) ([]*types.CapaAction, error)
}

type capaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCapaRepo(db *gorm.DB, baseLog *logger.Logger) CapaRepo {
	repoLog := baseLog.With("repo", "CapaRepo")
	return &capaRepo{db: db, log: repoLog}
}

func (cr *capaRepo) GetByID(dbc dbctx.Context, capaID uuid.UUID) (*types.Capa, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Capa

	if err := transaction.WithContext(dbc.Ctx).
		Preload("AssignedTo").
		Preload("Actions").
		Where("id = ?", capaID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *capaRepo) GetOverdue(dbc dbctx.Context, asOf time.Time) ([]*types.Capa, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Capa

	if err := transaction.WithContext(dbc.Ctx).
		Preload("AssignedTo").
		Where("status NOT IN ? AND due_date IS NOT NULL AND due_date < ?", capaClosedStatuses, asOf).
		Order("due_date ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *capaRepo) GetOverdueActions(dbc dbctx.Context, asOf time.Time) ([]*types.CapaAction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.CapaAction

	if err := transaction.WithContext(dbc.Ctx).
		Preload("AssignedTo").
		Preload("Capa").
		Where("status NOT IN ? AND due_date IS NOT NULL AND due_date < ?", capaActionClosedStatuses, asOf).
		Order("due_date ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
