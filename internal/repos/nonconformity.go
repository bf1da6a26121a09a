package repos

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

// ncOpenStatuses are the NC states the SLA engine still watches.
var ncOpenStatuses = []string{
	types.NCStatusOpen,
	types.NCStatusInvestigating,
	types.NCStatusDisposition,
	types.NCStatusImplementing,
	types.NCStatusVerification,
	types.NCStatusReopened,
}

type NonconformityRepo interface {
	Create(dbc dbctx.Context, ncs []*types.Nonconformity) ([]*types.Nonconformity, error)
	GetByID(dbc dbctx.Context, ncID uuid.UUID) (*types.Nonconformity, error)
	CountByYear(dbc dbctx.Context, year int) (int64, error)
	GetOverdue(dbc dbctx.Context, asOf time.Time) ([]*types.Nonconformity, error)
	UpdateFields(dbc dbctx.Context, ncID uuid.UUID, fields map[string]interface{}) error
}

type nonconformityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNonconformityRepo(db *gorm.DB, baseLog *logger.Logger) NonconformityRepo {
	repoLog := baseLog.With("repo", "NonconformityRepo")
	return &nonconformityRepo{db: db, log: repoLog}
}

func (nr *nonconformityRepo) Create(dbc dbctx.Context, ncs []*types.Nonconformity) ([]*types.Nonconformity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = nr.db
	}

	if len(ncs) == 0 {
		return []*types.Nonconformity{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&ncs).Error; err != nil {
		return nil, err
	}
	return ncs, nil
}

func (nr *nonconformityRepo) GetByID(dbc dbctx.Context, ncID uuid.UUID) (*types.Nonconformity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = nr.db
	}

	var result types.Nonconformity

	if err := transaction.WithContext(dbc.Ctx).
		Preload("AssignedTo").
		Where("id = ?", ncID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// CountByYear counts NCs detected in the given calendar year, used to mint
// the next NC-<year>-<seq> number.
func (nr *nonconformityRepo) CountByYear(dbc dbctx.Context, year int) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = nr.db
	}

	var count int64

	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Nonconformity{}).
		Where("number LIKE ?", fmt.Sprintf("NC-%d-%%", year)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (nr *nonconformityRepo) GetOverdue(dbc dbctx.Context, asOf time.Time) ([]*types.Nonconformity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = nr.db
	}

	var results []*types.Nonconformity

	if err := transaction.WithContext(dbc.Ctx).
		Preload("AssignedTo").
		Where("status IN ? AND due_date IS NOT NULL AND due_date < ?", ncOpenStatuses, asOf).
		Order("due_date ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (nr *nonconformityRepo) UpdateFields(dbc dbctx.Context, ncID uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = nr.db
	}

	return transaction.WithContext(dbc.Ctx).
		Model(&types.Nonconformity{}).
		Where("id = ?", ncID).
		Updates(fields).Error
}
