package repos

import (
	"errors"

	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

type AuditLogRepo interface {
	Append(dbc dbctx.Context, entry *types.AuditLog) (*types.AuditLog, error)
	GetLast(dbc dbctx.Context) (*types.AuditLog, error)
	GetRange(dbc dbctx.Context, fromIndex, toIndex int64) ([]*types.AuditLog, error)
	Count(dbc dbctx.Context) (int64, error)
}

type auditLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	repoLog := baseLog.With("repo", "AuditLogRepo")
	return &auditLogRepo{db: db, log: repoLog}
}

func (ar *auditLogRepo) Append(dbc dbctx.Context, entry *types.AuditLog) (*types.AuditLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ar.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// GetLast returns the highest-indexed chain row, or nil for an empty chain.
func (ar *auditLogRepo) GetLast(dbc dbctx.Context) (*types.AuditLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ar.db
	}

	var result types.AuditLog

	err := transaction.WithContext(dbc.Ctx).
		Order("chain_index DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *auditLogRepo) GetRange(dbc dbctx.Context, fromIndex, toIndex int64) ([]*types.AuditLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.AuditLog

	query := transaction.WithContext(dbc.Ctx).
		Where("chain_index >= ?", fromIndex).
		Order("chain_index ASC")
	if toIndex >= fromIndex {
		query = query.Where("chain_index <= ?", toIndex)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *auditLogRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ar.db
	}

	var count int64

	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.AuditLog{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
