package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

type NotificationRepo interface {
	Create(dbc dbctx.Context, notifications []*types.Notification) ([]*types.Notification, error)
	CountRecentSame(dbc dbctx.Context, userID uuid.UUID, notifType, entityType string, entityID uuid.UUID, since time.Time) (int64, error)
	GetByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Notification, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	repoLog := baseLog.With("repo", "NotificationRepo")
	return &notificationRepo{db: db, log: repoLog}
}

func (nr *notificationRepo) Create(dbc dbctx.Context, notifications []*types.Notification) ([]*types.Notification, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = nr.db
	}

	if len(notifications) == 0 {
		return []*types.Notification{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountRecentSame counts notifications with the same (user, type, entity)
// identity created at or after since. The escalation engine uses it as its
// cooldown dedupe check.
func (nr *notificationRepo) CountRecentSame(dbc dbctx.Context, userID uuid.UUID, notifType, entityType string, entityID uuid.UUID, since time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = nr.db
	}

	var count int64

	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("user_id = ? AND type = ? AND entity_type = ? AND entity_id = ? AND created_at >= ?",
			userID, notifType, entityType, entityID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (nr *notificationRepo) GetByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Notification, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = nr.db
	}

	var results []*types.Notification

	query := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
