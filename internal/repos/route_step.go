package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

type RouteStepRepo interface {
	GetByID(dbc dbctx.Context, stepID uuid.UUID) (*types.ProcessRouteStep, error)
	GetByRoute(dbc dbctx.Context, routeID uuid.UUID) ([]*types.ProcessRouteStep, error)
	GetNextStep(dbc dbctx.Context, routeID uuid.UUID, afterOrder int) (*types.ProcessRouteStep, error)
	GetGoNoGoStepsBefore(dbc dbctx.Context, routeID uuid.UUID, beforeOrder int) ([]*types.ProcessRouteStep, error)
}

type routeStepRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRouteStepRepo(db *gorm.DB, baseLog *logger.Logger) RouteStepRepo {
	repoLog := baseLog.With("repo", "RouteStepRepo")
	return &routeStepRepo{db: db, log: repoLog}
}

func (rs *routeStepRepo) GetByID(dbc dbctx.Context, stepID uuid.UUID) (*types.ProcessRouteStep, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rs.db
	}

	var result types.ProcessRouteStep

	if err := transaction.WithContext(dbc.Ctx).
		Preload("Checklist", func(db *gorm.DB) *gorm.DB {
			return db.Order("item_order ASC")
		}).
		Where("id = ?", stepID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (rs *routeStepRepo) GetByRoute(dbc dbctx.Context, routeID uuid.UUID) ([]*types.ProcessRouteStep, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rs.db
	}

	var results []*types.ProcessRouteStep

	if err := transaction.WithContext(dbc.Ctx).
		Where("route_id = ?", routeID).
		Order("step_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetNextStep returns the lowest-ordered step after afterOrder, or nil when
// the route is exhausted.
func (rs *routeStepRepo) GetNextStep(dbc dbctx.Context, routeID uuid.UUID, afterOrder int) (*types.ProcessRouteStep, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rs.db
	}

	var result types.ProcessRouteStep

	err := transaction.WithContext(dbc.Ctx).
		Where("route_id = ? AND step_order > ?", routeID, afterOrder).
		Order("step_order ASC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (rs *routeStepRepo) GetGoNoGoStepsBefore(dbc dbctx.Context, routeID uuid.UUID, beforeOrder int) ([]*types.ProcessRouteStep, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rs.db
	}

	var results []*types.ProcessRouteStep

	if err := transaction.WithContext(dbc.Ctx).
		Where("route_id = ? AND step_order < ? AND is_go_no_go = ?", routeID, beforeOrder, true).
		Order("step_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
