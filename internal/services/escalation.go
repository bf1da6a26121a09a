package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	redisclient "github.com/asvo/qmscore-backend/internal/clients/redis"
	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/pkg/qmserr"
	"github.com/asvo/qmscore-backend/internal/repos"
	"github.com/asvo/qmscore-backend/internal/types"
)

// OverdueRef annotates one overdue item processed in an escalation sweep.
type OverdueRef struct {
	ID          uuid.UUID `json:"id"`
	Number      string    `json:"number"`
	OverdueDays int       `json:"overdue_days"`
	Level       int       `json:"level"`
	Notified    int       `json:"notified"`
}

// EscalationSummary reports one CheckAndEscalate sweep.
type EscalationSummary struct {
	OverdueNCs           []OverdueRef `json:"overdue_ncs"`
	OverdueCapas         []OverdueRef `json:"overdue_capas"`
	OverdueActions       []OverdueRef `json:"overdue_actions"`
	NotificationsCreated int          `json:"notifications_created"`
}

// Overdue* wrap the raw records with escalation annotations for read-only
// display.
type OverdueNC struct {
	*types.Nonconformity
	OverdueDays     int `json:"overdue_days"`
	EscalationLevel int `json:"escalation_level"`
}

type OverdueCapa struct {
	*types.Capa
	OverdueDays     int `json:"overdue_days"`
	EscalationLevel int `json:"escalation_level"`
}

type OverdueCapaAction struct {
	*types.CapaAction
	OverdueDays     int `json:"overdue_days"`
	EscalationLevel int `json:"escalation_level"`
}

type OverdueSnapshot struct {
	OverdueNCs     []OverdueNC         `json:"overdue_ncs"`
	OverdueCapas   []OverdueCapa       `json:"overdue_capas"`
	OverdueActions []OverdueCapaAction `json:"overdue_actions"`
}

type EscalationService interface {
	CheckAndEscalate(ctx context.Context) (*EscalationSummary, error)
	GetOverdueItems(ctx context.Context) (*OverdueSnapshot, error)
}

type escalationService struct {
	db               *gorm.DB
	log              *logger.Logger
	runner           repos.TxRunner
	ncRepo           repos.NonconformityRepo
	capaRepo         repos.CapaRepo
	userRepo         repos.UserRepo
	notificationRepo repos.NotificationRepo
	auditService     AuditService
	bus              redisclient.NotificationBus
	policy           EscalationPolicy
	now              func() time.Time
}

func NewEscalationService(
	db *gorm.DB,
	log *logger.Logger,
	runner repos.TxRunner,
	ncRepo repos.NonconformityRepo,
	capaRepo repos.CapaRepo,
	userRepo repos.UserRepo,
	notificationRepo repos.NotificationRepo,
	auditService AuditService,
	bus redisclient.NotificationBus,
	policy EscalationPolicy,
) EscalationService {
	serviceLog := log.With("service", "EscalationService")
	if runner == nil {
		runner = repos.NewGormTxRunner(db)
	}
	return &escalationService{
		db:               db,
		log:              serviceLog,
		runner:           runner,
		ncRepo:           ncRepo,
		capaRepo:         capaRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		auditService:     auditService,
		bus:              bus,
		policy:           policy,
		now:              time.Now,
	}
}

// CheckAndEscalate sweeps all overdue NCs, CAPAs and CAPA actions, fans out
// level-appropriate notifications, and writes one summary audit event when
// anything was created.
func (es *escalationService) CheckAndEscalate(ctx context.Context) (*EscalationSummary, error) {
	now := es.now()
	dbc := dbctx.Context{Ctx: ctx}
	summary := &EscalationSummary{
		OverdueNCs:     []OverdueRef{},
		OverdueCapas:   []OverdueRef{},
		OverdueActions: []OverdueRef{},
	}

	overdueNCs, err := es.ncRepo.GetOverdue(dbc, now)
	if err != nil {
		return nil, qmserr.MapError("escalation.check", err)
	}
	for _, nc := range overdueNCs {
		days := daysDiff(*nc.DueDate, now)
		level := es.policy.Level(days)
		created := es.escalateNC(ctx, nc, days, level)
		summary.OverdueNCs = append(summary.OverdueNCs, OverdueRef{
			ID: nc.ID, Number: nc.Number, OverdueDays: days, Level: level, Notified: created,
		})
		summary.NotificationsCreated += created
	}

	overdueCapas, err := es.capaRepo.GetOverdue(dbc, now)
	if err != nil {
		return nil, qmserr.MapError("escalation.check", err)
	}
	for _, capa := range overdueCapas {
		days := daysDiff(*capa.DueDate, now)
		level := es.policy.Level(days)
		created := es.escalateCapa(ctx, capa, days, level)
		summary.OverdueCapas = append(summary.OverdueCapas, OverdueRef{
			ID: capa.ID, Number: capa.Number, OverdueDays: days, Level: level, Notified: created,
		})
		summary.NotificationsCreated += created
	}

	overdueActions, err := es.capaRepo.GetOverdueActions(dbc, now)
	if err != nil {
		return nil, qmserr.MapError("escalation.check", err)
	}
	for _, action := range overdueActions {
		days := daysDiff(*action.DueDate, now)
		level := es.policy.Level(days)
		created := es.escalateCapaAction(ctx, action, days, level)
		ref := OverdueRef{ID: action.ID, OverdueDays: days, Level: level, Notified: created}
		if action.Capa != nil {
			ref.Number = action.Capa.Number
		}
		summary.OverdueActions = append(summary.OverdueActions, ref)
		summary.NotificationsCreated += created
	}

	if summary.NotificationsCreated > 0 {
		if _, auditErr := es.auditService.Log(ctx, AuditEvent{
			Action: types.AuditActionSystemEvent,
			Entity: "Notification",
			Description: fmt.Sprintf("SLA escalation: created %d notifications (NC: %d, CAPA: %d, actions: %d)",
				summary.NotificationsCreated, len(summary.OverdueNCs), len(summary.OverdueCapas), len(summary.OverdueActions)),
			Metadata: map[string]interface{}{
				"overdue_ncs":           len(summary.OverdueNCs),
				"overdue_capas":         len(summary.OverdueCapas),
				"overdue_actions":       len(summary.OverdueActions),
				"notifications_created": summary.NotificationsCreated,
			},
		}); auditErr != nil {
			es.log.Warn("Escalation summary audit failed", "error", auditErr)
		}
	}

	return summary, nil
}

// GetOverdueItems snapshots everything currently overdue, annotated with
// overdue days and escalation level. The three queries run concurrently.
func (es *escalationService) GetOverdueItems(ctx context.Context) (*OverdueSnapshot, error) {
	now := es.now()
	snapshot := &OverdueSnapshot{
		OverdueNCs:     []OverdueNC{},
		OverdueCapas:   []OverdueCapa{},
		OverdueActions: []OverdueCapaAction{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ncs, err := es.ncRepo.GetOverdue(dbctx.Context{Ctx: gctx}, now)
		if err != nil {
			return err
		}
		for _, nc := range ncs {
			days := daysDiff(*nc.DueDate, now)
			snapshot.OverdueNCs = append(snapshot.OverdueNCs, OverdueNC{
				Nonconformity: nc, OverdueDays: days, EscalationLevel: es.policy.Level(days),
			})
		}
		return nil
	})
	g.Go(func() error {
		capas, err := es.capaRepo.GetOverdue(dbctx.Context{Ctx: gctx}, now)
		if err != nil {
			return err
		}
		for _, capa := range capas {
			days := daysDiff(*capa.DueDate, now)
			snapshot.OverdueCapas = append(snapshot.OverdueCapas, OverdueCapa{
				Capa: capa, OverdueDays: days, EscalationLevel: es.policy.Level(days),
			})
		}
		return nil
	})
	g.Go(func() error {
		actions, err := es.capaRepo.GetOverdueActions(dbctx.Context{Ctx: gctx}, now)
		if err != nil {
			return err
		}
		for _, action := range actions {
			days := daysDiff(*action.DueDate, now)
			snapshot.OverdueActions = append(snapshot.OverdueActions, OverdueCapaAction{
				CapaAction: action, OverdueDays: days, EscalationLevel: es.policy.Level(days),
			})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, qmserr.MapError("escalation.overdue", err)
	}
	return snapshot, nil
}

// ─── Per-category fan-out ───

func (es *escalationService) escalateNC(ctx context.Context, nc *types.Nonconformity, overdueDays, level int) int {
	created := 0
	severity := types.NotifySeverityWarning
	if level >= 2 {
		severity = types.NotifySeverityCritical
	}
	notifType := types.NotifyTypeNCOverdue
	if level >= 1 {
		notifType = types.NotifyTypeNCEscalated
	}

	if nc.AssignedToID != nil {
		if es.createNotificationIfNew(ctx, &types.Notification{
			UserID:     *nc.AssignedToID,
			Type:       notifType,
			Title:      fmt.Sprintf("NC %s is overdue (%d days)", nc.Number, overdueDays),
			Message:    fmt.Sprintf("Nonconformity %q is %d days overdue. Due: %s. Escalation level: %d.", nc.Title, overdueDays, nc.DueDate.Format("2006-01-02"), level),
			Severity:   severity,
			EntityType: "nc",
			EntityID:   &nc.ID,
			Link:       fmt.Sprintf("/qms/nc/%s", nc.ID),
		}) {
			created++
		}
	}

	// Auto-created NCs can carry a zero reporter when no operator had
	// started the operation.
	if level >= 1 && nc.ReportedByID != uuid.Nil &&
		(nc.AssignedToID == nil || nc.ReportedByID != *nc.AssignedToID) {
		if es.createNotificationIfNew(ctx, &types.Notification{
			UserID:     nc.ReportedByID,
			Type:       notifType,
			Title:      fmt.Sprintf("[Escalation] NC %s is overdue (%d days)", nc.Number, overdueDays),
			Message:    fmt.Sprintf("Nonconformity %q is %d days overdue and needs attention.", nc.Title, overdueDays),
			Severity:   severity,
			EntityType: "nc",
			EntityID:   &nc.ID,
			Link:       fmt.Sprintf("/qms/nc/%s", nc.ID),
		}) {
			created++
		}
	}

	if level >= 2 {
		created += es.notifyRole(ctx, es.policy.ManagementRoleCode, &types.Notification{
			Type:       types.NotifyTypeNCEscalated,
			Title:      fmt.Sprintf("[CRITICAL] NC %s is %d days overdue", nc.Number, overdueDays),
			Message:    fmt.Sprintf("Nonconformity %q is critically overdue (%d days). Management intervention required.", nc.Title, overdueDays),
			Severity:   types.NotifySeverityCritical,
			EntityType: "nc",
			EntityID:   &nc.ID,
			Link:       fmt.Sprintf("/qms/nc/%s", nc.ID),
		})
	}

	return created
}

func (es *escalationService) escalateCapa(ctx context.Context, capa *types.Capa, overdueDays, level int) int {
	created := 0
	severity := types.NotifySeverityWarning
	if level >= 2 {
		severity = types.NotifySeverityCritical
	}
	notifType := types.NotifyTypeCapaOverdue
	if level >= 1 {
		notifType = types.NotifyTypeCapaEscalated
	}

	if capa.AssignedToID != nil {
		if es.createNotificationIfNew(ctx, &types.Notification{
			UserID:     *capa.AssignedToID,
			Type:       notifType,
			Title:      fmt.Sprintf("CAPA %s is overdue (%d days)", capa.Number, overdueDays),
			Message:    fmt.Sprintf("CAPA %q is %d days overdue. Due: %s. Escalation level: %d.", capa.Title, overdueDays, capa.DueDate.Format("2006-01-02"), level),
			Severity:   severity,
			EntityType: "capa",
			EntityID:   &capa.ID,
			Link:       fmt.Sprintf("/qms/capa/%s", capa.ID),
		}) {
			created++
		}
	}

	if level >= 1 && (capa.AssignedToID == nil || capa.InitiatedByID != *capa.AssignedToID) {
		if es.createNotificationIfNew(ctx, &types.Notification{
			UserID:     capa.InitiatedByID,
			Type:       notifType,
			Title:      fmt.Sprintf("[Escalation] CAPA %s is overdue (%d days)", capa.Number, overdueDays),
			Message:    fmt.Sprintf("CAPA %q is %d days overdue and needs attention.", capa.Title, overdueDays),
			Severity:   severity,
			EntityType: "capa",
			EntityID:   &capa.ID,
			Link:       fmt.Sprintf("/qms/capa/%s", capa.ID),
		}) {
			created++
		}
	}

	if level >= 2 {
		created += es.notifyRole(ctx, es.policy.ManagementRoleCode, &types.Notification{
			Type:       types.NotifyTypeCapaEscalated,
			Title:      fmt.Sprintf("[CRITICAL] CAPA %s is %d days overdue", capa.Number, overdueDays),
			Message:    fmt.Sprintf("CAPA %q is critically overdue (%d days). Management intervention required.", capa.Title, overdueDays),
			Severity:   types.NotifySeverityCritical,
			EntityType: "capa",
			EntityID:   &capa.ID,
			Link:       fmt.Sprintf("/qms/capa/%s", capa.ID),
		})
	}

	return created
}

// CAPA sub-tasks only notify their own assignee, at any level.
func (es *escalationService) escalateCapaAction(ctx context.Context, action *types.CapaAction, overdueDays, level int) int {
	if action.AssignedToID == nil {
		return 0
	}
	severity := types.NotifySeverityWarning
	if level >= 2 {
		severity = types.NotifySeverityCritical
	}
	capaNumber := ""
	if action.Capa != nil {
		capaNumber = action.Capa.Number
	}
	description := action.Description
	if len(description) > 100 {
		description = description[:100]
	}

	if es.createNotificationIfNew(ctx, &types.Notification{
		UserID:     *action.AssignedToID,
		Type:       types.NotifyTypeCapaActionOverdue,
		Title:      fmt.Sprintf("CAPA action %s is overdue (%d days)", capaNumber, overdueDays),
		Message:    fmt.Sprintf("Action %q is %d days overdue.", description, overdueDays),
		Severity:   severity,
		EntityType: "capa_action",
		EntityID:   &action.ID,
		Link:       fmt.Sprintf("/qms/capa/%s", action.CapaID),
	}) {
		return 1
	}
	return 0
}

// notifyRole fans a notification out to every user holding roleCode.
// Lookup or delivery failures are logged and reported as zero creations.
func (es *escalationService) notifyRole(ctx context.Context, roleCode string, template *types.Notification) int {
	users, err := es.userRepo.GetByRoleCode(dbctx.Context{Ctx: ctx}, roleCode)
	if err != nil {
		es.log.Error("Role fan-out lookup failed", "role", roleCode, "error", err)
		return 0
	}

	created := 0
	for _, user := range users {
		n := *template
		n.UserID = user.ID
		if es.createNotificationIfNew(ctx, &n) {
			created++
		}
	}
	return created
}

// createNotificationIfNew inserts the notification unless an identical one
// (user, type, entity) was created within the cooldown window. The check and
// insert share one transaction so concurrent sweeps cannot double-notify.
func (es *escalationService) createNotificationIfNew(ctx context.Context, notification *types.Notification) bool {
	cooldownStart := es.now().Add(-es.policy.Cooldown)

	createdNew := false
	err := es.runner.InTx(ctx, func(dbc dbctx.Context) error {
		entityID := uuid.Nil
		if notification.EntityID != nil {
			entityID = *notification.EntityID
		}
		existing, err := es.notificationRepo.CountRecentSame(dbc,
			notification.UserID, notification.Type, notification.EntityType, entityID, cooldownStart)
		if err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		if _, err := es.notificationRepo.Create(dbc, []*types.Notification{notification}); err != nil {
			return err
		}
		createdNew = true
		return nil
	})
	if err != nil {
		es.log.Error("Notification create failed", "type", notification.Type, "user", notification.UserID, "error", err)
		return false
	}

	if createdNew && es.bus != nil {
		if pubErr := es.bus.Publish(ctx, notification); pubErr != nil {
			es.log.Warn("Notification bus publish failed", "type", notification.Type, "error", pubErr)
		}
	}
	return createdNew
}

// daysDiff returns whole days elapsed from due to now, rounded down.
func daysDiff(due, now time.Time) int {
	return int(now.Sub(due).Hours() / 24)
}
