package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asvo/qmscore-backend/internal/pkg/logger"
	"github.com/asvo/qmscore-backend/internal/types"
)

type fakeBus struct {
	published []*types.Notification
}

func (f *fakeBus) Publish(ctx context.Context, notification *types.Notification) error {
	f.published = append(f.published, notification)
	return nil
}

func (f *fakeBus) StartForwarder(ctx context.Context, onMsg func(n *types.Notification)) error {
	return nil
}

func (f *fakeBus) Close() error { return nil }

type escHarness struct {
	svc           *escalationService
	ncs           *fakeNonconformityRepo
	capas         *fakeCapaRepo
	users         *fakeUserRepo
	notifications *fakeNotificationRepo
	audit         *fakeAuditService
	bus           *fakeBus
}

func newEscHarness(t *testing.T) *escHarness {
	t.Helper()
	h := &escHarness{
		ncs:           &fakeNonconformityRepo{},
		capas:         &fakeCapaRepo{},
		users:         newFakeUserRepo(),
		notifications: newFakeNotificationRepo(func() time.Time { return testClock }),
		audit:         &fakeAuditService{},
		bus:           &fakeBus{},
	}
	svc := NewEscalationService(nil, logger.NewNop(), fakeTxRunner{}, h.ncs, h.capas,
		h.users, h.notifications, h.audit, h.bus, DefaultEscalationPolicy()).(*escalationService)
	svc.now = func() time.Time { return testClock }
	h.svc = svc
	return h
}

func (h *escHarness) addOverdueNC(overdueDays int, reporter uuid.UUID, assignee *uuid.UUID) *types.Nonconformity {
	due := testClock.AddDate(0, 0, -overdueDays)
	nc := &types.Nonconformity{
		ID:           uuid.New(),
		Number:       "NC-2026-0042",
		Title:        "Cracked housing",
		Status:       types.NCStatusOpen,
		ReportedByID: reporter,
		AssignedToID: assignee,
		DetectedAt:   due.AddDate(0, 0, -7),
		DueDate:      &due,
	}
	h.ncs.ncs = append(h.ncs.ncs, nc)
	return nc
}

func TestCheckAndEscalate_Level0NotifiesAssigneeOnly(t *testing.T) {
	h := newEscHarness(t)
	reporter := uuid.New()
	assignee := uuid.New()
	h.addOverdueNC(1, reporter, &assignee)

	summary, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.OverdueNCs, 1)
	assert.Equal(t, 1, summary.OverdueNCs[0].OverdueDays)
	assert.Equal(t, 0, summary.OverdueNCs[0].Level)
	assert.Equal(t, 1, summary.NotificationsCreated)

	require.Len(t, h.notifications.notifications, 1)
	n := h.notifications.notifications[0]
	assert.Equal(t, assignee, n.UserID)
	assert.Equal(t, types.NotifyTypeNCOverdue, n.Type)
	assert.Equal(t, types.NotifySeverityWarning, n.Severity)
	assert.Len(t, h.bus.published, 1)
}

func TestCheckAndEscalate_Level1AddsReporter(t *testing.T) {
	h := newEscHarness(t)
	reporter := uuid.New()
	assignee := uuid.New()
	h.addOverdueNC(4, reporter, &assignee)

	summary, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OverdueNCs[0].Level)
	assert.Equal(t, 2, summary.NotificationsCreated)

	byUser := map[uuid.UUID]*types.Notification{}
	for _, n := range h.notifications.notifications {
		byUser[n.UserID] = n
	}
	require.Contains(t, byUser, assignee)
	require.Contains(t, byUser, reporter)
	assert.Equal(t, types.NotifyTypeNCEscalated, byUser[assignee].Type)
	assert.True(t, strings.HasPrefix(byUser[reporter].Title, "[Escalation]"))
}

func TestCheckAndEscalate_Level1ReporterIsAssignee(t *testing.T) {
	h := newEscHarness(t)
	person := uuid.New()
	h.addOverdueNC(4, person, &person)

	summary, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotificationsCreated)
	require.Len(t, h.notifications.notifications, 1)
	assert.Equal(t, person, h.notifications.notifications[0].UserID)
}

func TestCheckAndEscalate_Level2FansOutToManagement(t *testing.T) {
	h := newEscHarness(t)
	reporter := uuid.New()
	assignee := uuid.New()
	h.addOverdueNC(10, reporter, &assignee)

	director1 := &types.User{ID: uuid.New(), Email: "qa.director@example.com"}
	director2 := &types.User{ID: uuid.New(), Email: "ops.director@example.com"}
	h.users.usersByRole["QMS_DIRECTOR"] = []*types.User{director1, director2}

	summary, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.OverdueNCs[0].Level)
	assert.Equal(t, 4, summary.NotificationsCreated)

	var critical []*types.Notification
	for _, n := range h.notifications.notifications {
		if strings.HasPrefix(n.Title, "[CRITICAL]") {
			critical = append(critical, n)
		}
	}
	require.Len(t, critical, 2)
	for _, n := range critical {
		assert.Equal(t, types.NotifySeverityCritical, n.Severity)
		assert.Equal(t, types.NotifyTypeNCEscalated, n.Type)
	}
	for _, n := range h.notifications.notifications {
		assert.Equal(t, types.NotifySeverityCritical, n.Severity)
	}
}

func TestCheckAndEscalate_CooldownSuppressesRepeat(t *testing.T) {
	h := newEscHarness(t)
	assignee := uuid.New()
	h.addOverdueNC(1, uuid.New(), &assignee)

	first, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.NotificationsCreated)

	second, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.NotificationsCreated)
	assert.Len(t, h.notifications.notifications, 1)
	assert.Len(t, h.bus.published, 1)
}

func TestCheckAndEscalate_Level1SkipsZeroReporter(t *testing.T) {
	h := newEscHarness(t)
	assignee := uuid.New()
	h.addOverdueNC(4, uuid.Nil, &assignee)

	summary, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotificationsCreated)
	require.Len(t, h.notifications.notifications, 1)
	assert.Equal(t, assignee, h.notifications.notifications[0].UserID)
}

func TestCheckAndEscalate_IneffectiveCapaStillEscalates(t *testing.T) {
	h := newEscHarness(t)
	assignee := uuid.New()
	due := testClock.AddDate(0, 0, -4)
	h.capas.capas = append(h.capas.capas, &types.Capa{
		ID:            uuid.New(),
		Number:        "CAPA-2026-0011",
		Title:         "Torque program drift",
		Status:        types.CapaStatusIneffective,
		InitiatedByID: uuid.New(),
		AssignedToID:  &assignee,
		DueDate:       &due,
	})

	summary, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.OverdueCapas, 1)
	assert.Equal(t, "CAPA-2026-0011", summary.OverdueCapas[0].Number)
	assert.NotZero(t, summary.NotificationsCreated)
}

func TestCheckAndEscalate_SkipsResolvedCapasAndActions(t *testing.T) {
	h := newEscHarness(t)
	assignee := uuid.New()
	due := testClock.AddDate(0, 0, -4)
	h.capas.capas = append(h.capas.capas,
		&types.Capa{
			ID:            uuid.New(),
			Number:        "CAPA-2026-0012",
			Status:        types.CapaStatusEffective,
			InitiatedByID: uuid.New(),
			AssignedToID:  &assignee,
			DueDate:       &due,
		},
		&types.Capa{
			ID:            uuid.New(),
			Number:        "CAPA-2026-0013",
			Status:        types.CapaStatusClosed,
			InitiatedByID: uuid.New(),
			AssignedToID:  &assignee,
			DueDate:       &due,
		})
	h.capas.actions = append(h.capas.actions, &types.CapaAction{
		ID:           uuid.New(),
		CapaID:       uuid.New(),
		Description:  "retrain operators",
		AssignedToID: &assignee,
		Status:       types.CapaActionStatusCancelled,
		DueDate:      &due,
	})

	summary, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.OverdueCapas)
	assert.Empty(t, summary.OverdueActions)
	assert.Equal(t, 0, summary.NotificationsCreated)
	assert.Empty(t, h.notifications.notifications)
}

func TestCheckAndEscalate_CapaActionTruncatesDescription(t *testing.T) {
	h := newEscHarness(t)
	assignee := uuid.New()
	due := testClock.AddDate(0, 0, -2)
	capa := &types.Capa{ID: uuid.New(), Number: "CAPA-2026-0007"}
	action := &types.CapaAction{
		ID:           uuid.New(),
		CapaID:       capa.ID,
		Capa:         capa,
		Description:  strings.Repeat("verify torque calibration records across all assembly cells ", 4),
		AssignedToID: &assignee,
		Status:       types.CapaActionStatusPlanned,
		DueDate:      &due,
	}
	h.capas.actions = append(h.capas.actions, action)

	summary, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.OverdueActions, 1)
	assert.Equal(t, "CAPA-2026-0007", summary.OverdueActions[0].Number)
	assert.Equal(t, 1, summary.NotificationsCreated)

	n := h.notifications.notifications[0]
	assert.Equal(t, assignee, n.UserID)
	assert.Equal(t, types.NotifyTypeCapaActionOverdue, n.Type)
	assert.NotContains(t, n.Message, action.Description)
	assert.Contains(t, n.Message, action.Description[:100])
}

func TestCheckAndEscalate_CapaActionWithoutAssignee(t *testing.T) {
	h := newEscHarness(t)
	due := testClock.AddDate(0, 0, -2)
	h.capas.actions = append(h.capas.actions, &types.CapaAction{
		ID:          uuid.New(),
		CapaID:      uuid.New(),
		Description: "replace worn fixture",
		Status:      types.CapaActionStatusPlanned,
		DueDate:     &due,
	})

	summary, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.NotificationsCreated)
	assert.Empty(t, h.notifications.notifications)
}

func TestCheckAndEscalate_AuditOnlyWhenNotificationsCreated(t *testing.T) {
	h := newEscHarness(t)

	// Empty sweep writes no audit entry.
	_, err := h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.audit.actions())

	assignee := uuid.New()
	h.addOverdueNC(1, uuid.New(), &assignee)
	_, err = h.svc.CheckAndEscalate(context.Background())
	require.NoError(t, err)
	actions := h.audit.actions()
	require.Len(t, actions, 1)
	assert.Equal(t, types.AuditActionSystemEvent, actions[0])
}

func TestGetOverdueItems_AnnotatesLevels(t *testing.T) {
	h := newEscHarness(t)
	assignee := uuid.New()
	h.addOverdueNC(8, uuid.New(), &assignee)

	capaDue := testClock.AddDate(0, 0, -4)
	h.capas.capas = append(h.capas.capas, &types.Capa{
		ID:            uuid.New(),
		Number:        "CAPA-2026-0003",
		Title:         "Incoming inspection gap",
		Status:        types.CapaStatusImplementing,
		InitiatedByID: uuid.New(),
		DueDate:       &capaDue,
	})

	snapshot, err := h.svc.GetOverdueItems(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshot.OverdueNCs, 1)
	assert.Equal(t, 8, snapshot.OverdueNCs[0].OverdueDays)
	assert.Equal(t, 2, snapshot.OverdueNCs[0].EscalationLevel)

	require.Len(t, snapshot.OverdueCapas, 1)
	assert.Equal(t, 4, snapshot.OverdueCapas[0].OverdueDays)
	assert.Equal(t, 1, snapshot.OverdueCapas[0].EscalationLevel)

	assert.Empty(t, snapshot.OverdueActions)

	// Read-only view, nothing created.
	assert.Empty(t, h.notifications.notifications)
	assert.Empty(t, h.audit.actions())
}

func TestGetOverdueItems_EmptySlicesNotNil(t *testing.T) {
	h := newEscHarness(t)

	snapshot, err := h.svc.GetOverdueItems(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snapshot.OverdueNCs)
	assert.NotNil(t, snapshot.OverdueCapas)
	assert.NotNil(t, snapshot.OverdueActions)
}
