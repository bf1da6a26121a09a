package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asvo/qmscore-backend/internal/pkg/dbctx"
	"github.com/asvo/qmscore-backend/internal/types"
)

// In-memory doubles for the repo interfaces. Guarded updates mirror the
// row-count contract of the real implementations so the state machine's
// race handling can be exercised without a database.

type fakeTxRunner struct{}

func (fakeTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

// ─── Operations ───

type fakeOperationRepo struct {
	mu        sync.Mutex
	ops       map[uuid.UUID]*types.OperationRecord
	responses *fakeChecklistResponseRepo
}

func newFakeOperationRepo() *fakeOperationRepo {
	return &fakeOperationRepo{ops: map[uuid.UUID]*types.OperationRecord{}}
}

func (f *fakeOperationRepo) add(op *types.OperationRecord) *types.OperationRecord {
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	f.ops[op.ID] = op
	return op
}

func (f *fakeOperationRepo) Create(dbc dbctx.Context, records []*types.OperationRecord) ([]*types.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range records {
		f.add(r)
	}
	return records, nil
}

func (f *fakeOperationRepo) GetByID(dbc dbctx.Context, recordID uuid.UUID) (*types.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op, ok := f.ops[recordID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if f.responses != nil {
		op.Responses = f.responses.byOperation(op.ID)
	}
	return op, nil
}

func (f *fakeOperationRepo) GetByUnit(dbc dbctx.Context, unitID uuid.UUID) ([]*types.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.OperationRecord
	for _, op := range f.ops {
		if op.UnitID == unitID {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out, nil
}

func (f *fakeOperationRepo) GetPriorByUnit(dbc dbctx.Context, unitID uuid.UUID, beforeOrder int) ([]*types.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.OperationRecord
	for _, op := range f.ops {
		if op.UnitID == unitID && op.StepOrder < beforeOrder {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out, nil
}

func (f *fakeOperationRepo) GetByUnitAndStep(dbc dbctx.Context, unitID, stepID uuid.UUID, statuses []string) (*types.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range f.ops {
		if op.UnitID != unitID || op.RouteStepID != stepID {
			continue
		}
		for _, s := range statuses {
			if op.Status == s {
				return op, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOperationRepo) GetActiveByOperator(dbc dbctx.Context, operatorID uuid.UUID) ([]*types.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.OperationRecord
	for _, op := range f.ops {
		if op.OperatorID != nil && *op.OperatorID == operatorID && op.Status == types.OperationStatusInProgress {
			out = append(out, op)
		}
	}
	return out, nil
}

func (f *fakeOperationRepo) GetActiveByEquipment(dbc dbctx.Context, equipmentID uuid.UUID) ([]*types.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.OperationRecord
	for _, op := range f.ops {
		if op.EquipmentID != nil && *op.EquipmentID == equipmentID && op.Status == types.OperationStatusInProgress {
			out = append(out, op)
		}
	}
	return out, nil
}

func (f *fakeOperationRepo) UpdateFields(dbc dbctx.Context, recordID uuid.UUID, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	op, ok := f.ops[recordID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyOperationFields(op, fields)
	return nil
}

func (f *fakeOperationRepo) UpdateStatusGuarded(dbc dbctx.Context, recordID uuid.UUID, fromStatus string, fields map[string]interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op, ok := f.ops[recordID]
	if !ok || op.Status != fromStatus {
		return 0, nil
	}
	applyOperationFields(op, fields)
	return 1, nil
}

func applyOperationFields(op *types.OperationRecord, fields map[string]interface{}) {
	for key, value := range fields {
		switch key {
		case "status":
			op.Status = value.(string)
		case "result":
			v := value.(string)
			op.Result = &v
		case "operator_id":
			v := value.(uuid.UUID)
			op.OperatorID = &v
		case "inspector_id":
			v := value.(uuid.UUID)
			op.InspectorID = &v
		case "started_at":
			v := value.(time.Time)
			op.StartedAt = &v
		case "completed_at":
			v := value.(time.Time)
			op.CompletedAt = &v
		case "duration_seconds":
			v := value.(int)
			op.DurationSeconds = &v
		case "equipment_id":
			v := value.(uuid.UUID)
			op.EquipmentID = &v
		case "equipment_calibration_ok":
			v := value.(bool)
			op.EquipmentCalibrationOk = &v
		case "operator_signature_id":
			v := value.(uuid.UUID)
			op.OperatorSignatureID = &v
		case "inspector_signature_id":
			v := value.(uuid.UUID)
			op.InspectorSignatureID = &v
		case "nc_id":
			v := value.(uuid.UUID)
			op.NcID = &v
		case "notes":
			op.Notes = value.(string)
		}
	}
}

// ─── Units ───

type fakeUnitRepo struct {
	mu    sync.Mutex
	units map[uuid.UUID]*types.WorkOrderUnit
}

func newFakeUnitRepo() *fakeUnitRepo {
	return &fakeUnitRepo{units: map[uuid.UUID]*types.WorkOrderUnit{}}
}

func (f *fakeUnitRepo) add(u *types.WorkOrderUnit) *types.WorkOrderUnit {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.units[u.ID] = u
	return u
}

func (f *fakeUnitRepo) Create(dbc dbctx.Context, units []*types.WorkOrderUnit) ([]*types.WorkOrderUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range units {
		f.add(u)
	}
	return units, nil
}

func (f *fakeUnitRepo) GetByID(dbc dbctx.Context, unitID uuid.UUID) (*types.WorkOrderUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.units[unitID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUnitRepo) GetBySerial(dbc dbctx.Context, serialNumber string) (*types.WorkOrderUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.units {
		if u.SerialNumber == serialNumber {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUnitRepo) UpdateFields(dbc dbctx.Context, unitID uuid.UUID, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.units[unitID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyUnitFields(u, fields)
	return nil
}

func (f *fakeUnitRepo) UpdateStatusGuarded(dbc dbctx.Context, unitID uuid.UUID, fromStatuses []string, fields map[string]interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.units[unitID]
	if !ok {
		return 0, nil
	}
	matched := false
	for _, s := range fromStatuses {
		if u.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return 0, nil
	}
	applyUnitFields(u, fields)
	return 1, nil
}

func applyUnitFields(u *types.WorkOrderUnit, fields map[string]interface{}) {
	for key, value := range fields {
		switch key {
		case "status":
			u.Status = value.(string)
		case "hold_reason":
			u.HoldReason = value.(string)
		case "current_step_id":
			if value == nil {
				u.CurrentStepID = nil
				break
			}
			v := value.(uuid.UUID)
			u.CurrentStepID = &v
		case "nc_id":
			v := value.(uuid.UUID)
			u.NcID = &v
		case "notes":
			u.Notes = value.(string)
		}
	}
}

// ─── Route steps ───

type fakeRouteStepRepo struct {
	steps []*types.ProcessRouteStep
}

func (f *fakeRouteStepRepo) add(step *types.ProcessRouteStep) *types.ProcessRouteStep {
	if step.ID == uuid.Nil {
		step.ID = uuid.New()
	}
	f.steps = append(f.steps, step)
	return step
}

func (f *fakeRouteStepRepo) GetByID(dbc dbctx.Context, stepID uuid.UUID) (*types.ProcessRouteStep, error) {
	for _, s := range f.steps {
		if s.ID == stepID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRouteStepRepo) GetByRoute(dbc dbctx.Context, routeID uuid.UUID) ([]*types.ProcessRouteStep, error) {
	var out []*types.ProcessRouteStep
	for _, s := range f.steps {
		if s.RouteID == routeID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out, nil
}

func (f *fakeRouteStepRepo) GetNextStep(dbc dbctx.Context, routeID uuid.UUID, afterOrder int) (*types.ProcessRouteStep, error) {
	var next *types.ProcessRouteStep
	for _, s := range f.steps {
		if s.RouteID != routeID || s.StepOrder <= afterOrder {
			continue
		}
		if next == nil || s.StepOrder < next.StepOrder {
			next = s
		}
	}
	return next, nil
}

func (f *fakeRouteStepRepo) GetGoNoGoStepsBefore(dbc dbctx.Context, routeID uuid.UUID, beforeOrder int) ([]*types.ProcessRouteStep, error) {
	var out []*types.ProcessRouteStep
	for _, s := range f.steps {
		if s.RouteID == routeID && s.StepOrder < beforeOrder && s.IsGoNoGo {
			out = append(out, s)
		}
	}
	return out, nil
}

// ─── Checklist definitions and responses ───

type fakeStepChecklistRepo struct {
	items map[uuid.UUID]*types.StepChecklist
}

func newFakeStepChecklistRepo() *fakeStepChecklistRepo {
	return &fakeStepChecklistRepo{items: map[uuid.UUID]*types.StepChecklist{}}
}

func (f *fakeStepChecklistRepo) add(item *types.StepChecklist) *types.StepChecklist {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items[item.ID] = item
	return item
}

func (f *fakeStepChecklistRepo) GetByID(dbc dbctx.Context, itemID uuid.UUID) (*types.StepChecklist, error) {
	item, ok := f.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (f *fakeStepChecklistRepo) GetByStep(dbc dbctx.Context, stepID uuid.UUID) ([]*types.StepChecklist, error) {
	var out []*types.StepChecklist
	for _, item := range f.items {
		if item.StepID == stepID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemOrder < out[j].ItemOrder })
	return out, nil
}

type fakeChecklistResponseRepo struct {
	mu      sync.Mutex
	records []*types.ChecklistResponse
}

func (f *fakeChecklistResponseRepo) Create(dbc dbctx.Context, responses []*types.ChecklistResponse) ([]*types.ChecklistResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range responses {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		f.records = append(f.records, r)
	}
	return responses, nil
}

func (f *fakeChecklistResponseRepo) GetByOperation(dbc dbctx.Context, operationID uuid.UUID) ([]*types.ChecklistResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byOperation(operationID), nil
}

func (f *fakeChecklistResponseRepo) byOperation(operationID uuid.UUID) []*types.ChecklistResponse {
	var out []*types.ChecklistResponse
	for _, r := range f.records {
		if r.OperationID == operationID {
			out = append(out, r)
		}
	}
	return out
}

// ─── Equipment ───

type fakeEquipmentRepo struct {
	items map[uuid.UUID]*types.Equipment
}

func newFakeEquipmentRepo() *fakeEquipmentRepo {
	return &fakeEquipmentRepo{items: map[uuid.UUID]*types.Equipment{}}
}

func (f *fakeEquipmentRepo) add(eq *types.Equipment) *types.Equipment {
	if eq.ID == uuid.Nil {
		eq.ID = uuid.New()
	}
	f.items[eq.ID] = eq
	return eq
}

func (f *fakeEquipmentRepo) GetByID(dbc dbctx.Context, equipmentID uuid.UUID) (*types.Equipment, error) {
	eq, ok := f.items[equipmentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return eq, nil
}

func (f *fakeEquipmentRepo) GetByIDs(dbc dbctx.Context, equipmentIDs []uuid.UUID) ([]*types.Equipment, error) {
	var out []*types.Equipment
	for _, id := range equipmentIDs {
		if eq, ok := f.items[id]; ok {
			out = append(out, eq)
		}
	}
	return out, nil
}

// ─── Nonconformities ───

type fakeNonconformityRepo struct {
	mu  sync.Mutex
	ncs []*types.Nonconformity
}

func (f *fakeNonconformityRepo) Create(dbc dbctx.Context, ncs []*types.Nonconformity) ([]*types.Nonconformity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, nc := range ncs {
		if nc.ID == uuid.Nil {
			nc.ID = uuid.New()
		}
		f.ncs = append(f.ncs, nc)
	}
	return ncs, nil
}

func (f *fakeNonconformityRepo) GetByID(dbc dbctx.Context, ncID uuid.UUID) (*types.Nonconformity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, nc := range f.ncs {
		if nc.ID == ncID {
			return nc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeNonconformityRepo) CountByYear(dbc dbctx.Context, year int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, nc := range f.ncs {
		if nc.DetectedAt.Year() == year {
			count++
		}
	}
	return count, nil
}

func (f *fakeNonconformityRepo) GetOverdue(dbc dbctx.Context, asOf time.Time) ([]*types.Nonconformity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Nonconformity
	for _, nc := range f.ncs {
		if nc.Status == types.NCStatusClosed || nc.DueDate == nil {
			continue
		}
		if nc.DueDate.Before(asOf) {
			out = append(out, nc)
		}
	}
	return out, nil
}

func (f *fakeNonconformityRepo) UpdateFields(dbc dbctx.Context, ncID uuid.UUID, fields map[string]interface{}) error {
	return nil
}

// ─── CAPAs ───

type fakeCapaRepo struct {
	capas   []*types.Capa
	actions []*types.CapaAction
}

func (f *fakeCapaRepo) GetByID(dbc dbctx.Context, capaID uuid.UUID) (*types.Capa, error) {
	for _, c := range f.capas {
		if c.ID == capaID {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCapaRepo) GetOverdue(dbc dbctx.Context, asOf time.Time) ([]*types.Capa, error) {
	var out []*types.Capa
	for _, c := range f.capas {
		closed := c.Status == types.CapaStatusClosed || c.Status == types.CapaStatusEffective
		if c.DueDate != nil && c.DueDate.Before(asOf) && !closed {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCapaRepo) GetOverdueActions(dbc dbctx.Context, asOf time.Time) ([]*types.CapaAction, error) {
	var out []*types.CapaAction
	for _, a := range f.actions {
		closed := a.Status == types.CapaActionStatusCompleted || a.Status == types.CapaActionStatusCancelled
		if a.DueDate != nil && a.DueDate.Before(asOf) && !closed {
			out = append(out, a)
		}
	}
	return out, nil
}

// ─── Users ───

type fakeUserRepo struct {
	users       map[uuid.UUID]*types.User
	usersByRole map[string][]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:       map[uuid.UUID]*types.User{},
		usersByRole: map[string][]*types.User{},
	}
}

func (f *fakeUserRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		f.users[u.ID] = u
	}
	return users, nil
}

func (f *fakeUserRepo) GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByRoleCode(dbc dbctx.Context, roleCode string) ([]*types.User, error) {
	return f.usersByRole[roleCode], nil
}

// ─── Notifications ───

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []*types.Notification
	clock         func() time.Time
}

func newFakeNotificationRepo(clock func() time.Time) *fakeNotificationRepo {
	if clock == nil {
		clock = time.Now
	}
	return &fakeNotificationRepo{clock: clock}
}

func (f *fakeNotificationRepo) Create(dbc dbctx.Context, notifications []*types.Notification) ([]*types.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range notifications {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = f.clock()
		}
		f.notifications = append(f.notifications, n)
	}
	return notifications, nil
}

func (f *fakeNotificationRepo) CountRecentSame(dbc dbctx.Context, userID uuid.UUID, notifType, entityType string, entityID uuid.UUID, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.notifications {
		nEntityID := uuid.Nil
		if n.EntityID != nil {
			nEntityID = *n.EntityID
		}
		if n.UserID == userID && n.Type == notifType && n.EntityType == entityType &&
			nEntityID == entityID && !n.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) GetByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─── Audit log ───

type fakeAuditLogRepo struct {
	mu      sync.Mutex
	entries []*types.AuditLog
}

func (f *fakeAuditLogRepo) Append(dbc dbctx.Context, entry *types.AuditLog) (*types.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeAuditLogRepo) GetLast(dbc dbctx.Context) (*types.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil, nil
	}
	last := f.entries[0]
	for _, e := range f.entries[1:] {
		if e.ChainIndex > last.ChainIndex {
			last = e
		}
	}
	return last, nil
}

func (f *fakeAuditLogRepo) GetRange(dbc dbctx.Context, fromIndex, toIndex int64) ([]*types.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.AuditLog
	for _, e := range f.entries {
		if e.ChainIndex < fromIndex {
			continue
		}
		if toIndex >= fromIndex && e.ChainIndex > toIndex {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainIndex < out[j].ChainIndex })
	return out, nil
}

func (f *fakeAuditLogRepo) Count(dbc dbctx.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries)), nil
}

// ─── Service doubles ───

type fakeAuditService struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (f *fakeAuditService) Log(ctx context.Context, event AuditEvent) (*types.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return &types.AuditLog{ChainIndex: int64(len(f.events))}, nil
}

func (f *fakeAuditService) Verify(ctx context.Context) (*ChainReport, error) {
	return &ChainReport{Valid: true}, nil
}

func (f *fakeAuditService) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Action)
	}
	return out
}

type fakeDHRService struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeDHRService) RecordOperation(ctx context.Context, operation *types.OperationRecord, action string) (*types.DHRRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return &types.DHRRecord{}, nil
}

func (f *fakeDHRService) ListByUnit(ctx context.Context, unitID uuid.UUID) ([]*types.DHRRecord, error) {
	return nil, nil
}
