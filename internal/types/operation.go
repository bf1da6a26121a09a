package types

import (
	"time"

	"github.com/google/uuid"
)

// Operation statuses. Transitions are monotonic except ON_HOLD, which an
// explicit release may return to IN_PROGRESS.
const (
	OperationStatusPending    = "PENDING"
	OperationStatusInProgress = "IN_PROGRESS"
	OperationStatusCompleted  = "COMPLETED"
	OperationStatusFailed     = "FAILED"
	OperationStatusSkipped    = "SKIPPED"
	OperationStatusOnHold     = "ON_HOLD"
)

// Operation results.
const (
	ResultPass        = "PASS"
	ResultFail        = "FAIL"
	ResultConditional = "CONDITIONAL"
	ResultNA          = "N_A"
)

// OperationRecord is the execution instance of one route step on one unit.
type OperationRecord struct {
	ID                     uuid.UUID            `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UnitID                 uuid.UUID            `gorm:"type:uuid;not null;index" json:"unit_id"`
	Unit                   *WorkOrderUnit       `gorm:"constraint:OnDelete:CASCADE;foreignKey:UnitID;references:ID" json:"unit,omitempty"`
	RouteStepID            uuid.UUID            `gorm:"type:uuid;not null" json:"route_step_id"`
	RouteStep              *ProcessRouteStep    `gorm:"constraint:OnDelete:RESTRICT;foreignKey:RouteStepID;references:ID" json:"route_step,omitempty"`
	WorkOrderID            uuid.UUID            `gorm:"type:uuid;not null;index" json:"work_order_id"`
	StepOrder              int                  `gorm:"column:step_order;not null" json:"step_order"`
	StepName               string               `gorm:"column:step_name;not null" json:"step_name"`
	Status                 string               `gorm:"column:status;not null;default:'PENDING';index" json:"status"`
	Result                 *string              `gorm:"column:result" json:"result,omitempty"`
	OperatorID             *uuid.UUID           `gorm:"type:uuid" json:"operator_id,omitempty"`
	Operator               *User                `gorm:"constraint:OnDelete:SET NULL;foreignKey:OperatorID;references:ID" json:"operator,omitempty"`
	InspectorID            *uuid.UUID           `gorm:"type:uuid" json:"inspector_id,omitempty"`
	Inspector              *User                `gorm:"constraint:OnDelete:SET NULL;foreignKey:InspectorID;references:ID" json:"inspector,omitempty"`
	StartedAt              *time.Time           `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt            *time.Time           `gorm:"column:completed_at" json:"completed_at,omitempty"`
	DurationSeconds        *int                 `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	EquipmentID            *uuid.UUID           `gorm:"type:uuid" json:"equipment_id,omitempty"`
	EquipmentCalibrationOk *bool                `gorm:"column:equipment_calibration_ok" json:"equipment_calibration_ok,omitempty"`
	OperatorSignatureID    *uuid.UUID           `gorm:"type:uuid" json:"operator_signature_id,omitempty"`
	InspectorSignatureID   *uuid.UUID           `gorm:"type:uuid" json:"inspector_signature_id,omitempty"`
	NcID                   *uuid.UUID           `gorm:"type:uuid" json:"nc_id,omitempty"`
	Notes                  string               `gorm:"column:notes" json:"notes"`
	Responses              []*ChecklistResponse `gorm:"constraint:OnDelete:CASCADE;foreignKey:OperationID;references:ID" json:"responses,omitempty"`
	CreatedAt              time.Time            `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt              time.Time            `gorm:"not null;default:now()" json:"updated_at"`
}

func (OperationRecord) TableName() string { return "operation_record" }
