package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DHR record types.
const (
	DHRRecordProductionStep = "PRODUCTION_STEP"
	DHRRecordInspection     = "INSPECTION"
	DHRRecordRelease        = "RELEASE"
	DHRRecordHold           = "HOLD"
)

// DHRRecord is one line of a unit's device history record. Rows are
// append-only; corrections are made with new rows, never updates.
type DHRRecord struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UnitID            uuid.UUID        `gorm:"type:uuid;not null;index" json:"unit_id"`
	Unit              *WorkOrderUnit   `gorm:"constraint:OnDelete:CASCADE;foreignKey:UnitID;references:ID" json:"unit,omitempty"`
	WorkOrderID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"work_order_id"`
	RecordType        string           `gorm:"column:record_type;not null" json:"record_type"`
	OperationRecordID *uuid.UUID       `gorm:"type:uuid" json:"operation_record_id,omitempty"`
	OperationRecord   *OperationRecord `gorm:"constraint:OnDelete:SET NULL;foreignKey:OperationRecordID;references:ID" json:"operation_record,omitempty"`
	StepName          string           `gorm:"column:step_name" json:"step_name"`
	StepOrder         *int             `gorm:"column:step_order" json:"step_order,omitempty"`
	Result            *string          `gorm:"column:result" json:"result,omitempty"`
	OperatorID        *uuid.UUID       `gorm:"type:uuid" json:"operator_id,omitempty"`
	Operator          *User            `gorm:"constraint:OnDelete:SET NULL;foreignKey:OperatorID;references:ID" json:"operator,omitempty"`
	StartedAt         *time.Time       `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt       *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Action            string           `gorm:"column:action" json:"action"`
	Notes             string           `gorm:"column:notes" json:"notes"`
	Details           datatypes.JSON   `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt         time.Time        `gorm:"not null;default:now()" json:"created_at"`
}

func (DHRRecord) TableName() string { return "dhr_record" }
