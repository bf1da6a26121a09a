package types

import (
	"time"

	"github.com/google/uuid"
)

// Unit lifecycle statuses.
const (
	UnitStatusCreated    = "CREATED"
	UnitStatusInProgress = "IN_PROGRESS"
	UnitStatusQCPending  = "QC_PENDING"
	UnitStatusQCPassed   = "QC_PASSED"
	UnitStatusQCFailed   = "QC_FAILED"
	UnitStatusOnHold     = "ON_HOLD"
	UnitStatusRework     = "REWORK"
	UnitStatusScrapped   = "SCRAPPED"
	UnitStatusReleased   = "RELEASED"
)

// WorkOrderUnit is one serialized item moving through a production route.
// It is ON_HOLD exactly when its active operation failed, was explicitly
// held, or an auto-hold fired; HoldReason records why.
type WorkOrderUnit struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	WorkOrderID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"work_order_id"`
	SerialNumber  string            `gorm:"column:serial_number;not null;uniqueIndex" json:"serial_number"`
	Status        string            `gorm:"column:status;not null;default:'CREATED';index" json:"status"`
	CurrentStepID *uuid.UUID        `gorm:"type:uuid" json:"current_step_id,omitempty"`
	CurrentStep   *ProcessRouteStep `gorm:"constraint:OnDelete:SET NULL;foreignKey:CurrentStepID;references:ID" json:"current_step,omitempty"`
	SectionID     *uuid.UUID        `gorm:"type:uuid;index" json:"section_id,omitempty"`
	HoldReason    string            `gorm:"column:hold_reason" json:"hold_reason"`
	NcID          *uuid.UUID        `gorm:"type:uuid" json:"nc_id,omitempty"`
	StartedAt     *time.Time        `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt   *time.Time        `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Notes         string            `gorm:"column:notes" json:"notes"`
	CreatedAt     time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (WorkOrderUnit) TableName() string { return "work_order_unit" }
