package types

import (
	"time"

	"github.com/google/uuid"
)

// Nonconformity sources. MES_AUTO and MES_OPERATION_FAIL are reserved for
// records created by the operation state machine.
const (
	NCSourceIncomingInspection = "INCOMING_INSPECTION"
	NCSourceInProcess          = "IN_PROCESS"
	NCSourceFinalInspection    = "FINAL_INSPECTION"
	NCSourceMESAuto            = "MES_AUTO"
	NCSourceMESOperationFail   = "MES_OPERATION_FAIL"
	NCSourceOther              = "OTHER"
)

// Nonconformity classifications.
const (
	NCClassCritical = "CRITICAL"
	NCClassMajor    = "MAJOR"
	NCClassMinor    = "MINOR"
)

// Nonconformity statuses.
const (
	NCStatusOpen          = "OPEN"
	NCStatusInvestigating = "INVESTIGATING"
	NCStatusDisposition   = "DISPOSITION"
	NCStatusImplementing  = "IMPLEMENTING"
	NCStatusVerification  = "VERIFICATION"
	NCStatusClosed        = "CLOSED"
	NCStatusReopened      = "REOPENED"
)

// Nonconformity is the regulatory record of a detected quality problem.
// When the state machine creates one, OperationRecordID is always set.
type Nonconformity struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Number            string           `gorm:"column:number;not null;uniqueIndex" json:"number"`
	Title             string           `gorm:"column:title;not null" json:"title"`
	Description       string           `gorm:"column:description;not null" json:"description"`
	Source            string           `gorm:"column:source;not null" json:"source"`
	Classification    string           `gorm:"column:classification;not null;default:'MINOR'" json:"classification"`
	Status            string           `gorm:"column:status;not null;default:'OPEN';index" json:"status"`
	ReportedByID      uuid.UUID        `gorm:"type:uuid;not null" json:"reported_by_id"`
	ReportedBy        *User            `gorm:"constraint:OnDelete:RESTRICT;foreignKey:ReportedByID;references:ID" json:"reported_by,omitempty"`
	AssignedToID      *uuid.UUID       `gorm:"type:uuid" json:"assigned_to_id,omitempty"`
	AssignedTo        *User            `gorm:"constraint:OnDelete:SET NULL;foreignKey:AssignedToID;references:ID" json:"assigned_to,omitempty"`
	WorkOrderID       *uuid.UUID       `gorm:"type:uuid" json:"work_order_id,omitempty"`
	UnitID            *uuid.UUID       `gorm:"type:uuid" json:"unit_id,omitempty"`
	OperationRecordID *uuid.UUID       `gorm:"type:uuid" json:"operation_record_id,omitempty"`
	OperationRecord   *OperationRecord `gorm:"constraint:OnDelete:SET NULL;foreignKey:OperationRecordID;references:ID" json:"operation_record,omitempty"`
	DetectedAt        time.Time        `gorm:"column:detected_at;not null;default:now()" json:"detected_at"`
	DueDate           *time.Time       `gorm:"column:due_date" json:"due_date,omitempty"`
	ClosedAt          *time.Time       `gorm:"column:closed_at" json:"closed_at,omitempty"`
	CreatedAt         time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"not null;default:now()" json:"updated_at"`
}

func (Nonconformity) TableName() string { return "nonconformity" }
