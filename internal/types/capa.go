package types

import (
	"time"

	"github.com/google/uuid"
)

// CAPA types and statuses.
const (
	CapaTypeCorrective = "CORRECTIVE"
	CapaTypePreventive = "PREVENTIVE"

	CapaStatusInitiated     = "INITIATED"
	CapaStatusInvestigating = "INVESTIGATING"
	CapaStatusPlanning      = "PLANNING"
	CapaStatusImplementing  = "IMPLEMENTING"
	CapaStatusVerifying     = "VERIFYING"
	CapaStatusEffective     = "EFFECTIVE"
	CapaStatusIneffective   = "INEFFECTIVE"
	CapaStatusClosed        = "CLOSED"

	CapaActionStatusPlanned    = "PLANNED"
	CapaActionStatusInProgress = "IN_PROGRESS"
	CapaActionStatusCompleted  = "COMPLETED"
	CapaActionStatusCancelled  = "CANCELLED"
)

// Capa is a corrective/preventive action: a time-bound work item tracked
// by the SLA escalation engine through its DueDate and Status.
type Capa struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Number          string         `gorm:"column:number;not null;uniqueIndex" json:"number"`
	Type            string         `gorm:"column:type;not null" json:"type"`
	Title           string         `gorm:"column:title;not null" json:"title"`
	Description     string         `gorm:"column:description" json:"description"`
	Status          string         `gorm:"column:status;not null;default:'INITIATED';index" json:"status"`
	NonconformityID *uuid.UUID     `gorm:"type:uuid" json:"nonconformity_id,omitempty"`
	Nonconformity   *Nonconformity `gorm:"constraint:OnDelete:SET NULL;foreignKey:NonconformityID;references:ID" json:"nonconformity,omitempty"`
	InitiatedByID   uuid.UUID      `gorm:"type:uuid;not null" json:"initiated_by_id"`
	InitiatedBy     *User          `gorm:"constraint:OnDelete:RESTRICT;foreignKey:InitiatedByID;references:ID" json:"initiated_by,omitempty"`
	AssignedToID    *uuid.UUID     `gorm:"type:uuid" json:"assigned_to_id,omitempty"`
	AssignedTo      *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:AssignedToID;references:ID" json:"assigned_to,omitempty"`
	DueDate         *time.Time     `gorm:"column:due_date" json:"due_date,omitempty"`
	ClosedAt        *time.Time     `gorm:"column:closed_at" json:"closed_at,omitempty"`
	Actions         []*CapaAction  `gorm:"constraint:OnDelete:CASCADE;foreignKey:CapaID;references:ID" json:"actions,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Capa) TableName() string { return "capa" }

// CapaAction is one sub-task of a CAPA plan.
type CapaAction struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CapaID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"capa_id"`
	Capa         *Capa      `gorm:"constraint:OnDelete:CASCADE;foreignKey:CapaID;references:ID" json:"capa,omitempty"`
	ActionOrder  int        `gorm:"column:action_order;not null;default:1" json:"action_order"`
	Description  string     `gorm:"column:description;not null" json:"description"`
	AssignedToID *uuid.UUID `gorm:"type:uuid" json:"assigned_to_id,omitempty"`
	AssignedTo   *User      `gorm:"constraint:OnDelete:SET NULL;foreignKey:AssignedToID;references:ID" json:"assigned_to,omitempty"`
	Status       string     `gorm:"column:status;not null;default:'PLANNED';index" json:"status"`
	DueDate      *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	CompletedAt  *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Result       string     `gorm:"column:result" json:"result"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (CapaAction) TableName() string { return "capa_action" }
