package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Step types within a manufacturing route.
const (
	StepTypeAssembly   = "ASSEMBLY"
	StepTypeInspection = "INSPECTION"
	StepTypeTest       = "TEST"
	StepTypePackaging  = "PACKAGING"
	StepTypeLabeling   = "LABELING"
	StepTypeRework     = "REWORK"
	StepTypeHoldPoint  = "HOLD_POINT"
)

type ProcessRoute struct {
	ID          uuid.UUID           `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RouteCode   string              `gorm:"column:route_code;not null" json:"route_code"`
	Name        string              `gorm:"column:name;not null" json:"name"`
	Description string              `gorm:"column:description" json:"description"`
	Version     string              `gorm:"column:version;not null;default:'1.0'" json:"version"`
	IsActive    bool                `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Steps       []*ProcessRouteStep `gorm:"constraint:OnDelete:CASCADE;foreignKey:RouteID;references:ID" json:"steps,omitempty"`
	CreatedByID *uuid.UUID          `gorm:"type:uuid" json:"created_by_id,omitempty"`
	CreatedAt   time.Time           `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt      `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProcessRoute) TableName() string { return "process_route" }

// ProcessRouteStep is one station in a route. IsGoNoGo marks a gate step:
// later steps may not start until this one is COMPLETED with result PASS.
type ProcessRouteStep struct {
	ID                   uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RouteID              uuid.UUID        `gorm:"type:uuid;not null;index" json:"route_id"`
	Route                *ProcessRoute    `gorm:"constraint:OnDelete:CASCADE;foreignKey:RouteID;references:ID" json:"route,omitempty"`
	StepOrder            int              `gorm:"column:step_order;not null" json:"step_order"`
	StepCode             string           `gorm:"column:step_code;not null" json:"step_code"`
	Name                 string           `gorm:"column:name;not null" json:"name"`
	Description          string           `gorm:"column:description" json:"description"`
	StepType             string           `gorm:"column:step_type;not null" json:"step_type"`
	WorkInstructions     string           `gorm:"column:work_instructions" json:"work_instructions"`
	RequiredEquipmentIDs datatypes.JSON   `gorm:"column:required_equipment_ids;type:jsonb" json:"required_equipment_ids"`
	EstimatedDuration    *int             `gorm:"column:estimated_duration" json:"estimated_duration,omitempty"`
	IsInspectionGate     bool             `gorm:"column:is_inspection_gate;not null;default:false" json:"is_inspection_gate"`
	RequiresDualSignoff  bool             `gorm:"column:requires_dual_signoff;not null;default:false" json:"requires_dual_signoff"`
	IsGoNoGo             bool             `gorm:"column:is_go_no_go;not null;default:false" json:"is_go_no_go"`
	Notes                string           `gorm:"column:notes" json:"notes"`
	Checklist            []*StepChecklist `gorm:"constraint:OnDelete:CASCADE;foreignKey:StepID;references:ID" json:"checklist,omitempty"`
	CreatedAt            time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProcessRouteStep) TableName() string { return "process_route_step" }
