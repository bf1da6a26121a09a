package types

import (
	"time"

	"github.com/google/uuid"
)

// Checklist response types.
const (
	ResponseTypePassFail  = "PASS_FAIL"
	ResponseTypeYesNo     = "YES_NO"
	ResponseTypeNumeric   = "NUMERIC"
	ResponseTypeText      = "TEXT"
	ResponseTypeSelection = "SELECTION"
	ResponseTypePhoto     = "PHOTO"
)

// StepChecklist is one question defined on a route step. Numeric items may
// carry hard tolerance bounds (Lower/UpperLimit) and optional soft bounds
// inside them; IsAutoHold escalates a RED answer into a unit hold.
type StepChecklist struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StepID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"step_id"`
	Step           *ProcessRouteStep `gorm:"constraint:OnDelete:CASCADE;foreignKey:StepID;references:ID" json:"step,omitempty"`
	ItemOrder      int               `gorm:"column:item_order;not null" json:"item_order"`
	Question       string            `gorm:"column:question;not null" json:"question"`
	ResponseType   string            `gorm:"column:response_type;not null" json:"response_type"`
	NominalValue   *float64          `gorm:"column:nominal_value" json:"nominal_value,omitempty"`
	LowerLimit     *float64          `gorm:"column:lower_limit" json:"lower_limit,omitempty"`
	UpperLimit     *float64          `gorm:"column:upper_limit" json:"upper_limit,omitempty"`
	SoftLowerLimit *float64          `gorm:"column:soft_lower_limit" json:"soft_lower_limit,omitempty"`
	SoftUpperLimit *float64          `gorm:"column:soft_upper_limit" json:"soft_upper_limit,omitempty"`
	Unit           string            `gorm:"column:unit" json:"unit"`
	IsMandatory    bool              `gorm:"column:is_mandatory;not null;default:true" json:"is_mandatory"`
	IsAutoHold     bool              `gorm:"column:is_auto_hold;not null;default:false" json:"is_auto_hold"`
	Notes          string            `gorm:"column:notes" json:"notes"`
	CreatedAt      time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (StepChecklist) TableName() string { return "step_checklist" }
