package types

import (
	"time"

	"github.com/google/uuid"
)

// Tolerance classifications for numeric checklist answers.
const (
	ToleranceGreen  = "GREEN"
	ToleranceYellow = "YELLOW"
	ToleranceRed    = "RED"
)

// ChecklistResponse is one operator answer to one checklist item.
// Question and ResponseType are denormalized at write time so the response
// stays readable even if the checklist definition later changes.
// Rows are append-only; corrections create additional rows.
type ChecklistResponse struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OperationID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"operation_id"`
	Operation       *OperationRecord `gorm:"constraint:OnDelete:CASCADE;foreignKey:OperationID;references:ID" json:"operation,omitempty"`
	ChecklistItemID uuid.UUID        `gorm:"type:uuid;not null" json:"checklist_item_id"`
	Question        string           `gorm:"column:question;not null" json:"question"`
	ResponseType    string           `gorm:"column:response_type;not null" json:"response_type"`
	ResponseValue   *string          `gorm:"column:response_value" json:"response_value,omitempty"`
	NumericValue    *float64         `gorm:"column:numeric_value" json:"numeric_value,omitempty"`
	BooleanValue    *bool            `gorm:"column:boolean_value" json:"boolean_value,omitempty"`
	WithinTolerance *string          `gorm:"column:within_tolerance" json:"within_tolerance,omitempty"`
	PhotoURL        *string          `gorm:"column:photo_url" json:"photo_url,omitempty"`
	RespondedByID   uuid.UUID        `gorm:"type:uuid;not null" json:"responded_by_id"`
	RespondedBy     *User            `gorm:"constraint:OnDelete:RESTRICT;foreignKey:RespondedByID;references:ID" json:"responded_by,omitempty"`
	RespondedAt     time.Time        `gorm:"column:responded_at;not null;default:now()" json:"responded_at"`
	Notes           string           `gorm:"column:notes" json:"notes"`
	CreatedAt       time.Time        `gorm:"not null;default:now()" json:"created_at"`
}

func (ChecklistResponse) TableName() string { return "checklist_response" }
