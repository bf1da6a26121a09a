package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Equipment calibration statuses. Only VALID equipment may be used to
// start an operation whose route step requires it.
const (
	CalibrationValid        = "VALID"
	CalibrationExpired      = "EXPIRED"
	CalibrationDue          = "DUE"
	CalibrationOutOfService = "OUT_OF_SERVICE"
)

type Equipment struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name              string         `gorm:"column:name;not null" json:"name"`
	SerialNumber      string         `gorm:"column:serial_number" json:"serial_number"`
	CalibrationStatus string         `gorm:"column:calibration_status;not null;default:'VALID'" json:"calibration_status"`
	CalibrationDueAt  *time.Time     `gorm:"column:calibration_due_at" json:"calibration_due_at,omitempty"`
	SectionID         *uuid.UUID     `gorm:"type:uuid" json:"section_id,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Equipment) TableName() string { return "equipment" }
