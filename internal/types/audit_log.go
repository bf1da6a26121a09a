package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit actions used by the route-sheet and escalation paths.
const (
	AuditActionCreate       = "CREATE"
	AuditActionUpdate       = "UPDATE"
	AuditActionStatusChange = "STATUS_CHANGE"
	AuditActionSystemEvent  = "SYSTEM_EVENT"
)

// AuditLog is a hash-chained, append-only audit row. DataHash covers the
// row's own fields; CurrentHash binds the row to its predecessor through
// PrevHash and ChainIndex. The genesis row uses a prev hash of 64 zeros.
type AuditLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChainIndex  int64          `gorm:"column:chain_index;not null;uniqueIndex" json:"chain_index"`
	PrevHash    string         `gorm:"column:prev_hash;not null" json:"prev_hash"`
	DataHash    string         `gorm:"column:data_hash;not null" json:"data_hash"`
	CurrentHash string         `gorm:"column:current_hash;not null" json:"current_hash"`
	UserID      *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User        *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Action      string         `gorm:"column:action;not null" json:"action"`
	Entity      string         `gorm:"column:entity;not null;index" json:"entity"`
	EntityID    *uuid.UUID     `gorm:"type:uuid;index" json:"entity_id,omitempty"`
	Description string         `gorm:"column:description" json:"description"`
	Severity    string         `gorm:"column:severity;not null;default:'INFO'" json:"severity"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_log" }
