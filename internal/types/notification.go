package types

import (
	"time"

	"github.com/google/uuid"
)

// Notification severities and SLA notification types.
const (
	NotifySeverityInfo     = "INFO"
	NotifySeverityWarning  = "WARNING"
	NotifySeverityCritical = "CRITICAL"

	NotifyTypeNCOverdue         = "NC_OVERDUE"
	NotifyTypeNCEscalated       = "NC_ESCALATED"
	NotifyTypeCapaOverdue       = "CAPA_OVERDUE"
	NotifyTypeCapaEscalated     = "CAPA_ESCALATED"
	NotifyTypeCapaActionOverdue = "CAPA_ACTION_OVERDUE"
)

type Notification struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Type       string     `gorm:"column:type;not null;index" json:"type"`
	Title      string     `gorm:"column:title;not null" json:"title"`
	Message    string     `gorm:"column:message" json:"message"`
	Severity   string     `gorm:"column:severity;not null;default:'INFO'" json:"severity"`
	EntityType string     `gorm:"column:entity_type;index" json:"entity_type"`
	EntityID   *uuid.UUID `gorm:"type:uuid;index" json:"entity_id,omitempty"`
	Link       string     `gorm:"column:link" json:"link"`
	ReadAt     *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;default:now();index" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
