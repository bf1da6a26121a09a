package services

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EscalationPolicy holds the SLA thresholds the engine escalates against.
// Defaults match the regulatory process: escalate at 3 overdue days, go
// critical at 7, and never renotify the same recipient within 24 hours.
type EscalationPolicy struct {
	Level1Days         int
	Level2Days         int
	Cooldown           time.Duration
	ManagementRoleCode string
}

// escalationPolicyFile is the on-disk YAML shape. Zero fields keep their
// default.
type escalationPolicyFile struct {
	Level1Days         int    `yaml:"level1_days"`
	Level2Days         int    `yaml:"level2_days"`
	CooldownHours      int    `yaml:"cooldown_hours"`
	ManagementRoleCode string `yaml:"management_role_code"`
}

func DefaultEscalationPolicy() EscalationPolicy {
	return EscalationPolicy{
		Level1Days:         3,
		Level2Days:         7,
		Cooldown:           24 * time.Hour,
		ManagementRoleCode: "QMS_DIRECTOR",
	}
}

// LoadEscalationPolicy reads a YAML policy file and overlays it on the
// defaults. An empty path returns the defaults unchanged.
func LoadEscalationPolicy(path string) (EscalationPolicy, error) {
	policy := DefaultEscalationPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read escalation policy: %w", err)
	}
	var file escalationPolicyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return policy, fmt.Errorf("parse escalation policy: %w", err)
	}
	if file.Level1Days > 0 {
		policy.Level1Days = file.Level1Days
	}
	if file.Level2Days > 0 {
		policy.Level2Days = file.Level2Days
	}
	if file.CooldownHours > 0 {
		policy.Cooldown = time.Duration(file.CooldownHours) * time.Hour
	}
	if file.ManagementRoleCode != "" {
		policy.ManagementRoleCode = file.ManagementRoleCode
	}
	if policy.Level2Days <= policy.Level1Days {
		return policy, fmt.Errorf("escalation policy thresholds must satisfy 0 < level1 < level2")
	}
	return policy, nil
}

// Level maps overdue days onto an escalation level.
func (p EscalationPolicy) Level(overdueDays int) int {
	switch {
	case overdueDays >= p.Level2Days:
		return 2
	case overdueDays >= p.Level1Days:
		return 1
	default:
		return 0
	}
}
