package models

import "time"

// Pending action types and statuses.
const (
	ActionAgentUpdate = "agentupdate"
	ActionSchedReboot = "schedreboot"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// PendingAction is a durable record of an asynchronous operation whose
// outcome is not known at request time. Details holds an opaque JSON
// payload specific to the action type.
type PendingAction struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	AgentID    uint   `gorm:"index;not null"`
	ActionType string `gorm:"size:32;index;not null"`
	Status     string `gorm:"size:16;default:pending;index"`
	Details    string `gorm:"type:json"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Agent Agent `gorm:"foreignKey:AgentID"`
}

// Recovery modes.
const (
	RecoveryMesh     = "mesh"
	RecoveryTacAgent = "tacagent"
	RecoveryCommand  = "command"
)

// RecoveryAction tracks a remediation attempt made after a synchronous
// recovery call failed to reach the agent. Command is set only for
// command-mode recoveries.
type RecoveryAction struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	AgentID   uint   `gorm:"index;not null"`
	Mode      string `gorm:"size:16;not null"`
	Command   string `gorm:"type:text"`
	LastRun   *time.Time
	CreatedAt time.Time

	Agent Agent `gorm:"foreignKey:AgentID"`
}
