package models

import "time"

// History entry types.
const (
	HistoryCmdRun    = "cmd_run"
	HistoryScriptRun = "script_run"
	HistoryTaskRun   = "task_run"
)

// AgentHistory is an append-only log of commands executed against an
// agent. Rows are pruned by the retention sweep, never updated.
type AgentHistory struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	AgentID  uint      `gorm:"index;not null"`
	Time     time.Time `gorm:"index;autoCreateTime"`
	Type     string    `gorm:"size:16;default:cmd_run"`
	Command  string    `gorm:"type:text"`
	Username string    `gorm:"size:64"`
	Results  string    `gorm:"type:text"`

	Agent Agent `gorm:"foreignKey:AgentID"`
}

// Note is a free-text annotation owned by an agent.
type Note struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	AgentID   uint   `gorm:"index;not null"`
	Body      string `gorm:"type:text"`
	Username  string `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Agent Agent `gorm:"foreignKey:AgentID"`
}
