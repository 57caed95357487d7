package models

import "time"

// Shells an agent can execute scripts under.
const (
	ShellPowershell = "powershell"
	ShellCmd        = "cmd"
	ShellPython     = "python"
)

// Script is a stored script runnable on agents.
type Script struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Shell       string `gorm:"size:16;default:powershell"`
	Code        string `gorm:"type:text"`
	ScriptType  string `gorm:"size:16;default:userdefined"`
	Timeout     int    `gorm:"default:90"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ScriptSnippet is a named block of code spliced into script bodies via
// {{name}} placeholders before dispatch.
type ScriptSnippet struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"size:64;uniqueIndex;not null"`
	Desc  string `gorm:"type:text"`
	Shell string `gorm:"size:16;default:powershell"`
	Code  string `gorm:"type:text"`
}

// GlobalKV is a server-wide key/value pair usable from script argument
// templates as {{global.key}}.
type GlobalKV struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"size:64;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}
