package models

import (
	"strings"
	"time"
)

// Monitoring types for an agent.
const (
	MonitoringServer      = "server"
	MonitoringWorkstation = "workstation"
)

// Agent is a managed remote endpoint. AgentID is the opaque external
// identifier used to address the agent on the message bus; the numeric
// primary key never leaves the database layer.
type Agent struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	AgentID         string `gorm:"size:64;uniqueIndex;not null"`
	Hostname        string `gorm:"size:255;index"`
	OperatingSystem string `gorm:"size:255"`
	Version         string `gorm:"size:32;index"`
	MonitoringType  string `gorm:"size:16;default:server"`
	Description     string `gorm:"type:text"`
	MaintenanceMode bool   `gorm:"default:false"`
	PublicIP        string `gorm:"size:45"`
	AuthKey         string `gorm:"size:64"`
	SiteID          uint   `gorm:"index;not null"`
	LastSeen        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Site Site `gorm:"foreignKey:SiteID"`
}

// Arch derives the agent's architecture from its reported OS string.
// Returns "" when the OS string carries no recognizable architecture,
// in which case update dispatch is skipped for the agent.
func (a *Agent) Arch() string {
	switch {
	case strings.Contains(a.OperatingSystem, "64 bit"),
		strings.Contains(a.OperatingSystem, "64bit"):
		return "amd64"
	case strings.Contains(a.OperatingSystem, "32 bit"),
		strings.Contains(a.OperatingSystem, "32bit"):
		return "386"
	}
	return ""
}
