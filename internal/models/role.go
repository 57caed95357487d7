package models

import "time"

// Role carries a caller's capability flags and visibility restrictions.
// A role with neither allowed clients nor allowed sites (or with
// IsSuperuser set) sees every agent; otherwise visibility is the union
// of agents under the allowed clients and the allowed sites.
type Role struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:64;uniqueIndex;not null"`
	IsSuperuser bool   `gorm:"default:false"`

	CanListAgents      bool `gorm:"default:false"`
	CanPingAgents      bool `gorm:"default:false"`
	CanEditAgents      bool `gorm:"default:false"`
	CanUninstallAgents bool `gorm:"default:false"`
	CanUpdateAgents    bool `gorm:"default:false"`
	CanRebootAgents    bool `gorm:"default:false"`
	CanSendCmd         bool `gorm:"default:false"`
	CanRunScripts      bool `gorm:"default:false"`
	CanRecoverAgents   bool `gorm:"default:false"`
	CanManageProcs     bool `gorm:"default:false"`
	CanViewEventLogs   bool `gorm:"default:false"`
	CanListNotes       bool `gorm:"default:false"`
	CanManageNotes     bool `gorm:"default:false"`
	CanListHistory     bool `gorm:"default:false"`

	AllowedClients []Client `gorm:"many2many:role_allowed_clients"`
	AllowedSites   []Site   `gorm:"many2many:role_allowed_sites"`
}

// Restricted reports whether the role carries any visibility restriction.
func (r *Role) Restricted() bool {
	if r.IsSuperuser {
		return false
	}
	return len(r.AllowedClients) > 0 || len(r.AllowedSites) > 0
}

// APIKey authenticates a caller and binds it to a role.
type APIKey struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Key       string `gorm:"size:64;uniqueIndex;not null"`
	Name      string `gorm:"size:64"`
	RoleID    uint   `gorm:"index;not null"`
	CreatedAt time.Time

	Role Role `gorm:"foreignKey:RoleID"`
}
