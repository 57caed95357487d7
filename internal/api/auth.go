package api

import (
	"net/http"

	"github.com/droverdev/drover/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	apiKeyHeader = "X-API-KEY"

	ctxRole     = "role"
	ctxUsername = "username"
)

// Capability selectors for the can middleware. Keeping them as accessor
// functions avoids a string-keyed permission table that gorm can't check.
var (
	canListAgents      = func(r *models.Role) bool { return r.CanListAgents }
	canPingAgents      = func(r *models.Role) bool { return r.CanPingAgents }
	canEditAgents      = func(r *models.Role) bool { return r.CanEditAgents }
	canUninstallAgents = func(r *models.Role) bool { return r.CanUninstallAgents }
	canUpdateAgents    = func(r *models.Role) bool { return r.CanUpdateAgents }
	canRebootAgents    = func(r *models.Role) bool { return r.CanRebootAgents }
	canSendCmd         = func(r *models.Role) bool { return r.CanSendCmd }
	canRunScripts      = func(r *models.Role) bool { return r.CanRunScripts }
	canRecoverAgents   = func(r *models.Role) bool { return r.CanRecoverAgents }
	canManageProcs     = func(r *models.Role) bool { return r.CanManageProcs }
	canViewEventLogs   = func(r *models.Role) bool { return r.CanViewEventLogs }
	canListNotes       = func(r *models.Role) bool { return r.CanListNotes }
	canManageNotes     = func(r *models.Role) bool { return r.CanManageNotes }
	canListHistory     = func(r *models.Role) bool { return r.CanListHistory }
)

// requireKey authenticates the request by API key and attaches the
// caller's role, restrictions preloaded.
func (s *Server) requireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, "API key required")
			return
		}
		var ak models.APIKey
		err := s.DB.Preload("Role").
			Preload("Role.AllowedClients").
			Preload("Role.AllowedSites").
			Where("`key` = ?", key).First(&ak).Error
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, "Invalid API key")
			return
		}
		c.Set(ctxRole, &ak.Role)
		c.Set(ctxUsername, ak.Name)
		c.Next()
	}
}

// can gates a route on one role capability. Superusers pass everything.
func (s *Server) can(sel func(*models.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := roleFrom(c)
		if role.IsSuperuser || sel(role) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, "Permission denied")
	}
}

func roleFrom(c *gin.Context) *models.Role {
	return c.MustGet(ctxRole).(*models.Role)
}

func usernameFrom(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

// scopedAgents narrows an agent query to the caller's visibility: either
// everything, or the union of agents under the role's allowed clients and
// allowed sites.
func scopedAgents(db *gorm.DB, role *models.Role) *gorm.DB {
	q := db.Model(&models.Agent{}).
		Joins("JOIN sites ON sites.id = agents.site_id").
		Preload("Site").Preload("Site.Client")
	if !role.Restricted() {
		return q
	}
	return q.Where("agents.site_id IN ? OR sites.client_id IN ?",
		siteIDs(role.AllowedSites), clientIDs(role.AllowedClients))
}

// withAgent resolves :agentid within the caller's scope and hands the row
// to the wrapped handler. Out-of-scope agents are indistinguishable from
// nonexistent ones.
func (s *Server) withAgent(h func(*gin.Context, *models.Agent)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var agent models.Agent
		err := scopedAgents(s.DB, roleFrom(c)).
			Where("agents.agent_id = ?", c.Param("agentid")).
			First(&agent).Error
		if err != nil {
			c.JSON(http.StatusNotFound, "Agent not found")
			return
		}
		h(c, &agent)
	}
}

func siteIDs(sites []models.Site) []uint {
	ids := make([]uint, 0, len(sites))
	for _, s := range sites {
		ids = append(ids, s.ID)
	}
	return ids
}

func clientIDs(clients []models.Client) []uint {
	ids := make([]uint, 0, len(clients))
	for _, cl := range clients {
		ids = append(ids, cl.ID)
	}
	return ids
}
