package api

import (
	"net/http"
	"time"

	"github.com/droverdev/drover/internal/models"
	"github.com/gin-gonic/gin"
)

// agentSummary is the list/detail shape for an agent.
type agentSummary struct {
	AgentID         string     `json:"agent_id"`
	Hostname        string     `json:"hostname"`
	Site            string     `json:"site"`
	Client          string     `json:"client"`
	MonitoringType  string     `json:"monitoring_type"`
	Description     string     `json:"description"`
	OperatingSystem string     `json:"operating_system"`
	Version         string     `json:"version"`
	MaintenanceMode bool       `json:"maintenance_mode"`
	PublicIP        string     `json:"public_ip"`
	LastSeen        *time.Time `json:"last_seen"`
}

func summarize(a *models.Agent) agentSummary {
	return agentSummary{
		AgentID:         a.AgentID,
		Hostname:        a.Hostname,
		Site:            a.Site.Name,
		Client:          a.Site.Client.Name,
		MonitoringType:  a.MonitoringType,
		Description:     a.Description,
		OperatingSystem: a.OperatingSystem,
		Version:         a.Version,
		MaintenanceMode: a.MaintenanceMode,
		PublicIP:        a.PublicIP,
		LastSeen:        a.LastSeen,
	}
}

// handleListAgents lists visible agents, optionally filtered by site,
// client or monitoring type.
func (s *Server) handleListAgents(c *gin.Context) {
	q := scopedAgents(s.DB, roleFrom(c))
	if site := c.Query("site"); site != "" {
		q = q.Where("sites.name = ?", site)
	}
	if client := c.Query("client"); client != "" {
		q = q.Joins("JOIN clients ON clients.id = sites.client_id").
			Where("clients.name = ?", client)
	}
	if mt := c.Query("monitoring_type"); mt != "" {
		q = q.Where("agents.monitoring_type = ?", mt)
	}

	var agents []models.Agent
	if err := q.Order("agents.hostname").Find(&agents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]agentSummary, 0, len(agents))
	for i := range agents {
		out = append(out, summarize(&agents[i]))
	}
	c.JSON(http.StatusOK, out)
}

// handleAgentVersions reports hostname and installed version for every
// visible agent, for update planning.
func (s *Server) handleAgentVersions(c *gin.Context) {
	var agents []models.Agent
	err := scopedAgents(s.DB, roleFrom(c)).Order("agents.hostname").Find(&agents).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, err.Error())
		return
	}
	type row struct {
		AgentID  string `json:"agent_id"`
		Hostname string `json:"hostname"`
		Version  string `json:"version"`
	}
	out := make([]row, 0, len(agents))
	for _, a := range agents {
		out = append(out, row{AgentID: a.AgentID, Hostname: a.Hostname, Version: a.Version})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetAgent(c *gin.Context, agent *models.Agent) {
	c.JSON(http.StatusOK, summarize(agent))
}

type editAgentRequest struct {
	Description     *string `json:"description"`
	MonitoringType  *string `json:"monitoring_type"`
	SiteID          *uint   `json:"site"`
	MaintenanceMode *bool   `json:"maintenance_mode"`
}

// handleEditAgent applies a partial update. Absent fields are untouched.
func (s *Server) handleEditAgent(c *gin.Context, agent *models.Agent) {
	var req editAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, err.Error())
		return
	}
	updates := map[string]any{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.MonitoringType != nil {
		switch *req.MonitoringType {
		case models.MonitoringServer, models.MonitoringWorkstation:
		default:
			c.JSON(http.StatusBadRequest, "Invalid monitoring type")
			return
		}
		updates["monitoring_type"] = *req.MonitoringType
	}
	if req.SiteID != nil {
		var site models.Site
		if err := s.DB.First(&site, *req.SiteID).Error; err != nil {
			c.JSON(http.StatusBadRequest, "Site not found")
			return
		}
		updates["site_id"] = *req.SiteID
	}
	if req.MaintenanceMode != nil {
		updates["maintenance_mode"] = *req.MaintenanceMode
	}
	if len(updates) > 0 {
		if err := s.DB.Model(agent).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, "Agent was updated")
}

func (s *Server) handleUninstallAgent(c *gin.Context, agent *models.Agent) {
	if err := s.Dispatch.Uninstall(agent); err != nil {
		c.JSON(http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, "The agent will be uninstalled shortly")
}

type maintenanceRequest struct {
	Type   string `json:"type"` // "Client" or "Site"
	ID     uint   `json:"id"`
	Action bool   `json:"action"`
}

// handleBulkMaintenance toggles maintenance mode for every agent under a
// client or a site.
func (s *Server) handleBulkMaintenance(c *gin.Context) {
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, err.Error())
		return
	}

	switch req.Type {
	case "Client":
		var ids []uint
		err := s.DB.Model(&models.Site{}).Where("client_id = ?", req.ID).Pluck("id", &ids).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, err.Error())
			return
		}
		err = s.DB.Model(&models.Agent{}).Where("site_id IN ?", ids).
			Update("maintenance_mode", req.Action).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, err.Error())
			return
		}
	case "Site":
		err := s.DB.Model(&models.Agent{}).Where("site_id = ?", req.ID).
			Update("maintenance_mode", req.Action).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, err.Error())
			return
		}
	default:
		c.JSON(http.StatusBadRequest, "Invalid data")
		return
	}
	c.JSON(http.StatusOK, "Maintenance mode has been changed")
}

type bulkUpdateRequest struct {
	AgentIDs []string `json:"agent_ids"`
}

// handleBulkUpdate enqueues updates for the requested agents. Only agents
// the caller can see and that run below the latest version are dispatched;
// the response lists those.
func (s *Server) handleBulkUpdate(c *gin.Context) {
	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, err.Error())
		return
	}

	q := scopedAgents(s.DB, roleFrom(c))
	if len(req.AgentIDs) > 0 {
		q = q.Where("agents.agent_id IN ?", req.AgentIDs)
	}
	var agents []models.Agent
	if err := q.Find(&agents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, err.Error())
		return
	}

	updated, err := s.Dispatch.BulkUpdate(c.Request.Context(), agents)
	if err != nil {
		c.JSON(http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
