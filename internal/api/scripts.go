package api

import (
	"net/http"

	"github.com/droverdev/drover/internal/dispatch"
	"github.com/droverdev/drover/internal/models"
	"github.com/gin-gonic/gin"
)

type runScriptRequest struct {
	ScriptID      uint     `json:"script_id"`
	Args          []string `json:"args"`
	Timeout       int      `json:"timeout"`
	Output        string   `json:"output"`
	EmailMode     string   `json:"email_mode"`
	Emails        []string `json:"emails"`
	CustomField   uint     `json:"custom_field"`
	SaveAllOutput bool     `json:"save_all_output"`
}

// handleRunScript runs a stored script on the agent with the requested
// output routing.
func (s *Server) handleRunScript(c *gin.Context, agent *models.Agent) {
	var req runScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, err.Error())
		return
	}

	var script models.Script
	if err := s.DB.First(&script, req.ScriptID).Error; err != nil {
		c.JSON(http.StatusNotFound, "Script not found")
		return
	}
	if req.Output == "" {
		req.Output = dispatch.OutputWait
	}

	out, err := s.Dispatch.RunScript(agent, dispatch.ScriptRun{
		Script:        &script,
		Args:          req.Args,
		Timeout:       req.Timeout,
		Output:        req.Output,
		EmailMode:     req.EmailMode,
		Emails:        req.Emails,
		CustomFieldID: req.CustomField,
		SaveAllOutput: req.SaveAllOutput,
		Username:      usernameFrom(c),
	})
	if err != nil {
		respondDispatchErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
