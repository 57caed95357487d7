package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/droverdev/drover/internal/command"
	"github.com/droverdev/drover/internal/dispatch"
	"github.com/droverdev/drover/internal/models"
	"github.com/gin-gonic/gin"
)

// respondDispatchErr translates a dispatch error into the right status.
// Validation and agent failures are the caller's problem (400); anything
// else is ours (500).
func respondDispatchErr(c *gin.Context, err error) {
	var de *dispatch.DomainError
	switch {
	case errors.Is(err, dispatch.ErrOffline),
		errors.Is(err, dispatch.ErrEmptyCommand),
		errors.Is(err, dispatch.ErrInvalidMode),
		errors.Is(err, dispatch.ErrInvalidField),
		errors.Is(err, command.ErrInvalidDate),
		errors.As(err, &de):
		c.JSON(http.StatusBadRequest, err.Error())
	default:
		c.JSON(http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handlePing(c *gin.Context, agent *models.Agent) {
	status := "offline"
	if s.Dispatch.Ping(agent) {
		status = "online"
	}
	c.JSON(http.StatusOK, gin.H{"name": agent.Hostname, "status": status})
}

func (s *Server) handleRebootNow(c *gin.Context, agent *models.Agent) {
	if err := s.Dispatch.RebootNow(agent); err != nil {
		respondDispatchErr(c, err)
		return
	}
	c.JSON(http.StatusOK, "Restarting agent")
}

type rebootLaterRequest struct {
	DateTime string `json:"datetime"`
}

func (s *Server) handleRebootLater(c *gin.Context, agent *models.Agent) {
	var req rebootLaterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, err.Error())
		return
	}
	plan, err := s.Dispatch.RebootLater(agent, req.DateTime)
	if err != nil {
		respondDispatchErr(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handleProcesses(c *gin.Context, agent *models.Agent) {
	procs, err := s.Dispatch.Processes(agent)
	if err != nil {
		respondDispatchErr(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", procs)
}

func (s *Server) handleKillProcess(c *gin.Context, agent *models.Agent) {
	pid, err := strconv.Atoi(c.Param("pid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, "Invalid PID")
		return
	}
	if err := s.Dispatch.KillProcess(agent, pid); err != nil {
		respondDispatchErr(c, err)
		return
	}
	c.JSON(http.StatusOK, "Process was ended")
}

func (s *Server) handleEventLog(c *gin.Context, agent *models.Agent) {
	days, err := strconv.Atoi(c.Param("days"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, "Invalid days")
		return
	}
	entries, err := s.Dispatch.EventLog(agent, c.Param("logname"), days)
	if err != nil {
		respondDispatchErr(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", entries)
}

type sendCmdRequest struct {
	Shell   string `json:"shell"`
	Cmd     string `json:"cmd"`
	Timeout int    `json:"timeout"`
}

func (s *Server) handleSendCmd(c *gin.Context, agent *models.Agent) {
	var req sendCmdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, err.Error())
		return
	}
	if req.Cmd == "" {
		c.JSON(http.StatusBadRequest, dispatch.ErrEmptyCommand.Error())
		return
	}
	if req.Timeout <= 0 {
		c.JSON(http.StatusBadRequest, "Timeout is required")
		return
	}
	out, err := s.Dispatch.RawCmd(agent, req.Shell, req.Cmd, req.Timeout, usernameFrom(c))
	if err != nil {
		respondDispatchErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type recoverRequest struct {
	Mode string `json:"mode"`
	Cmd  string `json:"cmd"`
}

func (s *Server) handleRecover(c *gin.Context, agent *models.Agent) {
	var req recoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, err.Error())
		return
	}
	msg, err := s.Dispatch.Recover(agent, req.Mode, req.Cmd)
	if err != nil {
		respondDispatchErr(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (s *Server) handleRefreshWMI(c *gin.Context, agent *models.Agent) {
	if err := s.Dispatch.RefreshWMI(agent); err != nil {
		respondDispatchErr(c, err)
		return
	}
	c.JSON(http.StatusOK, "WMI data refresh queued")
}
