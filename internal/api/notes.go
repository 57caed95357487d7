package api

import (
	"net/http"
	"time"

	"github.com/droverdev/drover/internal/models"
	"github.com/gin-gonic/gin"
)

type noteResponse struct {
	ID       uint      `json:"id"`
	AgentID  string    `json:"agent_id"`
	Body     string    `json:"note"`
	Username string    `json:"username"`
	Created  time.Time `json:"created"`
}

func noteOut(n *models.Note, agentID string) noteResponse {
	return noteResponse{
		ID:       n.ID,
		AgentID:  agentID,
		Body:     n.Body,
		Username: n.Username,
		Created:  n.CreatedAt,
	}
}

func (s *Server) handleListNotes(c *gin.Context, agent *models.Agent) {
	var notes []models.Note
	err := s.DB.Where("agent_id = ?", agent.ID).Order("created_at DESC").Find(&notes).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]noteResponse, 0, len(notes))
	for i := range notes {
		out = append(out, noteOut(&notes[i], agent.AgentID))
	}
	c.JSON(http.StatusOK, out)
}

type createNoteRequest struct {
	AgentID string `json:"agent_id"`
	Body    string `json:"note"`
}

func (s *Server) handleCreateNote(c *gin.Context) {
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, err.Error())
		return
	}
	var agent models.Agent
	err := scopedAgents(s.DB, roleFrom(c)).
		Where("agents.agent_id = ?", req.AgentID).First(&agent).Error
	if err != nil {
		c.JSON(http.StatusNotFound, "Agent not found")
		return
	}
	note := models.Note{AgentID: agent.ID, Body: req.Body, Username: usernameFrom(c)}
	if err := s.DB.Create(&note).Error; err != nil {
		c.JSON(http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, noteOut(&note, agent.AgentID))
}

// noteInScope loads a note by id and checks the owning agent is visible
// to the caller.
func (s *Server) noteInScope(c *gin.Context) (*models.Note, *models.Agent, bool) {
	var note models.Note
	if err := s.DB.First(&note, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, "Note not found")
		return nil, nil, false
	}
	var agent models.Agent
	err := scopedAgents(s.DB, roleFrom(c)).
		Where("agents.id = ?", note.AgentID).First(&agent).Error
	if err != nil {
		c.JSON(http.StatusNotFound, "Note not found")
		return nil, nil, false
	}
	return &note, &agent, true
}

func (s *Server) handleGetNote(c *gin.Context) {
	note, agent, ok := s.noteInScope(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, noteOut(note, agent.AgentID))
}

type editNoteRequest struct {
	Body string `json:"note"`
}

func (s *Server) handleEditNote(c *gin.Context) {
	note, agent, ok := s.noteInScope(c)
	if !ok {
		return
	}
	var req editNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, err.Error())
		return
	}
	note.Body = req.Body
	if err := s.DB.Save(note).Error; err != nil {
		c.JSON(http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, noteOut(note, agent.AgentID))
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	note, _, ok := s.noteInScope(c)
	if !ok {
		return
	}
	if err := s.DB.Delete(note).Error; err != nil {
		c.JSON(http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, "Note was deleted")
}

type historyResponse struct {
	ID       uint      `json:"id"`
	Time     time.Time `json:"time"`
	Type     string    `json:"type"`
	Command  string    `json:"command"`
	Username string    `json:"username"`
	Results  string    `json:"results"`
}

func (s *Server) handleListHistory(c *gin.Context, agent *models.Agent) {
	var rows []models.AgentHistory
	err := s.DB.Where("agent_id = ?", agent.ID).Order("time DESC").Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]historyResponse, 0, len(rows))
	for _, h := range rows {
		out = append(out, historyResponse{
			ID: h.ID, Time: h.Time, Type: h.Type,
			Command: h.Command, Username: h.Username, Results: h.Results,
		})
	}
	c.JSON(http.StatusOK, out)
}
