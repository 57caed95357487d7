// Package api exposes the HTTP surface: agent CRUD, command dispatch,
// script runs and the records they leave behind. Every route below the
// auth group is scoped by the caller's role before any handler logic
// runs.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/droverdev/drover/internal/dispatch"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Server is the HTTP front end.
type Server struct {
	DB       *gorm.DB
	Dispatch *dispatch.Dispatcher
	Listen   string
}

// New builds a Server.
func New(db *gorm.DB, d *dispatch.Dispatcher, listen string) *Server {
	return &Server{DB: db, Dispatch: d, Listen: listen}
}

// Router assembles the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/", s.requireKey())

	agents := authed.Group("/agents")
	{
		agents.GET("/", s.can(canListAgents), s.handleListAgents)
		agents.GET("/versions/", s.can(canListAgents), s.handleAgentVersions)
		agents.POST("/maintenance/", s.can(canEditAgents), s.handleBulkMaintenance)
		agents.POST("/update/", s.can(canUpdateAgents), s.handleBulkUpdate)

		agents.GET("/:agentid/", s.can(canListAgents), s.withAgent(s.handleGetAgent))
		agents.PUT("/:agentid/", s.can(canEditAgents), s.withAgent(s.handleEditAgent))
		agents.DELETE("/:agentid/", s.can(canUninstallAgents), s.withAgent(s.handleUninstallAgent))

		agents.GET("/:agentid/ping/", s.can(canPingAgents), s.withAgent(s.handlePing))
		agents.POST("/:agentid/reboot/", s.can(canRebootAgents), s.withAgent(s.handleRebootNow))
		agents.PATCH("/:agentid/reboot/", s.can(canRebootAgents), s.withAgent(s.handleRebootLater))
		agents.GET("/:agentid/processes/", s.can(canManageProcs), s.withAgent(s.handleProcesses))
		agents.DELETE("/:agentid/processes/:pid/", s.can(canManageProcs), s.withAgent(s.handleKillProcess))
		agents.GET("/:agentid/eventlog/:logname/:days/", s.can(canViewEventLogs), s.withAgent(s.handleEventLog))
		agents.POST("/:agentid/cmd/", s.can(canSendCmd), s.withAgent(s.handleSendCmd))
		agents.POST("/:agentid/runscript/", s.can(canRunScripts), s.withAgent(s.handleRunScript))
		agents.POST("/:agentid/recover/", s.can(canRecoverAgents), s.withAgent(s.handleRecover))
		agents.POST("/:agentid/wmi/", s.can(canEditAgents), s.withAgent(s.handleRefreshWMI))

		agents.GET("/:agentid/notes/", s.can(canListNotes), s.withAgent(s.handleListNotes))
		agents.GET("/:agentid/history/", s.can(canListHistory), s.withAgent(s.handleListHistory))
	}

	notes := authed.Group("/notes")
	{
		notes.POST("/", s.can(canManageNotes), s.handleCreateNote)
		notes.GET("/:id/", s.can(canListNotes), s.handleGetNote)
		notes.PUT("/:id/", s.can(canManageNotes), s.handleEditNote)
		notes.DELETE("/:id/", s.can(canManageNotes), s.handleDeleteNote)
	}

	return r
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Listen,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
