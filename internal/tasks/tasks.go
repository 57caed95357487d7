// Package tasks runs the recurring maintenance jobs: history pruning and
// the optional automatic agent-update sweep.
package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/droverdev/drover/internal/config"
	"github.com/droverdev/drover/internal/dispatch"
	"github.com/droverdev/drover/internal/models"
	"github.com/droverdev/drover/internal/observability"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Scheduler owns the cron runner and the jobs it fires.
type Scheduler struct {
	DB       *gorm.DB
	Dispatch *dispatch.Dispatcher
	Cfg      *config.Config

	cron *cron.Cron
}

// New builds a Scheduler. Jobs are registered but not started.
func New(db *gorm.DB, d *dispatch.Dispatcher, cfg *config.Config) (*Scheduler, error) {
	s := &Scheduler{
		DB:       db,
		Dispatch: d,
		Cfg:      cfg,
		cron:     cron.New(),
	}

	if _, err := s.cron.AddFunc(cfg.Retention.PruneCron, s.runPrune); err != nil {
		return nil, fmt.Errorf("tasks: prune schedule %q: %w", cfg.Retention.PruneCron, err)
	}
	if cfg.Agent.AutoUpdate {
		if _, err := s.cron.AddFunc(cfg.Agent.UpdateCron, s.runUpdateSweep); err != nil {
			return nil, fmt.Errorf("tasks: update schedule %q: %w", cfg.Agent.UpdateCron, err)
		}
	}
	return s, nil
}

// Start begins firing jobs on schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runPrune() {
	n, err := s.PruneHistory(s.Cfg.Retention.HistoryDays)
	if err != nil {
		log.Printf("tasks: prune history: %v", err)
		return
	}
	if n > 0 {
		log.Printf("tasks: pruned %d history rows", n)
	}
}

// PruneHistory deletes agent history older than days. Rows exactly at the
// boundary are retained.
func (s *Scheduler) PruneHistory(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	res := s.DB.Where("time < ?", cutoff).Delete(&models.AgentHistory{})
	if res.Error != nil {
		return 0, fmt.Errorf("tasks: prune history: %w", res.Error)
	}
	observability.HistoryPruned.Add(float64(res.RowsAffected))
	return res.RowsAffected, nil
}

func (s *Scheduler) runUpdateSweep() {
	var agents []models.Agent
	if err := s.DB.Find(&agents).Error; err != nil {
		log.Printf("tasks: update sweep: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	updated, err := s.Dispatch.BulkUpdate(ctx, agents)
	if err != nil {
		log.Printf("tasks: update sweep: %v", err)
		return
	}
	if len(updated) > 0 {
		log.Printf("tasks: queued updates for %d agents", len(updated))
	}
}
