package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/droverdev/drover/internal/command"
	"github.com/droverdev/drover/internal/models"
	"github.com/droverdev/drover/internal/observability"
	"github.com/droverdev/drover/internal/release"
)

// minSupportedVer is the oldest agent version that can self-update; older
// agents must be reinstalled.
const minSupportedVer = "1.4.0"

// Update enqueue outcomes.
const (
	UpdateQueued       = "created"
	UpdateCurrent      = "current version"
	UpdateNoArch       = "noarch"
	UpdateNotSupported = "not supported"
)

// UpdateDetails is the PendingAction payload for an agent update.
type UpdateDetails struct {
	URL     string `json:"url"`
	Inno    string `json:"inno"`
	Version string `json:"version"`
}

// EnqueueUpdate records and fires an update for one agent. Agents with
// unknown architecture or versions too old to self-update are skipped, as
// are agents already at or above the latest version. At most one pending
// update row exists per agent; stale ones are replaced.
func (d *Dispatcher) EnqueueUpdate(ctx context.Context, agent *models.Agent) (string, error) {
	arch := agent.Arch()
	if arch == "" {
		return UpdateNoArch, nil
	}
	if release.NeedsUpdate(agent.Version, minSupportedVer) {
		return UpdateNotSupported, nil
	}

	latest, err := d.Releases.LatestVersion(ctx)
	if err != nil {
		return "", err
	}
	if !release.NeedsUpdate(agent.Version, latest) {
		return UpdateCurrent, nil
	}

	details := UpdateDetails{
		URL:     d.Releases.DownloadURL(latest, arch),
		Inno:    release.InnoName(latest, arch),
		Version: latest,
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("dispatch: encode update details: %w", err)
	}

	err = d.DB.Where("agent_id = ? AND action_type = ? AND status = ?",
		agent.ID, models.ActionAgentUpdate, models.StatusPending).
		Delete(&models.PendingAction{}).Error
	if err != nil {
		return "", fmt.Errorf("dispatch: clear stale update actions: %w", err)
	}
	pa := models.PendingAction{
		AgentID:    agent.ID,
		ActionType: models.ActionAgentUpdate,
		Details:    string(raw),
	}
	if err := d.DB.Create(&pa).Error; err != nil {
		return "", fmt.Errorf("dispatch: create update action: %w", err)
	}
	observability.PendingActionsCreated.WithLabelValues(models.ActionAgentUpdate).Inc()

	req := command.AgentUpdate(details.URL, details.Inno, details.Version)
	if err := d.Bus.Fire(agent.AgentID, req); err != nil {
		return "", fmt.Errorf("dispatch: fire update %s: %w", agent.Hostname, err)
	}
	return UpdateQueued, nil
}

// BulkUpdate enqueues updates for every agent running strictly below the
// latest version and returns the agent IDs that were actually queued.
// Per-agent failures are logged and skipped so one bad row can't stall
// the sweep.
func (d *Dispatcher) BulkUpdate(ctx context.Context, agents []models.Agent) ([]string, error) {
	latest, err := d.Releases.LatestVersion(ctx)
	if err != nil {
		return nil, err
	}

	updated := []string{}
	for i := range agents {
		a := &agents[i]
		if !release.NeedsUpdate(a.Version, latest) {
			continue
		}
		outcome, err := d.EnqueueUpdate(ctx, a)
		if err != nil {
			log.Printf("dispatch: update %s: %v", a.Hostname, err)
			continue
		}
		if outcome == UpdateQueued {
			updated = append(updated, a.AgentID)
		}
	}
	return updated, nil
}
