package dispatch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/droverdev/drover/internal/command"
	"github.com/droverdev/drover/internal/models"
	"github.com/droverdev/drover/internal/notify"
	"github.com/droverdev/drover/internal/scripting"
)

// Script output routing modes.
const (
	OutputWait      = "wait"
	OutputForget    = "forget"
	OutputEmail     = "email"
	OutputCollector = "collector"
	OutputNote      = "note"
)

const scriptQueuedMsg = "Script will run shortly"

// ScriptRun describes one script execution request.
type ScriptRun struct {
	Script        *models.Script
	Args          []string
	Timeout       int
	Output        string   // wait, forget, email, collector or note
	EmailMode     string   // "default" uses the configured recipients
	Emails        []string // used when EmailMode is "custom"
	CustomFieldID uint     // collector target
	SaveAllOutput bool     // collector: full output vs last line
	Username      string
}

// RunScript resolves argument templates and snippets, dispatches the
// script, and routes the output per run.Output. Only "wait" blocks the
// caller on the full run; every other mode answers immediately.
func (d *Dispatcher) RunScript(agent *models.Agent, run ScriptRun) (string, error) {
	cmd := d.buildScriptCommand(agent, run)

	switch run.Output {
	case OutputForget:
		if err := d.Bus.Fire(agent.AgentID, cmd.Req); err != nil {
			return "", fmt.Errorf("dispatch: fire script %q: %w", run.Script.Name, err)
		}
		d.recordHistory(agent, models.HistoryScriptRun, run.Script.Name, run.Username, "")
		return scriptQueuedMsg, nil

	case OutputEmail:
		// The run outlives the HTTP request; output is mailed whenever
		// the script finishes.
		go d.emailScriptOutput(agent, run, cmd)
		return scriptQueuedMsg, nil

	case OutputWait, OutputCollector, OutputNote:
		r := d.Bus.Send(agent.AgentID, cmd.Req, cmd.WaitSecs)
		if r.Offline() {
			return "", ErrOffline
		}
		out := r.Text()
		d.recordHistory(agent, models.HistoryScriptRun, run.Script.Name, run.Username, out)

		switch run.Output {
		case OutputCollector:
			if err := d.saveCollectorOutput(agent, run, out); err != nil {
				return "", err
			}
		case OutputNote:
			note := models.Note{AgentID: agent.ID, Body: out, Username: run.Username}
			if err := d.DB.Create(&note).Error; err != nil {
				return "", fmt.Errorf("dispatch: create note: %w", err)
			}
		}
		return out, nil

	default:
		return "", fmt.Errorf("dispatch: unknown output mode %q", run.Output)
	}
}

// buildScriptCommand resolves argument templates and snippets into the
// dispatchable command.
func (d *Dispatcher) buildScriptCommand(agent *models.Agent, run ScriptRun) command.Command {
	resolver := &scripting.Resolver{DB: d.DB, Agent: agent, Shell: run.Script.Shell}
	args := resolver.ParseArgs(run.Args)
	code := scripting.ReplaceSnippets(d.DB, run.Script.Code)

	timeout := run.Timeout
	if timeout <= 0 {
		timeout = run.Script.Timeout
	}
	return command.RunScript(code, run.Script.Shell, args, timeout)
}

// emailScriptOutput runs the script to completion and mails the output.
// Synchronous; RunScript launches it on a goroutine so the HTTP caller
// answers immediately.
func (d *Dispatcher) emailScriptOutput(agent *models.Agent, run ScriptRun, cmd command.Command) {
	r := d.Bus.Send(agent.AgentID, cmd.Req, cmd.WaitSecs)
	out := r.Text()
	if r.Offline() {
		out = "Unable to contact the agent"
	}
	d.recordHistory(agent, models.HistoryScriptRun, run.Script.Name, run.Username, out)

	if d.Mailer == nil {
		log.Printf("dispatch: script %q output for %s dropped, no mailer configured", run.Script.Name, agent.Hostname)
		return
	}
	var to []string
	if run.EmailMode == "custom" {
		to = run.Emails
	}
	n := notify.Notice{
		Subject:    fmt.Sprintf("%s - %s", agent.Hostname, run.Script.Name),
		Body:       out,
		Recipients: to,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Mailer.Send(ctx, n); err != nil {
		log.Printf("dispatch: mail script output: %v", err)
	}
}

// saveCollectorOutput writes script output into the run's target custom
// field on whichever entity the field belongs to. SaveAllOutput keeps the
// whole output; otherwise only the last non-empty line is kept.
func (d *Dispatcher) saveCollectorOutput(agent *models.Agent, run ScriptRun, out string) error {
	var field models.CustomField
	if err := d.DB.First(&field, run.CustomFieldID).Error; err != nil {
		return ErrInvalidField
	}

	value := strings.TrimSpace(out)
	if !run.SaveAllOutput {
		value = lastLine(value)
	}

	switch field.Model {
	case "agent":
		var row models.AgentCustomField
		err := d.DB.Where("agent_id = ? AND field_id = ?", agent.ID, field.ID).First(&row).Error
		if err != nil {
			row = models.AgentCustomField{AgentID: agent.ID, FieldID: field.ID}
		}
		row.StringValue = value
		return d.DB.Save(&row).Error
	case "site":
		var row models.SiteCustomField
		err := d.DB.Where("site_id = ? AND field_id = ?", agent.SiteID, field.ID).First(&row).Error
		if err != nil {
			row = models.SiteCustomField{SiteID: agent.SiteID, FieldID: field.ID}
		}
		row.StringValue = value
		return d.DB.Save(&row).Error
	case "client":
		var row models.ClientCustomField
		err := d.DB.Where("client_id = ? AND field_id = ?", agent.Site.ClientID, field.ID).First(&row).Error
		if err != nil {
			row = models.ClientCustomField{ClientID: agent.Site.ClientID, FieldID: field.ID}
		}
		row.StringValue = value
		return d.DB.Save(&row).Error
	}
	return ErrInvalidField
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
