// Package dispatch orchestrates commands against agents: build the wire
// payload, send it, interpret the tagged reply and persist whatever
// side-effect record the operation calls for. Authorization happens
// before this layer; validation happens here, before any transport
// contact.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/droverdev/drover/internal/command"
	"github.com/droverdev/drover/internal/models"
	"github.com/droverdev/drover/internal/notify"
	"github.com/droverdev/drover/internal/release"
	"github.com/droverdev/drover/internal/transport"
	"gorm.io/gorm"
)

// Reconciler rebuilds the bus principal list after fleet membership
// changes.
type Reconciler interface {
	Reconcile() error
}

// Mailer delivers script output routed to email. Satisfied by
// notify.Mailer.
type Mailer interface {
	Send(ctx context.Context, n notify.Notice) error
}

// Dispatcher ties the command builders, the transport and the database
// together. One Dispatcher serves all requests; it holds no per-request
// state.
type Dispatcher struct {
	DB         *gorm.DB
	Bus        transport.Client
	Releases   *release.Source
	Notifier   *notify.Notifier
	Mailer     Mailer
	Reconciler Reconciler
}

// Ping checks liveness. Exactly one reply value means online: the agent's
// "pong". Sentinels, silence and anything unexpected all mean offline.
func (d *Dispatcher) Ping(agent *models.Agent) bool {
	cmd := command.Ping()
	r := d.Bus.Send(agent.AgentID, cmd.Req, cmd.WaitSecs)
	return r.Kind == transport.ReplyData && r.Text() == "pong"
}

// RebootNow reboots the agent machine immediately.
func (d *Dispatcher) RebootNow(agent *models.Agent) error {
	cmd := command.RebootNow()
	return ackOnly(d.Bus.Send(agent.AgentID, cmd.Req, cmd.WaitSecs))
}

// RebootPlan reports a scheduled reboot back to the caller.
type RebootPlan struct {
	Time     string `json:"time"`
	Agent    string `json:"agent"`
	TaskName string `json:"task_name"`
}

// RebootLater schedules a one-shot reboot. A bad datetime fails with
// ErrInvalidDate before the transport is touched.
func (d *Dispatcher) RebootLater(agent *models.Agent, datetime string) (RebootPlan, error) {
	sched, cmd, err := command.RebootLater(datetime)
	if err != nil {
		return RebootPlan{}, err
	}
	if err := ackOnly(d.Bus.Send(agent.AgentID, cmd.Req, cmd.WaitSecs)); err != nil {
		return RebootPlan{}, err
	}
	return RebootPlan{
		Time:     sched.Display(),
		Agent:    agent.Hostname,
		TaskName: sched.TaskName,
	}, nil
}

// Processes fetches the live process list.
func (d *Dispatcher) Processes(agent *models.Agent) (json.RawMessage, error) {
	cmd := command.Processes()
	r := d.Bus.Send(agent.AgentID, cmd.Req, cmd.WaitSecs)
	if r.Offline() {
		return nil, ErrOffline
	}
	return json.RawMessage(r.Raw), nil
}

// KillProcess terminates one process by PID.
func (d *Dispatcher) KillProcess(agent *models.Agent, pid int) error {
	cmd := command.KillProcess(pid)
	return ackOnly(d.Bus.Send(agent.AgentID, cmd.Req, cmd.WaitSecs))
}

// EventLog fetches event-log entries for the trailing window of days.
func (d *Dispatcher) EventLog(agent *models.Agent, logName string, days int) (json.RawMessage, error) {
	cmd := command.EventLog(logName, days)
	r := d.Bus.Send(agent.AgentID, cmd.Req, cmd.WaitSecs)
	if r.Offline() {
		return nil, ErrOffline
	}
	return json.RawMessage(r.Raw), nil
}

// RawCmd runs a shell command and returns its captured output. The run is
// recorded in the agent's history regardless of outcome text.
func (d *Dispatcher) RawCmd(agent *models.Agent, shell, cmdline string, timeout int, username string) (string, error) {
	cmd := command.RawCmd(shell, cmdline, timeout)
	r := d.Bus.Send(agent.AgentID, cmd.Req, cmd.WaitSecs)
	if r.Offline() {
		return "", ErrOffline
	}
	out := r.Text()
	d.recordHistory(agent, models.HistoryCmdRun, fmt.Sprintf("%s: %s", shell, cmdline), username, out)
	return out, nil
}

// Recover attempts to restart an agent subsystem. mesh and tacagent go
// over the bus synchronously; command-mode recoveries are durable records
// the agent picks up on its next check-in, so they never touch the
// transport. A mesh recovery that can't reach the agent is tracked as a
// RecoveryAction; a tacagent one deliberately is not.
func (d *Dispatcher) Recover(agent *models.Agent, mode, cmdline string) (string, error) {
	switch mode {
	case models.RecoveryCommand:
		if strings.TrimSpace(cmdline) == "" {
			return "", ErrEmptyCommand
		}
		ra := models.RecoveryAction{AgentID: agent.ID, Mode: mode, Command: cmdline}
		if err := d.DB.Create(&ra).Error; err != nil {
			return "", fmt.Errorf("dispatch: create recovery action: %w", err)
		}
		return "Recovery will be attempted on the agent's next check-in", nil

	case models.RecoveryMesh, models.RecoveryTacAgent:
		cmd := command.Recover(mode)
		r := d.Bus.Send(agent.AgentID, cmd.Req, cmd.WaitSecs)
		if r.Kind == transport.ReplyOk {
			return fmt.Sprintf("Successfully recovered %s on %s", mode, agent.Hostname), nil
		}
		if mode == models.RecoveryTacAgent {
			return "", ErrOffline
		}
		ra := models.RecoveryAction{AgentID: agent.ID, Mode: mode}
		if err := d.DB.Create(&ra).Error; err != nil {
			return "", fmt.Errorf("dispatch: create recovery action: %w", err)
		}
		return "Recovery will be attempted shortly", nil

	default:
		return "", ErrInvalidMode
	}
}

// RefreshWMI asks the agent to re-collect inventory. Fire-and-forget.
func (d *Dispatcher) RefreshWMI(agent *models.Agent) error {
	if err := d.Bus.Fire(agent.AgentID, command.RefreshWMI()); err != nil {
		return fmt.Errorf("dispatch: wmi refresh %s: %w", agent.Hostname, err)
	}
	return nil
}

// Uninstall removes an agent: tell it to tear itself down, delete the row,
// then reconcile bus principals so the removed credential stops being
// honored immediately.
func (d *Dispatcher) Uninstall(agent *models.Agent) error {
	// Best effort: an offline agent is deleted anyway and the bus
	// reconcile revokes its credential.
	d.Bus.Fire(agent.AgentID, command.Uninstall())

	if err := d.DB.Delete(&models.Agent{}, agent.ID).Error; err != nil {
		return fmt.Errorf("dispatch: delete agent %s: %w", agent.AgentID, err)
	}
	if d.Reconciler != nil {
		if err := d.Reconciler.Reconcile(); err != nil {
			return err
		}
	}
	if d.Notifier != nil {
		d.Notifier.Announce(context.Background(), "Agent removed",
			fmt.Sprintf("%s (%s) was uninstalled", agent.Hostname, agent.AgentID))
	}
	return nil
}

// ackOnly maps a reply for mutating commands that expect a bare
// acknowledgement: ok passes, unreachable is ErrOffline, anything else is
// the agent's own failure text.
func ackOnly(r transport.Reply) error {
	switch {
	case r.Kind == transport.ReplyOk:
		return nil
	case r.Offline():
		return ErrOffline
	default:
		return &DomainError{Text: r.Text()}
	}
}

// recordHistory appends to the agent's command log. History is advisory,
// so create failures are ignored.
func (d *Dispatcher) recordHistory(agent *models.Agent, htype, cmdline, username, results string) {
	h := models.AgentHistory{
		AgentID:  agent.ID,
		Type:     htype,
		Command:  cmdline,
		Username: username,
		Results:  results,
	}
	d.DB.Create(&h)
}
