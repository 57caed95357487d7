// Package command builds the wire payloads for every operation an agent
// can be asked to perform, together with the logical wait each one gets.
package command

import (
	"strconv"

	"github.com/droverdev/drover/internal/transport"
)

// Logical wait times in seconds per command family. The transport layer
// adds its own fixed grace on top of these for the wire timeout.
const (
	pingSecs     = 5
	rebootSecs   = 10
	procsSecs    = 5
	killProcSecs = 15
	recoverSecs  = 10

	// Security logs are typically far larger than the rest, so they get a
	// longer window to enumerate.
	eventLogSecs         = 30
	eventLogSecuritySecs = 180

	// Script runs get one extra second over the shared wire grace so the
	// bus waits caller-timeout+3 while the agent enforces caller-timeout.
	scriptExtraSecs = 1
)

// Command pairs an outgoing request with the seconds the caller should
// block waiting for the reply.
type Command struct {
	Req      transport.Request
	WaitSecs int
}

// Ping checks agent liveness. The agent answers "pong"; any other reply
// means offline.
func Ping() Command {
	return Command{Req: transport.Request{Func: "ping"}, WaitSecs: pingSecs}
}

// RebootNow reboots the agent machine immediately.
func RebootNow() Command {
	return Command{Req: transport.Request{Func: "rebootnow"}, WaitSecs: rebootSecs}
}

// Processes fetches the agent's process list.
func Processes() Command {
	return Command{Req: transport.Request{Func: "procs"}, WaitSecs: procsSecs}
}

// KillProcess terminates a process by PID on the agent.
func KillProcess(pid int) Command {
	return Command{
		Req: transport.Request{
			Func:    "killproc",
			Payload: map[string]any{"pid": pid},
		},
		WaitSecs: killProcSecs,
	}
}

// EventLog fetches entries from a named event log covering the last days.
// Days travels as a string; the agent parses it.
func EventLog(logName string, days int) Command {
	secs := eventLogSecs
	if logName == "Security" {
		secs = eventLogSecuritySecs
	}
	return Command{
		Req: transport.Request{
			Func:    "eventlog",
			Timeout: secs,
			Payload: map[string]any{
				"logname": logName,
				"days":    strconv.Itoa(days),
			},
		},
		WaitSecs: secs,
	}
}

// RawCmd runs a shell command on the agent with a caller-chosen timeout.
func RawCmd(shell, cmd string, timeout int) Command {
	return Command{
		Req: transport.Request{
			Func:    "rawcmd",
			Timeout: timeout,
			Payload: map[string]any{
				"command": cmd,
				"shell":   shell,
			},
		},
		WaitSecs: timeout,
	}
}

// RunScript executes script code under the given shell with pre-resolved
// arguments. The agent enforces timeout; the caller waits slightly longer.
func RunScript(code, shell string, args []string, timeout int) Command {
	return Command{
		Req: transport.Request{
			Func:       "runscript",
			Timeout:    timeout,
			ScriptArgs: args,
			Payload: map[string]any{
				"code":  code,
				"shell": shell,
			},
		},
		WaitSecs: timeout + scriptExtraSecs,
	}
}

// Recover asks the agent to restart one of its subsystems.
func Recover(mode string) Command {
	return Command{
		Req: transport.Request{
			Func:    "recover",
			Payload: map[string]any{"mode": mode},
		},
		WaitSecs: recoverSecs,
	}
}

// AgentUpdate tells the agent to download and install a new version.
// Always fire-and-forget; completion arrives via a later check-in.
func AgentUpdate(url, inno, version string) transport.Request {
	return transport.Request{
		Func: "agentupdate",
		Payload: map[string]any{
			"url":     url,
			"inno":    inno,
			"version": version,
		},
	}
}

// Uninstall tells the agent to remove itself. Fire-and-forget.
func Uninstall() transport.Request {
	return transport.Request{Func: "uninstall"}
}

// RefreshWMI asks the agent to re-collect hardware inventory. Fire-and-forget.
func RefreshWMI() transport.Request {
	return transport.Request{Func: "wmi"}
}
