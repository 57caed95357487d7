// Package transport reaches agents over the message bus. Each agent
// subscribes to a subject named by its external agent ID; commands are
// request/reply with a bounded wait, or fire-and-forget publishes.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/droverdev/drover/internal/observability"
	"github.com/nats-io/nats.go"
)

// graceSecs is added to the logical timeout to produce the wire timeout,
// so the bus-level timeout always fires strictly after the logical one and
// callers see the precise timeout reply instead of a generic bus error.
const graceSecs = 2

// Request is the command descriptor sent to an agent.
type Request struct {
	Func             string         `json:"func"`
	Timeout          int            `json:"timeout,omitempty"`
	Payload          map[string]any `json:"payload,omitempty"`
	ScriptArgs       []string       `json:"script_args,omitempty"`
	SchedTaskPayload map[string]any `json:"schedtaskpayload,omitempty"`
}

// Client issues commands to agents. Send blocks for up to secs seconds of
// logical timeout; unreachability comes back as a tagged Reply, never as an
// error. Fire publishes without waiting for any reply.
type Client interface {
	Send(agentID string, req Request, secs int) Reply
	Fire(agentID string, req Request) error
}

// Bus is the NATS-backed Client.
type Bus struct {
	nc *nats.Conn
}

// Connect dials the bus. The connection reconnects indefinitely; individual
// requests fail fast while disconnected.
func Connect(url, user, pass string) (*Bus, error) {
	opts := []nats.Option{
		nats.Name("drover-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}
	if user != "" {
		opts = append(opts, nats.UserInfo(user, pass))
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: connect %s: %w", url, err)
	}
	return &Bus{nc: nc}, nil
}

// Send issues a request to the agent's subject and classifies the result.
func (b *Bus) Send(agentID string, req Request, secs int) Reply {
	observability.CommandsTotal.WithLabelValues(req.Func).Inc()

	data, err := json.Marshal(req)
	if err != nil {
		return count(Reply{Kind: ReplyDown})
	}

	wire := time.Duration(secs+graceSecs) * time.Second
	msg, err := b.nc.Request(agentID, data, wire)
	switch {
	case err == nil:
		return count(Classify(msg.Data))
	case errors.Is(err, nats.ErrTimeout), errors.Is(err, nats.ErrNoResponders):
		return count(Reply{Kind: ReplyTimeout})
	default:
		return count(Reply{Kind: ReplyDown})
	}
}

// Fire publishes a command without waiting for a reply.
func (b *Bus) Fire(agentID string, req Request) error {
	observability.CommandsTotal.WithLabelValues(req.Func).Inc()

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("transport: marshal %s: %w", req.Func, err)
	}
	if err := b.nc.Publish(agentID, data); err != nil {
		return fmt.Errorf("transport: publish %s to %s: %w", req.Func, agentID, err)
	}
	return nil
}

// Close drains the connection.
func (b *Bus) Close() {
	b.nc.Close()
}

func count(r Reply) Reply {
	observability.RepliesTotal.WithLabelValues(r.Kind.String()).Inc()
	return r
}
