// Package notify delivers operational notices and routed script output to
// external channels (email, Slack, Discord). Delivery is best-effort:
// failures are logged, never surfaced to the request that triggered them.
package notify

import (
	"context"
	"log"
)

// Notice is one message to deliver.
type Notice struct {
	Subject    string
	Body       string
	Recipients []string // adapter-specific; empty means the adapter default
}

// Adapter is a single delivery channel.
type Adapter interface {
	Name() string
	Send(ctx context.Context, n Notice) error
}

// Notifier fans a notice out to every configured adapter.
type Notifier struct {
	adapters []Adapter
}

// New builds a Notifier over the given adapters.
func New(adapters ...Adapter) *Notifier {
	return &Notifier{adapters: adapters}
}

// Announce sends a notice to every adapter.
func (n *Notifier) Announce(ctx context.Context, subject, body string) {
	for _, a := range n.adapters {
		if err := a.Send(ctx, Notice{Subject: subject, Body: body}); err != nil {
			log.Printf("notify: %s: %v", a.Name(), err)
		}
	}
}
