package transport

import (
	"bytes"
	"encoding/json"
)

// ReplyKind classifies a transport reply. Downstream code branches on the
// kind, never on raw sentinel strings, so legitimate agent text can never
// collide with transport status.
type ReplyKind int

const (
	// ReplyOk means the agent acknowledged and executed the command.
	ReplyOk ReplyKind = iota
	// ReplyTimeout means the agent did not respond within the logical timeout.
	ReplyTimeout
	// ReplyDown means the bus itself was unreachable.
	ReplyDown
	// ReplyData carries a command-specific payload or agent error text.
	ReplyData
)

// String returns the metric label for a reply kind.
func (k ReplyKind) String() string {
	switch k {
	case ReplyOk:
		return "ok"
	case ReplyTimeout:
		return "timeout"
	case ReplyDown:
		return "down"
	default:
		return "data"
	}
}

// Reserved sentinel strings on the wire. Agents reply with a JSON-encoded
// string for acknowledgements; everything else is domain payload.
const (
	sentinelOk       = "ok"
	sentinelTimeout  = "timeout"
	sentinelNatsDown = "natsdown"
)

// Reply is the tagged result of a transport round trip.
type Reply struct {
	Kind ReplyKind
	Raw  []byte // wire payload for ReplyData; empty otherwise
}

// Offline reports whether the reply means the agent is unreachable, without
// distinguishing why. Telemetry keeps the two kinds apart; callers don't
// need to.
func (r Reply) Offline() bool {
	return r.Kind == ReplyTimeout || r.Kind == ReplyDown
}

// Text decodes the payload as a string. JSON-encoded strings are unwrapped;
// anything else is returned verbatim.
func (r Reply) Text() string {
	var s string
	if err := json.Unmarshal(r.Raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(r.Raw))
}

// Decode unmarshals a ReplyData payload into v.
func (r Reply) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

// Classify maps a raw wire payload to a tagged Reply. Exactly three
// JSON-string values are reserved; every other payload is domain data.
func Classify(raw []byte) Reply {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case sentinelOk:
			return Reply{Kind: ReplyOk}
		case sentinelTimeout:
			return Reply{Kind: ReplyTimeout}
		case sentinelNatsDown:
			return Reply{Kind: ReplyDown}
		}
	}
	return Reply{Kind: ReplyData, Raw: raw}
}
