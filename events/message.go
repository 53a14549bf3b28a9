// Package events maintains the WebSocket push channel to the MIGR8 server:
// one listener goroutine receives analysis events and buffers them for the
// main flow, which drains them after the run.
package events

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the push-channel message variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindProgress
	KindLog
	KindDiff
	KindSubscribeAck
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindLog:
		return "log"
	case KindDiff:
		return "diff"
	case KindSubscribeAck:
		return "subscribe-ack"
	default:
		return "unknown"
	}
}

// Event is one parsed push-channel message. Exactly one variant exists per
// known wire type; everything else decodes to *UnknownEvent so it can still
// be counted without being acted on.
type Event interface {
	Kind() Kind
	// TypeTag returns the raw type discriminator as received on the wire.
	TypeTag() string
}

// ProgressEvent reports analysis progress for a subscribed project.
type ProgressEvent struct {
	Phase          string  `json:"phase"`
	Progress       float64 `json:"progress"`
	FilesProcessed int     `json:"filesProcessed"`
	TotalFiles     int     `json:"totalFiles"`
	CurrentFile    string  `json:"currentFile,omitempty"`
}

func (*ProgressEvent) Kind() Kind      { return KindProgress }
func (*ProgressEvent) TypeTag() string { return "progress" }

// LogEvent relays a server-side log line.
type LogEvent struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (*LogEvent) Kind() Kind      { return KindLog }
func (*LogEvent) TypeTag() string { return "log" }

// DiffEvent announces generated changes for one file. Only the number of
// changes is used; their contents pass through untouched.
type DiffEvent struct {
	File    string            `json:"file"`
	Changes []json.RawMessage `json:"changes"`
}

func (*DiffEvent) Kind() Kind      { return KindDiff }
func (*DiffEvent) TypeTag() string { return "diff" }

// SubscribeAckEvent confirms a subscription request.
type SubscribeAckEvent struct {
	ProjectID string `json:"projectId"`
}

func (*SubscribeAckEvent) Kind() Kind      { return KindSubscribeAck }
func (*SubscribeAckEvent) TypeTag() string { return "subscribe-ack" }

// UnknownEvent preserves a message whose type tag this tool does not know.
// The classifier ignores it; it only shows up in the post-run per-type
// counts.
type UnknownEvent struct {
	Type string
	Data json.RawMessage
}

func (*UnknownEvent) Kind() Kind        { return KindUnknown }
func (e *UnknownEvent) TypeTag() string { return e.Type }

// wireMessage is the outer shape of every push-channel message.
type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode parses one raw push-channel message into its variant. Progress and
// subscribe-ack payloads arrive nested under data; log and diff carry their
// fields at the top level of the message, with a nested data payload accepted
// as a fallback.
func Decode(raw []byte) (Event, error) {
	var wire wireMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	switch wire.Type {
	case "progress":
		ev := &ProgressEvent{}
		if err := decodePayload(wire.Data, ev); err != nil {
			return nil, fmt.Errorf("parse progress payload: %w", err)
		}
		return ev, nil
	case "log":
		ev := &LogEvent{}
		if err := decodePayload(wire.Data, ev); err != nil {
			return nil, fmt.Errorf("parse log payload: %w", err)
		}
		if err := json.Unmarshal(raw, ev); err != nil {
			return nil, fmt.Errorf("parse log payload: %w", err)
		}
		return ev, nil
	case "diff":
		ev := &DiffEvent{}
		if err := decodePayload(wire.Data, ev); err != nil {
			return nil, fmt.Errorf("parse diff payload: %w", err)
		}
		if err := json.Unmarshal(raw, ev); err != nil {
			return nil, fmt.Errorf("parse diff payload: %w", err)
		}
		return ev, nil
	case "subscribe-ack":
		ev := &SubscribeAckEvent{}
		if err := decodePayload(wire.Data, ev); err != nil {
			return nil, fmt.Errorf("parse subscribe-ack payload: %w", err)
		}
		return ev, nil
	default:
		return &UnknownEvent{Type: wire.Type, Data: wire.Data}, nil
	}
}

// decodePayload unmarshals a message payload, treating an absent payload as
// an empty one.
func decodePayload(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// CountByType tallies events by their raw wire tag, for the post-run summary.
func CountByType(evs []Event) map[string]int {
	counts := make(map[string]int, len(evs))
	for _, ev := range evs {
		counts[ev.TypeTag()]++
	}
	return counts
}
