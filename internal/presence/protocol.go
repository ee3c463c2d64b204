package presence

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Lanyard socket op codes.
const (
	opHello      = 1
	opInitialize = 2
	opHeartbeat  = 3
)

const (
	eventInitState      = "INIT_STATE"
	eventPresenceUpdate = "PRESENCE_UPDATE"
)

type messageKind int

const (
	msgIgnored messageKind = iota
	msgHello
	msgSnapshot
)

// inbound is a classified socket frame. Only the fields relevant to its
// kind are set.
type inbound struct {
	kind              messageKind
	event             string
	heartbeatInterval int64 // ms, hello only
	snapshot          Snapshot
}

type envelope struct {
	Op *int            `json:"op"`
	T  string          `json:"t"`
	D  json.RawMessage `json:"d"`
}

// decodeInbound classifies a frame before any payload field is touched.
// A frame that is not a JSON object, or a presence event whose payload
// cannot be decoded, yields ErrMalformedMessage. Unknown shapes are
// msgIgnored, not errors.
func decodeInbound(data []byte) (inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return inbound{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if env.Op != nil && *env.Op == opHello {
		msg := inbound{kind: msgHello}
		if hasPayload(env.D) {
			var hello struct {
				HeartbeatInterval int64 `json:"heartbeat_interval"`
			}
			if err := json.Unmarshal(env.D, &hello); err == nil && hello.HeartbeatInterval > 0 {
				msg.heartbeatInterval = hello.HeartbeatInterval
			}
		}
		return msg, nil
	}

	switch env.T {
	case eventInitState, eventPresenceUpdate:
		if !hasPayload(env.D) {
			return inbound{kind: msgIgnored, event: env.T}, nil
		}
		snap, err := DecodeSnapshot(env.D)
		if err != nil {
			return inbound{}, fmt.Errorf("%s: %w", env.T, err)
		}
		return inbound{kind: msgSnapshot, event: env.T, snapshot: snap}, nil
	}

	return inbound{kind: msgIgnored, event: env.T}, nil
}

func hasPayload(d json.RawMessage) bool {
	d = bytes.TrimSpace(d)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

type outbound struct {
	Op int `json:"op"`
	D  any `json:"d,omitempty"`
}

func subscribeFrame(subscriberID string) []byte {
	b, _ := json.Marshal(outbound{
		Op: opInitialize,
		D:  map[string]string{"subscribe_to_id": subscriberID},
	})
	return b
}

func heartbeatFrame() []byte {
	b, _ := json.Marshal(outbound{Op: opHeartbeat})
	return b
}
