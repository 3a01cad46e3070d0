// Package telephony decodes the media-stream protocol spoken by the
// telephony endpoint and drives one ingress state machine per call.
package telephony

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// EventKind is the closed set of inbound media-stream events.
type EventKind int

const (
	KindUnrecognized EventKind = iota
	KindConnected
	KindStart
	KindMedia
	KindStop
)

// MediaEvent is one parsed frame from the telephony transport.
type MediaEvent struct {
	Kind      EventKind
	StreamID  string
	CallID    string
	Params    map[string]string // custom parameters carried on start
	Payload   string            // base64 companded audio on media
	EventName string
}

type wireEvent struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid"`
	Start     *wireStart    `json:"start"`
	Media     *wirePayload  `json:"media"`
	Stop      *wireStopInfo `json:"stop"`
}

type wireStart struct {
	StreamSID        string            `json:"streamSid"`
	CallSID          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

type wirePayload struct {
	Payload string `json:"payload"`
}

type wireStopInfo struct {
	CallSID string `json:"callSid"`
}

// ParseMediaEvent decodes one inbound frame into the closed event union.
func ParseMediaEvent(data []byte) (MediaEvent, error) {
	var raw wireEvent
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return MediaEvent{}, fmt.Errorf("malformed media event: %w", err)
	}

	ev := MediaEvent{EventName: raw.Event, StreamID: raw.StreamSID}
	switch raw.Event {
	case "connected":
		ev.Kind = KindConnected
	case "start":
		ev.Kind = KindStart
		if raw.Start != nil {
			if raw.Start.StreamSID != "" {
				ev.StreamID = raw.Start.StreamSID
			}
			ev.CallID = raw.Start.CallSID
			ev.Params = raw.Start.CustomParameters
		}
	case "media":
		ev.Kind = KindMedia
		if raw.Media != nil {
			ev.Payload = raw.Media.Payload
		}
	case "stop":
		ev.Kind = KindStop
		if raw.Stop != nil {
			ev.CallID = raw.Stop.CallSID
		}
	default:
		ev.Kind = KindUnrecognized
	}
	return ev, nil
}
