package realtime

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cast"
)

// EventKind is the closed set of inbound protocol events the session
// understands. Anything else maps to KindUnrecognized and is handled in
// exactly one place.
type EventKind int

const (
	KindUnrecognized EventKind = iota
	KindSessionCreated
	KindSessionUpdated
	KindResponseCreated
	KindAudioDelta
	KindAudioTranscriptDelta
	KindTextDelta
	KindInputTranscriptionCompleted
	KindSpeechStarted
	KindSpeechStopped
	KindResponseDone
	KindError
)

// Event is one parsed inbound message from the AI backend.
type Event struct {
	Kind       EventKind
	Type       string
	ResponseID string
	Delta      string // text fragment or base64 audio, depending on kind
	Transcript string
	Payload    map[string]any // full payload, kept for response.done and error
}

// ParseEvent decodes an inbound frame into the closed event union.
// A frame that is not valid JSON is a protocol parse error; a valid frame
// with an unknown type is merely unrecognized.
func ParseEvent(data []byte) (Event, error) {
	var raw map[string]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("malformed event: %w", err)
	}

	ev := Event{
		Type:    cast.ToString(raw["type"]),
		Payload: raw,
	}

	switch ev.Type {
	case "session.created":
		ev.Kind = KindSessionCreated
	case "session.updated":
		ev.Kind = KindSessionUpdated
	case "response.created":
		ev.Kind = KindResponseCreated
		ev.ResponseID = responseID(raw)
	case "response.audio.delta":
		ev.Kind = KindAudioDelta
		ev.ResponseID = cast.ToString(raw["response_id"])
		ev.Delta = cast.ToString(raw["delta"])
	case "response.audio_transcript.delta":
		ev.Kind = KindAudioTranscriptDelta
		ev.ResponseID = cast.ToString(raw["response_id"])
		ev.Delta = cast.ToString(raw["delta"])
	case "response.output_text.delta", "response.text.delta":
		ev.Kind = KindTextDelta
		ev.ResponseID = cast.ToString(raw["response_id"])
		ev.Delta = cast.ToString(raw["delta"])
	case "conversation.item.input_audio_transcription.completed":
		ev.Kind = KindInputTranscriptionCompleted
		ev.Transcript = cast.ToString(raw["transcript"])
	case "input_audio_buffer.speech_started":
		ev.Kind = KindSpeechStarted
	case "input_audio_buffer.speech_stopped":
		ev.Kind = KindSpeechStopped
	case "response.done":
		ev.Kind = KindResponseDone
		ev.ResponseID = responseID(raw)
	case "error":
		ev.Kind = KindError
	default:
		ev.Kind = KindUnrecognized
	}
	return ev, nil
}

func responseID(raw map[string]any) string {
	if id := cast.ToString(raw["response_id"]); id != "" {
		return id
	}
	resp := cast.ToStringMap(raw["response"])
	return cast.ToString(resp["id"])
}
