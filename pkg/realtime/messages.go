package realtime

// Outbound protocol messages. The AI side always speaks PCM16; the
// telephony transcoding happens before audio enters this package.

type sessionUpdateMsg struct {
	Type    string         `json:"type"`
	Session sessionPayload `json:"session"`
}

type sessionPayload struct {
	Modalities        []string          `json:"modalities"`
	Instructions      string            `json:"instructions,omitempty"`
	Voice             string            `json:"voice,omitempty"`
	InputAudioFormat  string            `json:"input_audio_format"`
	OutputAudioFormat string            `json:"output_audio_format"`
	TurnDetection     *turnDetection    `json:"turn_detection,omitempty"`
	InputTranscribe   *transcribeConfig `json:"input_audio_transcription,omitempty"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

type transcribeConfig struct {
	Model string `json:"model"`
}

type audioAppendMsg struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type responseCreateMsg struct {
	Type     string          `json:"type"`
	Response responsePayload `json:"response"`
}

type responsePayload struct {
	Instructions string `json:"instructions,omitempty"`
}

func newSessionUpdate(cfg Config) sessionUpdateMsg {
	return sessionUpdateMsg{
		Type: "session.update",
		Session: sessionPayload{
			Modalities:        []string{"text", "audio"},
			Instructions:      cfg.Instructions,
			Voice:             cfg.Voice,
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
			TurnDetection: &turnDetection{
				Type:              "server_vad",
				Threshold:         0.5,
				SilenceDurationMs: 500,
			},
			InputTranscribe: &transcribeConfig{Model: "whisper-1"},
		},
	}
}

func newAudioAppend(b64 string) audioAppendMsg {
	return audioAppendMsg{Type: "input_audio_buffer.append", Audio: b64}
}

func newResponseCreate(instructions string) responseCreateMsg {
	return responseCreateMsg{
		Type:     "response.create",
		Response: responsePayload{Instructions: instructions},
	}
}
