package conversation

import "ai-call-relay-service/internal/models"

// Protocol defaults applied when the business context leaves a field unset.
const (
	DefaultVoice              = "alloy"
	DefaultTemperature        = 0.8
	DefaultMaxTokens          = 4096
	DefaultTranscriptionModel = "whisper-1"
	DefaultTurnDetectionType  = "server_vad"
	DefaultVADThreshold       = 0.5
	DefaultVADPrefixPaddingMs = 300
	DefaultVADSilenceMs       = 500

	audioFormatG711Ulaw = "g711_ulaw"
)

type sessionUpdate struct {
	Type    string         `json:"type"`
	Session sessionPayload `json:"session"`
}

type sessionPayload struct {
	Modalities              []string             `json:"modalities"`
	Instructions            string               `json:"instructions"`
	Voice                   string               `json:"voice"`
	InputAudioFormat        string               `json:"input_audio_format"`
	OutputAudioFormat       string               `json:"output_audio_format"`
	Temperature             float64              `json:"temperature"`
	MaxResponseOutputTokens int                  `json:"max_response_output_tokens"`
	InputAudioTranscription *transcriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *turnDetection       `json:"turn_detection,omitempty"`
	Tools                   []toolDefinition     `json:"tools,omitempty"`
	ToolChoice              string               `json:"tool_choice,omitempty"`
}

type transcriptionConfig struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

type toolDefinition struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  toolParameters `json:"parameters"`
}

type toolParameters struct {
	Type       string                  `json:"type"`
	Properties map[string]toolProperty `json:"properties"`
	Required   []string                `json:"required"`
}

type toolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// buildSessionUpdate constructs the configuration handshake sent once per
// successful connect, applying protocol defaults for unset fields.
func buildSessionUpdate(bc *models.BusinessContext) sessionUpdate {
	session := sessionPayload{
		Modalities:              []string{"text", "audio"},
		Instructions:            bc.SystemPrompt,
		Voice:                   orDefault(bc.Voice, DefaultVoice),
		InputAudioFormat:        audioFormatG711Ulaw,
		OutputAudioFormat:       audioFormatG711Ulaw,
		Temperature:             orDefaultFloat(bc.Temperature, DefaultTemperature),
		MaxResponseOutputTokens: orDefaultInt(bc.MaxTokens, DefaultMaxTokens),
	}

	if bc.EnableTranscription {
		session.InputAudioTranscription = &transcriptionConfig{
			Model: orDefault(bc.TranscriptionModel, DefaultTranscriptionModel),
		}
	}

	session.TurnDetection = &turnDetection{
		Type:              orDefault(bc.TurnDetection.Type, DefaultTurnDetectionType),
		Threshold:         orDefaultFloat(bc.TurnDetection.Threshold, DefaultVADThreshold),
		PrefixPaddingMs:   orDefaultInt(bc.TurnDetection.PrefixPaddingMs, DefaultVADPrefixPaddingMs),
		SilenceDurationMs: orDefaultInt(bc.TurnDetection.SilenceDurationMs, DefaultVADSilenceMs),
	}

	if bc.EnableTools {
		session.Tools = []toolDefinition{
			{
				Type:        "function",
				Name:        "query_knowledge_base",
				Description: "Search the knowledge base for information about the business, products, services, pricing, hours, policies, etc.",
				Parameters: toolParameters{
					Type: "object",
					Properties: map[string]toolProperty{
						"query": {
							Type:        "string",
							Description: "The search query to find relevant information",
						},
					},
					Required: []string{"query"},
				},
			},
		}
		session.ToolChoice = "auto"
	}

	return sessionUpdate{Type: "session.update", Session: session}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Outbound control frames.

type audioAppendFrame struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type itemCreateFrame struct {
	Type string   `json:"type"`
	Item itemBody `json:"item"`
}

type itemBody struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
	Content []contentPart `json:"content,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type controlFrame struct {
	Type string `json:"type"`
}
