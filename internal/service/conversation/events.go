package conversation

import "encoding/json"

// EventType discriminates the typed events surfaced by a Channel.
type EventType string

const (
	EventSessionCreated           EventType = "session_created"
	EventSpeechStarted            EventType = "speech_started"
	EventSpeechStopped            EventType = "speech_stopped"
	EventUserTranscript           EventType = "user_transcript"
	EventAssistantTranscriptDelta EventType = "assistant_transcript_delta"
	EventAssistantTranscript      EventType = "assistant_transcript"
	EventAudio                    EventType = "audio"
	EventAudioDone                EventType = "audio_done"
	EventToolCall                 EventType = "tool_call"
	EventResponseDone             EventType = "response_done"
	EventError                    EventType = "error"
	EventRateLimits               EventType = "rate_limit_update"
	EventDisconnected             EventType = "disconnected"
)

// Event is a decoded message from the AI leg. Only the fields relevant to
// its Type are populated.
type Event struct {
	Type       EventType
	SessionID  string
	Transcript string
	Delta      string
	Audio      string // base64 payload
	ToolCall   *ToolCallRequest
	Err        error
}

// ToolCallRequest carries a function invocation requested by the AI leg.
// CallID correlates the eventual result with this request.
type ToolCallRequest struct {
	CallID    string
	Name      string
	Arguments map[string]any
}

// serverFrame is the superset of inbound wire frames, discriminated by type.
type serverFrame struct {
	Type    string `json:"type"`
	Session struct {
		ID string `json:"id"`
	} `json:"session"`
	Transcript string `json:"transcript"`
	Delta      string `json:"delta"`
	Name       string `json:"name"`
	CallID     string `json:"call_id"`
	Arguments  string `json:"arguments"`
	Error      *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeServerFrame translates a wire frame into a typed Event. Unknown
// frame types return ok=false and are ignored for forward compatibility.
func decodeServerFrame(data []byte) (Event, bool) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Event{}, false
	}

	switch frame.Type {
	case "session.created":
		return Event{Type: EventSessionCreated, SessionID: frame.Session.ID}, true
	case "input_audio_buffer.speech_started":
		return Event{Type: EventSpeechStarted}, true
	case "input_audio_buffer.speech_stopped":
		return Event{Type: EventSpeechStopped}, true
	case "conversation.item.input_audio_transcription.completed":
		return Event{Type: EventUserTranscript, Transcript: frame.Transcript}, true
	case "response.audio_transcript.delta":
		return Event{Type: EventAssistantTranscriptDelta, Delta: frame.Delta}, true
	case "response.audio_transcript.done":
		return Event{Type: EventAssistantTranscript, Transcript: frame.Transcript}, true
	case "response.audio.delta":
		return Event{Type: EventAudio, Audio: frame.Delta}, true
	case "response.audio.done":
		return Event{Type: EventAudioDone}, true
	case "response.function_call_arguments.done":
		args := map[string]any{}
		if frame.Arguments != "" {
			// Malformed arguments still produce a tool call; the executor
			// reports the missing query back to the model.
			_ = json.Unmarshal([]byte(frame.Arguments), &args)
		}
		return Event{Type: EventToolCall, ToolCall: &ToolCallRequest{
			CallID:    frame.CallID,
			Name:      frame.Name,
			Arguments: args,
		}}, true
	case "response.done":
		return Event{Type: EventResponseDone}, true
	case "error":
		ev := Event{Type: EventError}
		if frame.Error != nil {
			ev.Err = &APIError{Code: frame.Error.Code, Message: frame.Error.Message}
		}
		return ev, true
	case "rate_limits.updated":
		return Event{Type: EventRateLimits}, true
	default:
		return Event{}, false
	}
}

// APIError is an error reported by the AI leg inside the protocol.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
