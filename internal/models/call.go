// Package models defines the data structures shared across the call relay.
package models

import "time"

// Speaker identifies which side of the call produced a transcript line.
type Speaker string

const (
	SpeakerCaller Speaker = "caller"
	SpeakerAgent  Speaker = "agent"
)

// TranscriptEntry is a single line of conversation, in arrival order.
type TranscriptEntry struct {
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp int64   `json:"timestamp"`
}

// TranscriptLine is the live per-line event published while a call is running.
type TranscriptLine struct {
	EventType  string  `json:"eventType"`
	CallSid    string  `json:"callSid"`
	BusinessID string  `json:"businessId"`
	Speaker    Speaker `json:"speaker"`
	Text       string  `json:"text"`
	Timestamp  int64   `json:"timestamp"`
}

// CallCompleted is the end-of-call event published after finalization.
type CallCompleted struct {
	EventType  string            `json:"eventType"`
	CallSid    string            `json:"callSid"`
	BusinessID string            `json:"businessId"`
	Transcript []TranscriptEntry `json:"transcript"`
	Summary    string            `json:"summary"`
	Sentiment  string            `json:"sentiment"`
	EndedAt    int64             `json:"endedAt"`
}

// CallOutcome is what gets persisted to the call log when a call ends.
type CallOutcome struct {
	Transcript []TranscriptEntry
	Summary    string
	Sentiment  string
	EndTime    time.Time
}

// TurnDetection holds the voice-activity-detection settings for a business.
type TurnDetection struct {
	Type              string
	Threshold         float64
	PrefixPaddingMs   int
	SilenceDurationMs int
}

// BusinessContext is the immutable per-call configuration snapshot fetched
// once at session start. Zero values mean "use the protocol default".
type BusinessContext struct {
	BusinessID          string
	Name                string
	Domain              string
	SystemPrompt        string
	Voice               string
	Temperature         float64
	MaxTokens           int
	EnableTools         bool
	EnableTranscription bool
	TranscriptionModel  string
	TurnDetection       TurnDetection
}
