package call

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-call-relay-service/internal/models"
	"ai-call-relay-service/internal/observability/logging"
	"ai-call-relay-service/internal/observability/metrics"
	"ai-call-relay-service/internal/service/conversation"
	"ai-call-relay-service/internal/service/tools"
	"ai-call-relay-service/internal/store"
)

// AIChannel is the conversation leg as seen by a session.
// *conversation.Channel satisfies it; tests substitute a fake.
type AIChannel interface {
	Open(ctx context.Context) error
	AppendAudio(payload string) error
	SendToolResult(callID, output string) error
	CreateResponse() error
	Interrupt() error
	Close()
	Events() <-chan conversation.Event
}

// ToolRunner dispatches tool calls requested by the AI leg.
type ToolRunner interface {
	Execute(ctx context.Context, name string, args map[string]any, businessID string) tools.Result
}

// MediaWriter carries audio back to the telephony leg, addressed by stream SID.
type MediaWriter interface {
	WriteMedia(streamSid, payload string) error
}

// EventPublisher emits live transcript lines and the completed-call outcome.
type EventPublisher interface {
	PublishTranscriptLine(ctx context.Context, key string, event any) error
	PublishCompleted(ctx context.Context, key string, event any) error
}

// Deps bundles the collaborators shared by all sessions.
type Deps struct {
	Registry   *Registry
	Config     store.ConfigStore
	CallLog    store.CallLogStore
	Tools      ToolRunner
	Publisher  EventPublisher
	NewChannel func(bc *models.BusinessContext) AIChannel

	// SetupTimeout bounds how long a session may sit in INITIALIZING before
	// it is finalized as failed.
	SetupTimeout time.Duration
}

// Finalize reasons.
const (
	reasonStop        = "stop"
	reasonStreamClose = "stream_closed"
	reasonChannelDrop = "channel_dropped"
	reasonSetupFailed = "setup_failed"
	reasonShutdown    = "shutdown"
)

// Session binds one telephony call to one conversation channel. It is the
// sole mutator of its transcript; the gateway handler and the channel's
// dispatch loop both call in through its serialized entry points.
type Session struct {
	callSid   string
	streamSid string
	business  *models.BusinessContext

	lifecycle *Lifecycle
	deps      Deps
	channel   AIChannel
	media     MediaWriter

	mu         sync.Mutex
	transcript []models.TranscriptEntry

	startTime    time.Time
	disconnected bool // set by the dispatch loop on a terminal channel drop

	log     zerolog.Logger
	metrics *metrics.Metrics
}

// StartSession fetches the business context, registers the session, opens
// the conversation channel, and starts the event dispatch loop. The session
// is ACTIVE on return. Errors abort this session only; the caller decides
// what to do with the telephony connection.
func StartSession(ctx context.Context, deps Deps, callSid, streamSid, businessID string, media MediaWriter) (*Session, error) {
	log := logging.WithStream(callSid, streamSid, businessID)

	// One timeout bounds the whole setup: business lookup plus channel open.
	setupCtx := ctx
	if deps.SetupTimeout > 0 {
		var cancel context.CancelFunc
		setupCtx, cancel = context.WithTimeout(ctx, deps.SetupTimeout)
		defer cancel()
	}

	bc, err := deps.Config.GetBusinessContext(setupCtx, businessID)
	if err != nil {
		return nil, fmt.Errorf("business context: %w", err)
	}

	s := &Session{
		callSid:   callSid,
		streamSid: streamSid,
		business:  bc,
		lifecycle: NewLifecycle(callSid),
		deps:      deps,
		media:     media,
		startTime: time.Now(),
		log:       log,
		metrics:   metrics.DefaultMetrics,
	}
	s.channel = deps.NewChannel(bc)

	if err := deps.Registry.Register(s); err != nil {
		return nil, err
	}
	s.metrics.RecordCallStart()

	if err := s.channel.Open(setupCtx); err != nil {
		s.Finalize(ctx, reasonSetupFailed)
		return nil, err
	}

	if !s.lifecycle.Activate() {
		// Finalize raced setup; the channel is already being torn down.
		return nil, fmt.Errorf("session %s finalized during setup", callSid)
	}

	s.log.Info().Str("business", bc.Name).Msg("Call session active")

	go s.dispatchLoop()
	return s, nil
}

// CallSid returns the telephony call identifier.
func (s *Session) CallSid() string { return s.callSid }

// StreamSid returns the telephony stream identifier.
func (s *Session) StreamSid() string { return s.streamSid }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.lifecycle.State() }

// Transcript returns a copy of the transcript accumulated so far.
func (s *Session) Transcript() []models.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// RelayInboundAudio forwards one telephony media payload to the AI leg.
// Valid only while ACTIVE; out-of-state frames are dropped, never queued.
func (s *Session) RelayInboundAudio(payload string) {
	if !s.lifecycle.IsActive() {
		s.metrics.RecordFrameDropped("session_inactive")
		return
	}
	if err := s.channel.AppendAudio(payload); err != nil {
		s.metrics.RecordFrameDropped("channel_not_open")
		s.log.Warn().Err(err).Msg("Inbound audio dropped")
		return
	}
	s.metrics.RecordFrameInbound()
}

// dispatchLoop is the single consumer of the channel's event stream. It exits
// when the stream closes (explicit teardown or terminal drop) and funnels
// into Finalize, which is a no-op if teardown already ran.
func (s *Session) dispatchLoop() {
	for ev := range s.channel.Events() {
		s.handleEvent(ev)
	}

	reason := reasonStreamClose
	if s.disconnected {
		reason = reasonChannelDrop
	}
	s.Finalize(context.Background(), reason)
}

func (s *Session) handleEvent(ev conversation.Event) {
	switch ev.Type {
	case conversation.EventSessionCreated:
		s.log.Info().Str("sessionId", ev.SessionID).Msg("AI session created")

	case conversation.EventSpeechStarted:
		// Caller barge-in: cancel the in-flight response so the model listens.
		if err := s.channel.Interrupt(); err != nil {
			s.log.Warn().Err(err).Msg("Interrupt failed")
		}

	case conversation.EventSpeechStopped:
		s.log.Debug().Msg("Caller speech stopped")

	case conversation.EventUserTranscript:
		s.appendTranscript(models.SpeakerCaller, ev.Transcript)

	case conversation.EventAssistantTranscriptDelta:
		// Deltas are progress only; the transcript records completed lines.

	case conversation.EventAssistantTranscript:
		s.appendTranscript(models.SpeakerAgent, ev.Transcript)

	case conversation.EventAudio:
		if err := s.media.WriteMedia(s.streamSid, ev.Audio); err != nil {
			s.metrics.RecordFrameDropped("telephony_write")
			s.log.Warn().Err(err).Msg("Outbound audio dropped")
			return
		}
		s.metrics.RecordFrameOutbound()

	case conversation.EventAudioDone:
		s.log.Debug().Msg("AI audio response complete")

	case conversation.EventToolCall:
		s.handleToolCall(ev.ToolCall)

	case conversation.EventResponseDone:
		s.log.Debug().Msg("AI response complete")

	case conversation.EventError:
		s.log.Warn().Err(ev.Err).Msg("AI channel reported error")

	case conversation.EventRateLimits:
		s.log.Debug().Msg("Rate limit update")

	case conversation.EventDisconnected:
		s.disconnected = true
		s.log.Error().Err(ev.Err).Msg("AI channel dropped, reconnect exhausted")
	}
}

// handleToolCall executes the requested tool and returns its result to the
// AI leg. The result is always sent, and always before the response trigger.
func (s *Session) handleToolCall(tc *conversation.ToolCallRequest) {
	if tc == nil {
		return
	}
	s.log.Info().Str("tool", tc.Name).Str("toolCallId", tc.CallID).Msg("Tool call requested")

	result := s.deps.Tools.Execute(context.Background(), tc.Name, tc.Arguments, s.business.BusinessID)

	output, err := json.Marshal(result)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal tool result")
		return
	}
	if err := s.channel.SendToolResult(tc.CallID, string(output)); err != nil {
		s.log.Warn().Err(err).Msg("Failed to send tool result")
		return
	}
	if err := s.channel.CreateResponse(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to trigger response after tool call")
	}
}

func (s *Session) appendTranscript(speaker models.Speaker, text string) {
	if text == "" {
		return
	}
	now := time.Now().UnixMilli()

	s.mu.Lock()
	s.transcript = append(s.transcript, models.TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: now,
	})
	s.mu.Unlock()

	s.metrics.RecordTranscriptLine(string(speaker))
	s.log.Debug().Str("speaker", string(speaker)).Str("text", text).Msg("Transcript line")

	if s.deps.Publisher != nil {
		line := models.TranscriptLine{
			EventType:  "call.transcript",
			CallSid:    s.callSid,
			BusinessID: s.business.BusinessID,
			Speaker:    speaker,
			Text:       text,
			Timestamp:  now,
		}
		if err := s.deps.Publisher.PublishTranscriptLine(context.Background(), s.callSid, line); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish transcript line")
		}
	}
}

// Finalize tears the session down exactly once: computes and persists the
// call outcome, publishes the completed event, closes the AI leg, and
// removes the session from the registry. Persistence failure is logged, not
// propagated; local cleanup always completes.
func (s *Session) Finalize(ctx context.Context, reason string) {
	if !s.lifecycle.BeginFinalize() {
		return
	}
	s.log.Info().Str("reason", reason).Msg("Finalizing call session")

	transcript := s.Transcript()
	now := time.Now()
	outcome := &models.CallOutcome{
		Transcript: transcript,
		Summary:    Summarize(transcript),
		Sentiment:  ScoreSentiment(transcript),
		EndTime:    now,
	}

	// The store instruments persistence attempts itself.
	err := s.deps.CallLog.PersistCallOutcome(ctx, s.callSid, outcome)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to persist call outcome")
	}

	if s.deps.Publisher != nil {
		completed := models.CallCompleted{
			EventType:  "call.completed",
			CallSid:    s.callSid,
			BusinessID: s.business.BusinessID,
			Transcript: transcript,
			Summary:    outcome.Summary,
			Sentiment:  outcome.Sentiment,
			EndedAt:    now.UnixMilli(),
		}
		if err := s.deps.Publisher.PublishCompleted(ctx, s.callSid, completed); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish completed event")
		}
	}

	s.channel.Close()
	s.deps.Registry.Remove(s.callSid)
	s.lifecycle.Close()

	success := reason != reasonSetupFailed && reason != reasonChannelDrop
	s.metrics.RecordCallEnd(success, now.Sub(s.startTime).Seconds())
	s.log.Info().
		Str("sentiment", outcome.Sentiment).
		Int("transcriptLines", len(transcript)).
		Dur("duration", now.Sub(s.startTime)).
		Msg("Call session closed")
}
