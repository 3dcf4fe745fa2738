// Package conversation owns the streaming connection to the realtime AI
// endpoint: connect, configuration handshake, typed inbound events, outbound
// audio/text/control frames, and bounded reconnect.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-call-relay-service/internal/models"
	"ai-call-relay-service/internal/observability/logging"
	"ai-call-relay-service/internal/observability/metrics"
)

// State is the connection state of a Channel.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

var (
	// ErrNotOpen is returned for sends attempted while the channel is not open.
	ErrNotOpen = errors.New("conversation channel is not open")
	// ErrConnectFailed is returned when the first connect attempt fails.
	ErrConnectFailed = errors.New("conversation channel connect failed")
	// ErrAlreadyOpened is returned when Open is called twice.
	ErrAlreadyOpened = errors.New("conversation channel already opened")
)

// Conn is the subset of the websocket connection the channel uses.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer establishes the underlying connection. Replaceable in tests.
type Dialer func(ctx context.Context) (Conn, error)

// Config holds channel connection parameters.
type Config struct {
	URL                  string
	Model                string
	APIKey               string
	DialTimeout          time.Duration
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 3
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = time.Second
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = 10 * time.Second
	}
	return c
}

// Channel is one AI-leg connection, exclusively owned by one call session.
type Channel struct {
	cfg      Config
	business *models.BusinessContext
	dial     Dialer

	mu sync.Mutex // guards ws writes and swaps
	ws Conn

	state      atomic.Int32
	reconnects int // touched only by the read loop

	events     chan Event
	eventsOnce sync.Once
	done       chan struct{}
	closeOnce  sync.Once

	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewChannel creates an unconnected channel for the given business context.
func NewChannel(cfg Config, bc *models.BusinessContext) *Channel {
	c := &Channel{
		cfg:      cfg.withDefaults(),
		business: bc,
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
		log:      logging.WithComponent("conversation"),
		metrics:  metrics.DefaultMetrics,
	}
	c.dial = c.dialRealtime
	return c
}

// SetDialer replaces the connection dialer. Must be called before Open.
func (c *Channel) SetDialer(d Dialer) {
	c.dial = d
}

func (c *Channel) dialRealtime(ctx context.Context) (Conn, error) {
	url := c.cfg.URL + "?model=" + c.cfg.Model

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// State returns the current connection state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

// Events returns the typed inbound event stream. The channel is closed when
// the connection terminates, after Close or a terminal disconnect.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Open establishes the connection and sends the configuration handshake.
// A failure here is surfaced to the caller; automatic reconnect only covers
// drops after a successful open.
func (c *Channel) Open(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyOpened
	}

	ws, err := c.dial(ctx)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		c.metrics.ChannelConnectErrors.Inc()
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
	c.state.Store(int32(StateOpen))
	c.reconnects = 0
	c.metrics.ChannelConnects.Inc()

	if err := c.sendHandshake(); err != nil {
		c.state.Store(int32(StateDisconnected))
		ws.Close()
		return fmt.Errorf("%w: handshake: %v", ErrConnectFailed, err)
	}
	c.log.Info().Msg("Conversation channel open")

	go c.readLoop(ws)
	return nil
}

func (c *Channel) sendHandshake() error {
	return c.sendJSON(buildSessionUpdate(c.business))
}

// AppendAudio sends a base64 audio chunk to the input buffer.
func (c *Channel) AppendAudio(payload string) error {
	if c.State() != StateOpen {
		c.log.Warn().Stringer("state", c.State()).Msg("Audio dropped, channel not open")
		return ErrNotOpen
	}
	return c.sendJSON(audioAppendFrame{Type: "input_audio_buffer.append", Audio: payload})
}

// SendText submits a user text item and triggers response generation.
func (c *Channel) SendText(text string) error {
	if c.State() != StateOpen {
		return ErrNotOpen
	}
	err := c.sendJSON(itemCreateFrame{
		Type: "conversation.item.create",
		Item: itemBody{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: text}},
		},
	})
	if err != nil {
		return err
	}
	return c.CreateResponse()
}

// SendToolResult returns a tool call's serialized output, correlated by callID.
func (c *Channel) SendToolResult(callID, output string) error {
	return c.sendJSON(itemCreateFrame{
		Type: "conversation.item.create",
		Item: itemBody{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	})
}

// CreateResponse asks the model to generate its next response.
func (c *Channel) CreateResponse() error {
	return c.sendJSON(controlFrame{Type: "response.create"})
}

// Interrupt cancels the in-flight response (caller barge-in).
func (c *Channel) Interrupt() error {
	return c.sendJSON(controlFrame{Type: "response.cancel"})
}

func (c *Channel) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return ErrNotOpen
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close tears the channel down. Idempotent. No reconnect is attempted after
// Close, and the event stream is closed so subscribers are released.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		close(c.done)

		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()

		if ws != nil {
			ws.Close()
		} else {
			// Never connected; the read loop will not close the stream for us.
			c.finish()
		}
		c.log.Info().Msg("Conversation channel closed")
	})
}

func (c *Channel) finish() {
	c.eventsOnce.Do(func() {
		close(c.events)
	})
}

func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Channel) readLoop(ws Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				c.state.Store(int32(StateClosing))
				c.finish()
				return
			default:
			}

			c.state.Store(int32(StateDisconnected))
			c.log.Warn().Err(err).Msg("Conversation channel dropped")

			next := c.reconnect()
			if next == nil {
				c.emit(Event{Type: EventDisconnected, Err: err})
				c.finish()
				return
			}
			ws = next
			continue
		}

		if ev, ok := decodeServerFrame(data); ok {
			c.emit(ev)
		}
	}
}

// reconnect re-dials with exponential backoff after an unexpected drop.
// Returns the new connection, or nil when the attempt budget is exhausted
// or the channel is closing.
func (c *Channel) reconnect() Conn {
	for c.reconnects < c.cfg.MaxReconnectAttempts {
		c.reconnects++
		c.metrics.ChannelReconnects.Inc()

		delay := c.cfg.ReconnectBaseDelay << (c.reconnects - 1)
		if delay > c.cfg.ReconnectMaxDelay {
			delay = c.cfg.ReconnectMaxDelay
		}
		c.log.Info().
			Int("attempt", c.reconnects).
			Int("maxAttempts", c.cfg.MaxReconnectAttempts).
			Dur("delay", delay).
			Msg("Reconnecting conversation channel")

		select {
		case <-time.After(delay):
		case <-c.done:
			return nil
		}

		ws, err := c.dialUnlessClosed()
		if err != nil {
			c.metrics.ChannelConnectErrors.Inc()
			c.log.Warn().Err(err).Int("attempt", c.reconnects).Msg("Reconnect failed")
			continue
		}
		if ws == nil {
			return nil
		}

		if err := c.sendHandshake(); err != nil {
			c.log.Warn().Err(err).Msg("Handshake failed after reconnect")
			ws.Close()
			c.state.Store(int32(StateDisconnected))
			continue
		}
		return ws
	}

	c.metrics.ChannelDropsTerminal.Inc()
	c.log.Error().Int("attempts", c.reconnects).Msg("Max reconnect attempts reached")
	return nil
}

// dialUnlessClosed dials with a context that is cancelled when the channel
// closes, and discards a connection that completes after Close has started.
// Returns (nil, nil) when the channel is closing.
func (c *Channel) dialUnlessClosed() (Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	ws, err := c.dial(ctx)
	cancel()
	if err != nil {
		select {
		case <-c.done:
			return nil, nil
		default:
		}
		return nil, err
	}

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		ws.Close()
		return nil, nil
	default:
		c.ws = ws
		c.state.Store(int32(StateOpen))
	}
	c.mu.Unlock()
	return ws, nil
}
