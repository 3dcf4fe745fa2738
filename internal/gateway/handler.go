// Package gateway terminates the telephony media-stream connection and
// drives call session creation, audio relay, and teardown.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-call-relay-service/internal/observability/logging"
	"ai-call-relay-service/internal/observability/metrics"
	"ai-call-relay-service/internal/service/call"
)

// errStreamClosed is returned for outbound writes after the telephony leg
// closed; the frame is dropped, not retried.
var errStreamClosed = errors.New("telephony stream is closed")

// wsStream is the subset of the websocket connection the gateway uses.
// *websocket.Conn satisfies it.
type wsStream interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Config holds gateway liveness settings.
type Config struct {
	// HeartbeatInterval is how often a ping is sent on the telephony leg.
	HeartbeatInterval time.Duration
	// FirstFrameGrace is how long to wait for the first inbound frame before
	// logging a warning. Diagnostic only.
	FirstFrameGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 20 * time.Second
	}
	if c.FirstFrameGrace <= 0 {
		c.FirstFrameGrace = 10 * time.Second
	}
	return c
}

// Gateway accepts telephony streaming connections and binds each one to a
// call session.
type Gateway struct {
	deps     call.Deps
	cfg      Config
	upgrader websocket.Upgrader
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// New creates a gateway over the given session collaborators.
func New(deps call.Deps, cfg Config) *Gateway {
	return &Gateway{
		deps: deps,
		cfg:  cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The telephony provider does not send a browser Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     logging.WithComponent("gateway"),
		metrics: metrics.DefaultMetrics,
	}
}

// HandleStream upgrades the HTTP request to a websocket and serves the
// telephony media-stream protocol on it until the connection closes.
func (g *Gateway) HandleStream(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket upgrade failed")
		return
	}
	g.log.Info().Str("remote", r.RemoteAddr).Msg("Telephony stream connected")
	g.handleConn(r.Context(), ws)
}

// handleConn is the per-connection read loop. A connection error, a stop
// frame, or a setup failure all converge on the session's finalize path.
func (g *Gateway) handleConn(ctx context.Context, ws wsStream) {
	conn := newMediaConn(ws)
	defer conn.shutdown()

	var frames atomic.Int64
	stopLiveness := g.startLiveness(ws, &frames)
	defer stopLiveness()

	var session *call.Session
	defer func() {
		if session != nil {
			session.Finalize(ctx, "stream_closed")
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			g.log.Info().Err(err).Msg("Telephony stream closed")
			return
		}
		frames.Add(1)

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			g.log.Warn().Err(err).Msg("Unparsable telephony frame dropped")
			g.metrics.RecordFrameDropped("unparsable")
			continue
		}

		switch frame.Event {
		case "connected":
			g.log.Debug().Str("protocol", frame.Protocol).Str("version", frame.Version).Msg("Stream handshake")

		case "start":
			if session != nil {
				g.log.Warn().Msg("Duplicate start frame ignored")
				continue
			}
			s, err := g.startSession(ctx, frame.Start, conn)
			if err != nil {
				// Caller configuration error or setup failure: abort this
				// call, keep the gateway serving.
				g.log.Error().Err(err).Msg("Call setup failed")
				return
			}
			session = s

		case "media":
			if session == nil || frame.Media == nil {
				g.metrics.RecordFrameDropped("no_session")
				continue
			}
			session.RelayInboundAudio(frame.Media.Payload)

		case "mark":
			if frame.Mark != nil {
				g.log.Debug().Str("mark", frame.Mark.Name).Msg("Playback mark acknowledged")
			}

		case "stop":
			if session != nil {
				session.Finalize(ctx, "stop")
			}
			// Frames after stop hit a closed session and are dropped there.

		default:
			g.log.Debug().Str("event", frame.Event).Msg("Unknown stream event ignored")
		}
	}
}

func (g *Gateway) startSession(ctx context.Context, start *startFrame, conn *mediaConn) (*call.Session, error) {
	if start == nil {
		return nil, errors.New("start frame has no start payload")
	}
	businessID := start.CustomParameters["businessId"]
	if start.CallSid == "" {
		return nil, errors.New("start frame has no callSid")
	}
	if businessID == "" {
		return nil, errors.New("start frame has no businessId parameter")
	}

	g.log.Info().
		Str("callSid", start.CallSid).
		Str("streamSid", start.StreamSid).
		Str("businessId", businessID).
		Msg("Stream started")

	return call.StartSession(ctx, g.deps, start.CallSid, start.StreamSid, businessID, conn)
}

// startLiveness sends periodic pings and warns if no frame arrives within
// the initial grace window. Returns a stop func.
func (g *Gateway) startLiveness(ws wsStream, frames *atomic.Int64) func() {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		grace := time.NewTimer(g.cfg.FirstFrameGrace)
		defer grace.Stop()
		ticker := time.NewTicker(g.cfg.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-grace.C:
				if frames.Load() == 0 {
					g.log.Warn().Dur("grace", g.cfg.FirstFrameGrace).Msg("No frames received within grace window")
				}
			case <-ticker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					g.log.Debug().Err(err).Msg("Heartbeat ping failed")
					return
				}
			case <-done:
				return
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// mediaConn wraps the telephony leg for outbound audio. It serializes writes
// and drops them once the connection is shut down.
type mediaConn struct {
	mu     sync.Mutex
	ws     wsStream
	closed bool
}

func newMediaConn(ws wsStream) *mediaConn {
	return &mediaConn{ws: ws}
}

// WriteMedia wraps the payload in a media frame addressed to the stream and
// writes it to the telephony leg. Returns errStreamClosed after shutdown.
func (c *mediaConn) WriteMedia(streamSid, payload string) error {
	frame := outboundMediaFrame{
		Event:     "media",
		StreamSid: streamSid,
		Media:     mediaPayload{Payload: payload},
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errStreamClosed
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *mediaConn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.ws.Close()
}
