// Package app wires the service's collaborators together.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ai-call-relay-service/internal/config"
	"ai-call-relay-service/internal/events"
	"ai-call-relay-service/internal/gateway"
	"ai-call-relay-service/internal/models"
	"ai-call-relay-service/internal/retrieval"
	"ai-call-relay-service/internal/service/call"
	"ai-call-relay-service/internal/service/conversation"
	"ai-call-relay-service/internal/service/tools"
	"ai-call-relay-service/internal/store"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Cfg         *config.Config
	Logger      zerolog.Logger

	Store     store.Store
	Publisher *events.Publisher
	Registry  *call.Registry
	Gateway   *gateway.Gateway
}

// New constructs the application: storage, event publisher, tool executor,
// session registry, and the stream gateway, all from configuration.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	logger := log.With().Str("component", "application").Logger()

	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		TopicCompleted:  cfg.Kafka.TopicCompleted,
		Principal:       cfg.Kafka.Principal,
	})

	var st store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgres(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		st = pg
	} else {
		st = store.NewMemory()
	}

	retriever := retrieval.New(retrieval.Config{
		BaseURL: cfg.Retrieval.BaseURL,
		APIKey:  cfg.Retrieval.APIKey,
		Timeout: cfg.Retrieval.Timeout,
	})

	registry := call.NewRegistry()
	deps := call.Deps{
		Registry:  registry,
		Config:    st,
		CallLog:   st,
		Tools:     tools.New(retriever).WithLimit(cfg.Retrieval.MaxResults),
		Publisher: publisher,
		NewChannel: func(bc *models.BusinessContext) call.AIChannel {
			return conversation.NewChannel(conversation.Config{
				URL:                  cfg.OpenAI.RealtimeURL,
				Model:                cfg.OpenAI.Model,
				APIKey:               cfg.OpenAI.APIKey,
				DialTimeout:          cfg.OpenAI.DialTimeout,
				MaxReconnectAttempts: cfg.Session.MaxReconnectAttempts,
				ReconnectBaseDelay:   cfg.Session.ReconnectBaseDelay,
				ReconnectMaxDelay:    cfg.Session.ReconnectMaxDelay,
			}, bc)
		},
		SetupTimeout: cfg.Session.SetupTimeout,
	}

	a := &Application{
		Cfg:       cfg,
		Logger:    logger,
		Store:     st,
		Publisher: publisher,
		Registry:  registry,
		Gateway: gateway.New(deps, gateway.Config{
			HeartbeatInterval: cfg.Session.HeartbeatInterval,
			FirstFrameGrace:   cfg.Session.FirstFrameGrace,
		}),
	}

	logger.Info().Msg("AI call relay application created")
	return a, nil
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("AI call relay service starting")
	return nil
}

// Shutdown finalizes every live call session so outcomes are persisted, then
// releases external resources.
func (a *Application) Shutdown(ctx context.Context) {
	a.Logger.Info().Int("liveSessions", a.Registry.Count()).Msg("AI call relay service shutting down")

	a.Registry.FinalizeAll(ctx)

	if err := a.Publisher.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Error closing event publisher")
	}
	a.Store.Close()
}
