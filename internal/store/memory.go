package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"ai-call-relay-service/internal/models"
	"ai-call-relay-service/internal/observability/metrics"
)

// Memory is a log-only store for running without a database: every business
// id resolves to a canned active business, and call outcomes are logged
// instead of written. Useful with cmd/callsim during development.
type Memory struct {
	mu       sync.Mutex
	outcomes map[string]*models.CallOutcome
	metrics  *metrics.Metrics
}

// NewMemory creates a log-only store.
func NewMemory() *Memory {
	log.Info().Msg("Database not configured, using in-memory store")
	return &Memory{
		outcomes: make(map[string]*models.CallOutcome),
		metrics:  metrics.DefaultMetrics,
	}
}

// GetBusinessContext returns a canned business context for any id.
func (m *Memory) GetBusinessContext(_ context.Context, businessID string) (*models.BusinessContext, error) {
	name := "Demo Business"
	domain := "retail"
	return &models.BusinessContext{
		BusinessID:          businessID,
		Name:                name,
		Domain:              domain,
		SystemPrompt:        BuildSystemPrompt(name, domain, "", ""),
		EnableTools:         true,
		EnableTranscription: true,
	}, nil
}

// PersistCallOutcome records the outcome in memory and logs it.
func (m *Memory) PersistCallOutcome(_ context.Context, callSid string, outcome *models.CallOutcome) error {
	m.mu.Lock()
	m.outcomes[callSid] = outcome
	m.mu.Unlock()

	m.metrics.RecordPersist(nil)
	log.Info().
		Str("callSid", callSid).
		Str("sentiment", outcome.Sentiment).
		Int("transcriptLines", len(outcome.Transcript)).
		Msg("Call outcome recorded (in-memory store)")
	return nil
}

// Outcome returns the recorded outcome for a call, if any.
func (m *Memory) Outcome(callSid string) (*models.CallOutcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outcomes[callSid]
	return o, ok
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() {}
