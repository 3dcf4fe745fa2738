package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"ai-call-relay-service/internal/models"
	"ai-call-relay-service/internal/observability/metrics"
)

// Postgres implements Store against the admin application's database.
// The schema (businesses, business_configurations, call_logs) is owned by
// the admin application; this service only reads configuration and updates
// call logs.
type Postgres struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool, metrics: metrics.DefaultMetrics}, nil
}

// GetBusinessContext loads the business row and its configuration entries,
// assembling the immutable per-call snapshot.
func (p *Postgres) GetBusinessContext(ctx context.Context, businessID string) (*models.BusinessContext, error) {
	var name, domain, status string
	err := p.pool.QueryRow(ctx,
		`SELECT name, domain, status FROM businesses WHERE id = $1`,
		businessID,
	).Scan(&name, &domain, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBusinessNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query business: %w", err)
	}
	if status != "active" {
		return nil, ErrBusinessInactive
	}

	values, err := p.loadConfigValues(ctx, businessID)
	if err != nil {
		return nil, err
	}

	bc := &models.BusinessContext{
		BusinessID:          businessID,
		Name:                name,
		Domain:              domain,
		SystemPrompt:        BuildSystemPrompt(name, domain, values[configKeyPersonality], values[configKeyGreeting]),
		Voice:               values[configKeyVoice],
		EnableTools:         boolValue(values, "enable_function_calls", true),
		EnableTranscription: boolValue(values, "enable_transcription", true),
		TranscriptionModel:  values["transcription_model"],
	}
	if v, ok := floatValue(values, "temperature"); ok {
		bc.Temperature = v
	}
	if v, ok := intValue(values, "max_tokens"); ok {
		bc.MaxTokens = v
	}
	bc.TurnDetection = models.TurnDetection{
		Type:              values["turn_detection_type"],
		SilenceDurationMs: intValueOr(values, "vad_silence_duration", 0),
		PrefixPaddingMs:   intValueOr(values, "vad_prefix_padding", 0),
	}
	if v, ok := floatValue(values, "vad_threshold"); ok {
		bc.TurnDetection.Threshold = v
	}
	return bc, nil
}

func (p *Postgres) loadConfigValues(ctx context.Context, businessID string) (map[string]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key, value FROM business_configurations WHERE business_id = $1`,
		businessID,
	)
	if err != nil {
		return nil, fmt.Errorf("query configurations: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan configuration: %w", err)
		}
		values[key] = value
	}
	return values, rows.Err()
}

// PersistCallOutcome writes transcript, summary and sentiment to the call
// log row created by the admin application when the call was placed.
func (p *Postgres) PersistCallOutcome(ctx context.Context, callSid string, outcome *models.CallOutcome) error {
	transcript, err := json.Marshal(outcome.Transcript)
	if err != nil {
		p.metrics.RecordPersist(err)
		return fmt.Errorf("marshal transcript: %w", err)
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE call_logs
		 SET transcript = $2, summary = $3, sentiment = $4, status = 'completed', ended_at = $5, updated_at = now()
		 WHERE call_sid = $1`,
		callSid, transcript, outcome.Summary, outcome.Sentiment, outcome.EndTime,
	)
	if err != nil {
		p.metrics.RecordPersist(err)
		return fmt.Errorf("update call log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// No row for this call; insert so the outcome is not lost.
		_, err = p.pool.Exec(ctx,
			`INSERT INTO call_logs (call_sid, transcript, summary, sentiment, status, ended_at)
			 VALUES ($1, $2, $3, $4, 'completed', $5)`,
			callSid, transcript, outcome.Summary, outcome.Sentiment, outcome.EndTime,
		)
		if err != nil {
			p.metrics.RecordPersist(err)
			return fmt.Errorf("insert call log: %w", err)
		}
	}

	p.metrics.RecordPersist(nil)
	log.Info().Str("callSid", callSid).Str("sentiment", outcome.Sentiment).Msg("Call outcome persisted")
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func boolValue(values map[string]string, key string, def bool) bool {
	v, ok := values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func floatValue(values map[string]string, key string) (float64, bool) {
	v, ok := values[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func intValue(values map[string]string, key string) (int, bool) {
	v, ok := values[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func intValueOr(values map[string]string, key string, def int) int {
	if n, ok := intValue(values, key); ok {
		return n
	}
	return def
}
