// Package tools executes function calls requested by the conversation channel.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ai-call-relay-service/internal/observability/metrics"
)

// QueryKnowledgeBase is the only tool currently exposed to the AI leg.
const QueryKnowledgeBase = "query_knowledge_base"

// DefaultResultLimit caps how many knowledge-base entries a single lookup
// may return.
const DefaultResultLimit = 3

// Retriever provides relevant knowledge-base context for a query, scoped to
// one business.
type Retriever interface {
	GetRelevantContext(ctx context.Context, query, businessID string, limit int) (string, error)
}

// Result is the structured outcome of a tool call. It is always serialized
// back to the AI leg, success or not.
type Result struct {
	Success bool   `json:"success"`
	Context string `json:"context,omitempty"`
	Query   string `json:"query,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Executor dispatches named tool calls. Execute never returns an error:
// every failure becomes a Result with Success=false so the conversation can
// continue.
type Executor struct {
	retriever Retriever
	limit     int
	metrics   *metrics.Metrics
}

// New creates an executor backed by the given retriever.
func New(retriever Retriever) *Executor {
	return &Executor{
		retriever: retriever,
		limit:     DefaultResultLimit,
		metrics:   metrics.DefaultMetrics,
	}
}

// WithLimit overrides the knowledge-base result cap. Values below one keep
// the default.
func (e *Executor) WithLimit(limit int) *Executor {
	if limit > 0 {
		e.limit = limit
	}
	return e
}

// Execute runs the named tool with the given arguments.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any, businessID string) Result {
	start := time.Now()
	res := e.execute(ctx, name, args, businessID)
	e.metrics.RecordToolCall(name, res.Success, time.Since(start).Seconds())
	return res
}

func (e *Executor) execute(ctx context.Context, name string, args map[string]any, businessID string) Result {
	if name != QueryKnowledgeBase {
		log.Warn().Str("tool", name).Msg("Unknown tool requested")
		return Result{Success: false, Error: fmt.Sprintf("Unknown function: %s", name)}
	}

	query, _ := args["query"].(string)
	if query == "" {
		return Result{Success: false, Error: "query argument is required"}
	}

	context, err := e.retriever.GetRelevantContext(ctx, query, businessID, e.limit)
	if err != nil {
		log.Error().Err(err).Str("businessId", businessID).Str("query", query).Msg("Knowledge base lookup failed")
		return Result{Success: false, Error: err.Error()}
	}

	log.Debug().Str("businessId", businessID).Int("contextChars", len(context)).Msg("Knowledge base context retrieved")
	return Result{Success: true, Context: context, Query: query}
}
