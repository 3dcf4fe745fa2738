// Package retrieval provides the client for the knowledge-base retrieval
// collaborator.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const noResultsMessage = "No relevant information found in the knowledge base."

// Config holds retrieval client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client queries the retrieval collaborator for context relevant to a query,
// scoped to one business. With no base URL configured it runs in disabled
// mode and reports no results.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	enabled bool
}

type queryRequest struct {
	RequestID  string `json:"requestId"`
	Query      string `json:"query"`
	BusinessID string `json:"businessId"`
	Limit      int    `json:"limit"`
}

type queryResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// New creates a retrieval client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cfg.BaseURL == "" {
		log.Info().Msg("Retrieval not configured, knowledge base lookups will return no results")
		return &Client{enabled: false}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: timeout},
		enabled: true,
	}
}

// GetRelevantContext returns a formatted text blob of the most relevant
// knowledge-base entries for the query.
func (c *Client) GetRelevantContext(ctx context.Context, query, businessID string, limit int) (string, error) {
	if !c.enabled {
		return noResultsMessage, nil
	}

	body, err := json.Marshal(queryRequest{
		RequestID:  uuid.NewString(),
		Query:      query,
		BusinessID: businessID,
		Limit:      limit,
	})
	if err != nil {
		return "", fmt.Errorf("marshal retrieval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/retrieval/query", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("retrieval request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("retrieval returned status %d", resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode retrieval response: %w", err)
	}

	return formatResults(decoded), nil
}

func formatResults(resp queryResponse) string {
	if len(resp.Results) == 0 {
		return noResultsMessage
	}
	var b strings.Builder
	b.WriteString("Found the following information:\n\n")
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "%d. %s\n%s\n\n", i+1, r.Title, r.Content)
	}
	return b.String()
}
