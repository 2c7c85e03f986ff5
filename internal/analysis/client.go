package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/opsdeck/ticket-triage/internal/config"
	"github.com/opsdeck/ticket-triage/internal/domain"
)

// Client calls the external classification provider over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs the provider adapter. The per-call timeout lives on
// the http.Client; the orchestrator additionally bounds each attempt with a
// context deadline.
func NewClient(cfg config.AnalysisConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		logger:     logger,
	}
}

type classifyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type classifyResponse struct {
	Priority       string   `json:"priority"`
	RequiredSkills []string `json:"required_skills"`
	GuidanceNotes  string   `json:"guidance_notes"`
}

// Analyze submits the ticket text for classification.
func (c *Client) Analyze(ctx context.Context, title, description string) (*Result, error) {
	payload, err := json.Marshal(classifyRequest{Title: title, Description: description})
	if err != nil {
		return nil, &Error{Transient: false, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Transient: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport failures look identical from here.
		return nil, &Error{Transient: true, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &Error{Transient: true, Err: fmt.Errorf("provider returned %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Transient: false, Err: fmt.Errorf("provider returned %d", resp.StatusCode)}
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &Error{Transient: false, Err: fmt.Errorf("decode response: %w", err)}
	}

	return c.normalize(decoded), nil
}

// normalize cleans provider output before it reaches the pipeline. The
// provider does not guarantee clean skill tags or a known priority value.
func (c *Client) normalize(raw classifyResponse) *Result {
	priority, ok := domain.ParsePriority(raw.Priority)
	if !ok {
		c.logger.Warn("unknown priority from analysis provider, defaulting to medium",
			zap.String("priority", raw.Priority))
		priority = domain.TicketPriorityMedium
	}
	return &Result{
		Priority:       priority,
		RequiredSkills: domain.NormalizeSkills(raw.RequiredSkills),
		GuidanceNotes:  strings.TrimSpace(raw.GuidanceNotes),
	}
}
