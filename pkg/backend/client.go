// Package backend is the HTTP client for the honeypot intelligence API.
package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/scamshield/syndicate/pkg/model"
)

// Endpoint paths.
const (
	PathIntelligenceGraph = "/api/intelligence/graph"
	PathNetworkGraph      = "/api/analytics/network-graph"
	PathConversation      = "/api/history/conversation/"
	PathConversations     = "/api/history/conversations"
	PathHealth            = "/api/health"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// Config holds client configuration
type Config struct {
	BaseURL   string
	Token     string        // Bearer token; empty sends no Authorization header
	Timeout   time.Duration // 0 = DefaultTimeout
	GraphPath string        // "" = PathIntelligenceGraph

	// OnUnauthorized runs after any 401 response, before the error is
	// returned. The CLI uses it to drop the stored token.
	OnUnauthorized func()

	HTTPClient *http.Client       // nil = a client with Timeout
	Logger     *zap.SugaredLogger // nil = nop logger
}

// Client talks to the backend.
type Client struct {
	baseURL    *url.URL
	token      string
	graphPath  string
	onUnauth   func()
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "parse base URL %q", cfg.BaseURL)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Newf("base URL %q is not absolute", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	graphPath := cfg.GraphPath
	if graphPath == "" {
		graphPath = PathIntelligenceGraph
	}
	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		graphPath:  graphPath,
		onUnauth:   cfg.OnUnauthorized,
		httpClient: hc,
		logger:     logger,
	}, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// FetchGraph fetches the intelligence graph document.
func (c *Client) FetchGraph(ctx context.Context) (*model.GraphDocument, error) {
	return c.fetchDocument(ctx, c.graphPath)
}

// FetchNetworkGraph fetches the analytics network graph, whose entity
// nodes carry flat types and whose links arrive as "edges".
func (c *Client) FetchNetworkGraph(ctx context.Context) (*model.GraphDocument, error) {
	return c.fetchDocument(ctx, PathNetworkGraph)
}

func (c *Client) fetchDocument(ctx context.Context, path string) (*model.GraphDocument, error) {
	var doc model.GraphDocument
	if err := c.getJSON(ctx, path, nil, &doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	nodes, links := doc.Counts()
	c.logger.Debugw("Fetched graph document", "path", path, "nodes", nodes, "links", links, "complete", doc.Complete())
	return &doc, nil
}

// GetConversation fetches one conversation record.
func (c *Client) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	if id == "" {
		return nil, errors.New("conversation id is required")
	}
	var conv model.Conversation
	if err := c.getJSON(ctx, PathConversation+url.PathEscape(id), nil, &conv); err != nil {
		return nil, errors.Wrapf(err, "get conversation %s", id)
	}
	return &conv, nil
}

// ConversationPage is one page of conversation history.
type ConversationPage struct {
	Conversations []model.Conversation `json:"conversations"`
	Total         int                  `json:"total"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

// ListConversations fetches a page of conversation history.
func (c *Client) ListConversations(ctx context.Context, limit, offset int) (*ConversationPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var page ConversationPage
	if err := c.getJSON(ctx, PathConversations, q, &page); err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	return &page, nil
}

// Health is the backend health report.
type Health struct {
	Status       string            `json:"status"`
	AIProviders  map[string]string `json:"ai_providers"`
	Agents       map[string]string `json:"agents"`
	Orchestrator string            `json:"orchestrator"`
}

// Healthy reports whether the backend says it is healthy.
func (h *Health) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

// Health fetches the health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.getJSON(ctx, PathHealth, nil, &h); err != nil {
		return nil, errors.Wrap(err, "health check")
	}
	return &h, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Path: path, Detail: readDetail(resp.Body)}
		c.logger.Warnw("Backend request failed",
			"path", path,
			"status", resp.StatusCode,
			"detail", apiErr.Detail,
			"elapsed", time.Since(start))
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauth != nil {
			c.onUnauth()
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	c.logger.Debugw("Backend request", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return nil
}

// readDetail extracts FastAPI's "detail" string, or the trimmed body.
func readDetail(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(payload.Detail); err == nil {
			return string(b)
		}
	}
	return strings.TrimSpace(string(body))
}
