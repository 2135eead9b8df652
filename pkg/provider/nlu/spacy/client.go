// Package spacy provides an nlu.ElementAwareParser backed by the spaCy
// parsing service's HTTP API.
//
// The service exposes three endpoints the client uses: POST /parse for a
// plain transcript, POST /batch-parse for several at once, and POST /navigate
// for extended-mode parsing with the candidate element inventory. A GET
// /health probe is available for startup checks.
//
// Every transport-level failure — connection refused, deadline exceeded,
// non-2xx status, malformed body — is wrapped in nlu.ErrUnavailable so the
// resolver falls back to the local parser instead of surfacing an error.
package spacy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

// defaultTimeout bounds every request; a parse that takes longer than this is
// worth less than the local fallback.
const defaultTimeout = 5 * time.Second

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient substitutes the underlying HTTP client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to the parsing service. Safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// New creates a Client for the service at baseURL (e.g.,
// "http://localhost:5001").
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("spacy: baseURL must not be empty")
	}
	c := &Client{
		baseURL: baseURL,
		timeout: defaultTimeout,
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

var _ nlu.ElementAwareParser = (*Client)(nil)

// parseResponse is the wire shape of /parse results.
type parseResponse struct {
	nlu.ParsedIntent
	Error string `json:"error"`
}

// Parse parses a single transcript via POST /parse.
func (c *Client) Parse(ctx context.Context, text string) (nlu.ParsedIntent, error) {
	var resp parseResponse
	if err := c.post(ctx, "/parse", map[string]any{"text": text}, &resp); err != nil {
		return nlu.ParsedIntent{}, err
	}
	if resp.Error != "" {
		return nlu.ParsedIntent{}, fmt.Errorf("spacy: service error %q: %w", resp.Error, nlu.ErrUnavailable)
	}
	return normalize(resp.ParsedIntent), nil
}

// ParseBatch parses several transcripts via POST /batch-parse.
func (c *Client) ParseBatch(ctx context.Context, texts []string) ([]nlu.ParsedIntent, error) {
	var resp struct {
		Success bool            `json:"success"`
		Results []parseResponse `json:"results"`
	}
	if err := c.post(ctx, "/batch-parse", map[string]any{"commands": texts}, &resp); err != nil {
		return nil, err
	}
	out := make([]nlu.ParsedIntent, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, normalize(r.ParsedIntent))
	}
	return out, nil
}

// navigateResponse is the wire shape of /navigate results.
type navigateResponse struct {
	Success        bool   `json:"success"`
	Action         string `json:"action"`
	Target         string `json:"target"`
	Direction      string `json:"direction"`
	Confidence     float64 `json:"confidence"`
	HumanResponse  string `json:"human_response"`
	MatchedElement *struct {
		ID         int     `json:"id"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"matched_element"`
}

// Resolve parses text in extended mode via POST /navigate, forwarding the
// candidate inventory so the service can name a best element directly.
func (c *Client) Resolve(ctx context.Context, text string, candidates []nlu.Candidate) (nlu.Resolution, error) {
	var resp navigateResponse
	body := map[string]any{"command": text, "page_elements": candidates}
	if err := c.post(ctx, "/navigate", body, &resp); err != nil {
		return nlu.Resolution{}, err
	}

	res := nlu.Resolution{
		Intent: normalize(nlu.ParsedIntent{
			Action:     nlu.Action(resp.Action),
			Target:     resp.Target,
			Direction:  resp.Direction,
			Confidence: resp.Confidence,
			Success:    resp.Success,
		}),
		MatchedID: -1,
		Response:  resp.HumanResponse,
	}
	if resp.MatchedElement != nil {
		res.MatchedID = resp.MatchedElement.ID
		res.MatchConfidence = resp.MatchedElement.Confidence
	}
	return res, nil
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("spacy: build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("spacy: health: %v: %w", err, nlu.ErrUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spacy: health status %d: %w", resp.StatusCode, nlu.ErrUnavailable)
	}
	return nil
}

// post issues one bounded JSON request and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("spacy: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("spacy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("spacy: %s: %v: %w", path, err, nlu.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("spacy: %s status %d: %w", path, resp.StatusCode, nlu.ErrUnavailable)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("spacy: read %s response: %v: %w", path, err, nlu.ErrUnavailable)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("spacy: malformed %s response: %v: %w", path, err, nlu.ErrUnavailable)
	}
	return nil
}

// normalize clamps service confidences into [0,1]. The service occasionally
// reports percentages.
func normalize(in nlu.ParsedIntent) nlu.ParsedIntent {
	if in.Confidence > 1 {
		in.Confidence = in.Confidence / 100
	}
	if in.Confidence > 1 {
		in.Confidence = 1
	}
	if in.Confidence < 0 {
		in.Confidence = 0
	}
	return in
}
