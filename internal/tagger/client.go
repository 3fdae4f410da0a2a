// Package tagger talks to the external PoS/lemma tagging service. The
// service receives plaintext and answers with one (literal, lemma, pos)
// entry per token, in text order, without offsets.
package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/annomerge/internal/layer"
)

// Client calls the tagger service over HTTP.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client

	Stats *Stats
}

// NewClient returns a client for the tagger at url. A zero timeout means
// two minutes.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		Stats: NewStats(time.Hour),
	}
}

// URL returns the tagger endpoint.
func (c *Client) URL() string { return c.url }

type tagResponse struct {
	Tokens []layer.Entry `json:"tokens"`
	Error  string        `json:"error"`
}

// Tag sends one request to the tagger and returns its entries in text
// order. Responses are accepted as JSON ({"tokens": [...]} or a bare
// array) or as tab-separated "literal lemma pos" rows.
func (c *Client) Tag(ctx context.Context, req Request) ([]layer.Entry, error) {
	start := time.Now()
	entries, err := c.tag(ctx, req)
	if c.Stats != nil {
		c.Stats.Record(time.Since(start).Milliseconds(), len(entries), err != nil)
	}
	return entries, err
}

func (c *Client) tag(ctx context.Context, req Request) ([]layer.Entry, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/tab-separated-values")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tagger request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tagger status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	entries, err := decodeEntries(resp.Header.Get("Content-Type"), respBody)
	if err != nil {
		return nil, err
	}
	return Sanitize(entries), nil
}

func decodeEntries(contentType string, body []byte) ([]layer.Entry, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	trimmed := bytes.TrimSpace(body)

	var isJSON bool
	switch {
	case mediaType == "text/tab-separated-values":
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		isJSON = true
	default:
		// Untyped or text/plain bodies are sniffed.
		isJSON = len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
	}
	if !isJSON {
		entries, err := layer.ReadEntries(bytes.NewReader(body), '\t')
		if err != nil {
			return nil, fmt.Errorf("parse tagger tsv: %w", err)
		}
		return entries, nil
	}

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []layer.Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("parse tagger json: %w (raw: %s)", err, truncate(string(trimmed), 200))
		}
		return entries, nil
	}

	var tr tagResponse
	if err := json.Unmarshal(trimmed, &tr); err != nil {
		return nil, fmt.Errorf("parse tagger json: %w (raw: %s)", err, truncate(string(trimmed), 200))
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("tagger error: %s", tr.Error)
	}
	return tr.Tokens, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
