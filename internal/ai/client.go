// Package ai talks to the text-generation backend that produces the rolling
// summaries, suggestions and insights.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  http.DefaultClient,
	}
}

func (c *Client) Summary(ctx context.Context, previous, update, sentiment string) (string, error) {
	return c.generate(ctx, "summary", previous, update, sentiment)
}

func (c *Client) Suggestions(ctx context.Context, previous, update, sentiment string) (string, error) {
	return c.generate(ctx, "suggestions", previous, update, sentiment)
}

func (c *Client) Insights(ctx context.Context, previous, update, sentiment string) (string, error) {
	return c.generate(ctx, "insights", previous, update, sentiment)
}

type generateRequest struct {
	Kind      string `json:"kind"`
	Model     string `json:"model,omitempty"`
	Previous  string `json:"previous,omitempty"`
	Update    string `json:"update"`
	Sentiment string `json:"sentiment,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) generate(ctx context.Context, kind, previous, update, sentiment string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(generateRequest{
		Kind:      kind,
		Model:     c.model,
		Previous:  previous,
		Update:    update,
		Sentiment: sentiment,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
			return "", fmt.Errorf("generate %s failed: %s", kind, er.Error.Message)
		}
		return "", fmt.Errorf("generate %s failed: status %d: %s", kind, resp.StatusCode, string(raw))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if strings.TrimSpace(gr.Text) == "" {
		return "", fmt.Errorf("generate %s failed: empty text", kind)
	}
	return gr.Text, nil
}
