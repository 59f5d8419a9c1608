package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// AnswerClient reaches the external answer engine over HTTP. The engine is
// an opaque collaborator: when it is unreachable or answers with a non-OK
// status, a simulated answer keeps the search surface usable.
type AnswerClient struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

func NewAnswerClient(url string, log *zap.Logger) *AnswerClient {
	return &AnswerClient{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

type AnswerResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

func (c *AnswerClient) Ask(ctx context.Context, query string) AnswerResponse {
	fallback := AnswerResponse{
		Answer:  fmt.Sprintf("Simulated answer for: %s", query),
		Sources: []string{},
	}

	if c.url == "" {
		return fallback
	}

	payload, err := json.Marshal(map[string]string{"text": query})
	if err != nil {
		return fallback
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fallback
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("answer engine unreachable, falling back to simulated response", zap.Error(err))
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("answer engine returned non-OK status", zap.Int("status", resp.StatusCode))
		return fallback
	}

	var out AnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fallback
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	return out
}
