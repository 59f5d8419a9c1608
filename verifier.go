package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ChallengeVerifier checks an anti-automation challenge token with an
// external verification service.
type ChallengeVerifier interface {
	Verify(ctx context.Context, token string) bool
}

type httpChallengeVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
	log       *zap.Logger
}

// NewChallengeVerifier returns nil when no secret is configured, which
// disables challenge checks entirely.
func NewChallengeVerifier(secret, verifyURL string, log *zap.Logger) ChallengeVerifier {
	if secret == "" {
		return nil
	}
	return &httpChallengeVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log,
	}
}

func (v *httpChallengeVerifier) Verify(ctx context.Context, token string) bool {
	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		// Verifier unreachable counts as a failed challenge; the caller
		// still answers generically
		v.log.Warn("challenge verify failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}

	return body.Success
}
