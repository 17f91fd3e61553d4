// Package token fetches single-use transcription tokens from the trusted
// intermediary. The long-lived credential never leaves the intermediary
// unless the user supplied their own override.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwulff/scribe/internal/apperr"
	"github.com/rs/zerolog"
)

// OverrideHeader carries the user-supplied credential override.
const OverrideHeader = "X-Custom-API-Key"

// Response is the intermediary's JSON body, for both success and failure.
type Response struct {
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Provider talks to GET /token on the intermediary.
type Provider struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewProvider creates a Provider for the given token endpoint URL. A nil
// client gets a 15s timeout client.
func NewProvider(url string, client *http.Client, log zerolog.Logger) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Provider{url: url, client: client, log: log}
}

// FetchToken returns a single-use token. overrideKey is sent only when
// non-empty. There are no retries: an expired token must be refetched.
func (p *Provider) FetchToken(ctx context.Context, overrideKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	if overrideKey != "" {
		req.Header.Set(OverrideHeader, overrideKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUpstream, "token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUpstream, "read token response", err)
	}

	var r Response
	_ = json.Unmarshal(body, &r) // non-JSON bodies fall through to the status mapping

	if resp.StatusCode == http.StatusOK && r.Token != "" {
		p.log.Debug().Bool("override", overrideKey != "").Msg("token received")
		return r.Token, nil
	}

	err = classify(resp.StatusCode, r, string(body))
	p.log.Warn().Int("status", resp.StatusCode).Str("code", string(apperr.CodeOf(err))).
		Str("body", string(body)).Msg("token fetch failed")
	return "", err
}

// classify maps a failed token response onto the failure taxonomy.
func classify(status int, r Response, body string) error {
	switch {
	case status == http.StatusUnauthorized || r.Code == string(apperr.CodeInvalidCredential):
		return apperr.New(apperr.CodeInvalidCredential, r.Error)
	case status == http.StatusPaymentRequired || status == http.StatusTooManyRequests ||
		r.Code == string(apperr.CodeQuotaExceeded):
		return apperr.New(apperr.CodeQuotaExceeded, r.Error)
	case r.Code == string(apperr.CodeNoCredential):
		return apperr.New(apperr.CodeNoCredential, r.Error)
	}
	return apperr.Upstream(status, body)
}
