package token

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwulff/scribe/internal/apperr"
	"github.com/rs/zerolog"
)

// startMockIntermediary serves a canned status and body and records the
// override header it saw.
func startMockIntermediary(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()

	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(OverrideHeader)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestFetchTokenSuccess(t *testing.T) {
	srv, seen := startMockIntermediary(t, http.StatusOK, `{"token":"abc"}`)
	p := NewProvider(srv.URL, nil, zerolog.Nop())

	tok, err := p.FetchToken(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchToken: %v", err)
	}
	if tok != "abc" {
		t.Errorf("token = %q, want %q", tok, "abc")
	}
	if *seen != "" {
		t.Errorf("override header = %q, want none", *seen)
	}
}

func TestFetchTokenSendsOverride(t *testing.T) {
	srv, seen := startMockIntermediary(t, http.StatusOK, `{"token":"abc"}`)
	p := NewProvider(srv.URL, nil, zerolog.Nop())

	if _, err := p.FetchToken(context.Background(), "sk-user"); err != nil {
		t.Fatalf("FetchToken: %v", err)
	}
	if *seen != "sk-user" {
		t.Errorf("override header = %q, want %q", *seen, "sk-user")
	}
}

func TestFetchTokenStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   *apperr.Error
	}{
		{"unauthorized", 401, `{"error":"Invalid API key","code":"INVALID_API_KEY"}`, apperr.ErrInvalidCredential},
		{"payment required", 402, `{"error":"quota","code":"QUOTA_EXCEEDED"}`, apperr.ErrQuotaExceeded},
		{"too many requests", 429, `{"error":"quota","code":"QUOTA_EXCEEDED"}`, apperr.ErrQuotaExceeded},
		{"no credential", 500, `{"error":"not configured","code":"NO_API_KEY"}`, apperr.ErrNoCredential},
		{"generic failure", 500, `{"error":"Failed to fetch token"}`, apperr.ErrUpstream},
		{"ok without token", 200, `{}`, apperr.ErrUpstream},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := startMockIntermediary(t, tc.status, tc.body)
			p := NewProvider(srv.URL, nil, zerolog.Nop())

			_, err := p.FetchToken(context.Background(), "")
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want code %s", err, tc.want.Code)
			}
		})
	}
}

func TestFetchTokenUpstreamCarriesRawResponse(t *testing.T) {
	srv, _ := startMockIntermediary(t, http.StatusBadGateway, "upstream down")
	p := NewProvider(srv.URL, nil, zerolog.Nop())

	_, err := p.FetchToken(context.Background(), "")

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("err = %v, want *apperr.Error", err)
	}
	if appErr.Status != http.StatusBadGateway || appErr.Body != "upstream down" {
		t.Errorf("status/body = %d %q", appErr.Status, appErr.Body)
	}
}

func TestFetchTokenTransportError(t *testing.T) {
	p := NewProvider("http://127.0.0.1:1/token", nil, zerolog.Nop())

	_, err := p.FetchToken(context.Background(), "")
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Errorf("err = %v, want upstream error", err)
	}
}
