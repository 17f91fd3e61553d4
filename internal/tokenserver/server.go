// Package tokenserver is the trusted intermediary: it holds the default
// transcription credential and exchanges it (or a client-supplied override)
// for a single-use realtime token.
package tokenserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jwulff/scribe/internal/apperr"
	"github.com/jwulff/scribe/internal/token"
	"github.com/rs/zerolog"
)

// UpstreamTokenPath is appended to the upstream base URL.
const UpstreamTokenPath = "/v1/single-use-token/realtime_scribe"

// Options configures a Server.
type Options struct {
	// DefaultAPIKey is read once at process start. Empty means clients must
	// supply an override.
	DefaultAPIKey string
	UpstreamURL   string
	Client        *http.Client
}

// Server serves GET /token.
type Server struct {
	defaultKey  string
	upstreamURL string
	client      *http.Client
	log         zerolog.Logger
	engine      *gin.Engine
}

// New creates a Server and registers its routes.
func New(opts Options, log zerolog.Logger) *Server {
	if log.GetLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	s := &Server{
		defaultKey:  opts.DefaultAPIKey,
		upstreamURL: strings.TrimRight(opts.UpstreamURL, "/"),
		client:      client,
		log:         log,
		engine:      gin.New(),
	}

	s.engine.Use(gin.Recovery(), requestLogger(log))
	s.engine.GET("/token", s.handleToken)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr until ctx is cancelled, then shuts down with a
// 5-second deadline.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("token server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info().Msg("shutting down token server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleToken(c *gin.Context) {
	apiKey := c.GetHeader(token.OverrideHeader)
	if apiKey == "" {
		apiKey = s.defaultKey
	}

	if apiKey == "" {
		c.JSON(http.StatusInternalServerError, token.Response{
			Error: "ELEVENLABS_API_KEY not configured",
			Code:  string(apperr.CodeNoCredential),
		})
		return
	}

	tok, err := s.mintToken(c.Request.Context(), apiKey)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token.Response{Token: tok})
}

func (s *Server) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.CodeUpstream, "", err)
	}

	switch appErr.Code {
	case apperr.CodeInvalidCredential:
		c.JSON(http.StatusUnauthorized, token.Response{
			Error: "Invalid API key",
			Code:  string(apperr.CodeInvalidCredential),
		})
	case apperr.CodeQuotaExceeded:
		c.JSON(appErr.Status, token.Response{
			Error: "Credits or usage limits exhausted. Check your ElevenLabs account.",
			Code:  string(apperr.CodeQuotaExceeded),
		})
	default:
		s.log.Error().Err(err).Msg("error fetching token")
		c.JSON(http.StatusInternalServerError, token.Response{Error: "Failed to fetch token"})
	}
}

// mintToken exchanges apiKey for a single-use token upstream.
func (s *Server) mintToken(ctx context.Context, apiKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.upstreamURL+UpstreamTokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("xi-api-key", apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		s.log.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("upstream token error")

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return "", apperr.New(apperr.CodeInvalidCredential, "upstream rejected credential")
		case http.StatusPaymentRequired, http.StatusTooManyRequests:
			e := apperr.New(apperr.CodeQuotaExceeded, "upstream quota exceeded")
			e.Status = resp.StatusCode
			return "", e
		}
		return "", apperr.Upstream(resp.StatusCode, string(body))
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode upstream response: %w", err)
	}
	if data.Token == "" {
		return "", errors.New("upstream response missing token")
	}
	return data.Token, nil
}

// requestLogger logs method, path, status and latency. Health checks are
// skipped.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		if status >= 500 {
			ev = log.Error()
		} else if status >= 400 {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Bool("override", c.GetHeader(token.OverrideHeader) != "").
			Msg("request")
	}
}
