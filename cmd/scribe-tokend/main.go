// Command scribe-tokend is the trusted intermediary that exchanges the
// server-held credential for single-use transcription tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jwulff/scribe/internal/config"
	"github.com/jwulff/scribe/internal/logging"
	"github.com/jwulff/scribe/internal/token"
	"github.com/jwulff/scribe/internal/tokenserver"
)

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scribe-tokend: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stdout})

	if cfg.DefaultAPIKey == "" {
		log.Warn().Msgf("%s not set; every client must send %s", config.DefaultAPIKeyEnv, token.OverrideHeader)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := tokenserver.New(tokenserver.Options{
		DefaultAPIKey: cfg.DefaultAPIKey,
		UpstreamURL:   cfg.UpstreamURL,
	}, logging.Component(log, "tokenserver"))

	if err := srv.Serve(ctx, cfg.ListenAddr); err != nil {
		log.Error().Err(err).Msg("token server failed")
		os.Exit(1)
	}
}
