// Command scribe is the terminal client: it records through the local
// transcription engine and keeps the confirmed transcripts for export.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwulff/scribe/internal/app"
	"github.com/jwulff/scribe/internal/config"
	"github.com/jwulff/scribe/internal/daemon"
	"github.com/jwulff/scribe/internal/db"
	"github.com/jwulff/scribe/internal/devices"
	"github.com/jwulff/scribe/internal/export"
	"github.com/jwulff/scribe/internal/i18n"
	"github.com/jwulff/scribe/internal/ledger"
	"github.com/jwulff/scribe/internal/logging"
	"github.com/jwulff/scribe/internal/notify"
	"github.com/jwulff/scribe/internal/session"
	"github.com/jwulff/scribe/internal/settings"
	"github.com/jwulff/scribe/internal/token"
	"github.com/rs/zerolog"
)

// assignments collects repeated -set key=value flags.
type assignments []string

func (a *assignments) String() string { return strings.Join(*a, ",") }

func (a *assignments) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*a = append(*a, v)
	return nil
}

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	listSettings := flag.Bool("settings", false, "print persisted settings and exit")
	var sets assignments
	flag.Var(&sets, "set", "persist a setting (key=value) and exit; repeatable")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scribe: %v\n", err)
		os.Exit(1)
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(cfg.DataDir, "scribe.log")
	}
	logFile, err := logging.OpenFile(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scribe: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: logFile})

	if *listSettings || len(sets) > 0 {
		if err := manageSettings(cfg, log, sets, *listSettings); err != nil {
			fmt.Fprintf(os.Stderr, "scribe: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("scribe exited")
		fmt.Fprintf(os.Stderr, "scribe: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Without the database, settings live in memory for this run.
	var kv settings.KV
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DBPath).Msg("settings database unavailable")
	} else {
		defer store.Close()
		kv = store
	}

	prefs := settings.NewStore(kv, logging.Component(log, "settings"))
	prefs.Load()

	updates := app.NewUpdates()
	notices := notify.New(updates.Signal)
	defer notices.Dismiss()

	engine := daemon.NewEngine(cfg.SocketPath, cfg.ModelID, logging.Component(log, "daemon"))
	transcripts := ledger.New()

	controller := session.New(session.Options{
		Capability: engine,
		Tokens:     token.NewProvider(cfg.TokenURL, nil, logging.Component(log, "token")),
		Settings:   prefs,
		Notifier:   notices,
		Ledger:     transcripts,
		Messages:   i18n.NewCatalog(func() settings.Language { return prefs.Current().Language }),
		Log:        logging.Component(log, "session"),
		OnChange:   updates.Signal,
	})
	defer controller.Stop()

	model := app.New(app.Deps{
		Context:     ctx,
		Sessions:    controller,
		Settings:    prefs,
		Mics:        devices.NewEnumerator(engine, logging.Component(log, "devices")),
		Notices:     notices,
		Transcripts: transcripts,
		Surface:     export.BrowserSurface{},
		ExportDir:   cfg.ExportDir,
		TokenURL:    cfg.TokenURL,
		Updates:     updates,
		Log:         logging.Component(log, "app"),
	})

	log.Info().Str("socket", cfg.SocketPath).Str("token_url", cfg.TokenURL).Msg("starting scribe")

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// manageSettings applies -set assignments and optionally lists what is stored.
func manageSettings(cfg *config.Config, log zerolog.Logger, sets assignments, list bool) error {
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	prefs := settings.NewStore(store, logging.Component(log, "settings"))
	prefs.Load()
	for _, kv := range sets {
		key, value, _ := strings.Cut(kv, "=")
		if _, err := prefs.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	if !list {
		return nil
	}

	rows, err := store.Settings()
	if err != nil {
		return err
	}
	for _, row := range rows {
		value := row.Value
		if row.Key == settings.KeyAPIKeyOverride && value != "" {
			value = "(set)"
		}
		fmt.Printf("%-20s %-12s %s\n", row.Key, value, row.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}
