package export

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/jwulff/scribe/internal/apperr"
	"github.com/jwulff/scribe/internal/ledger"
	"github.com/rs/zerolog"
)

// Surface displays a rendered print document to the user.
type Surface interface {
	Open(ctx context.Context, doc []byte) error
}

// Print renders transcripts and hands the document to surface. It reports
// false when the document could not be rendered or displayed.
func Print(ctx context.Context, surface Surface, transcripts []ledger.Transcript, labels Labels, now time.Time, log zerolog.Logger) bool {
	doc, err := PrintDocument(transcripts, labels, now)
	if err != nil {
		log.Error().Err(err).Msg("render print document")
		return false
	}
	if err := surface.Open(ctx, doc); err != nil {
		log.Error().Err(err).Msg("open print surface")
		return false
	}
	return true
}

// BrowserSurface writes the document to a temporary file and opens it with
// the system browser.
type BrowserSurface struct {
	// Dir holds the temporary documents. Empty means os.TempDir.
	Dir string
	// Opener overrides the platform open command (tests).
	Opener func(ctx context.Context, path string) error
}

// Open implements Surface.
func (s BrowserSurface) Open(ctx context.Context, doc []byte) error {
	f, err := os.CreateTemp(s.Dir, "scribe-print-*.html")
	if err != nil {
		return apperr.Wrap(apperr.CodeExportSurfaceUnavailable, "create print document", err)
	}
	if _, err := f.Write(doc); err != nil {
		f.Close()
		return apperr.Wrap(apperr.CodeExportSurfaceUnavailable, "write print document", err)
	}
	if err := f.Close(); err != nil {
		return apperr.Wrap(apperr.CodeExportSurfaceUnavailable, "write print document", err)
	}

	open := s.Opener
	if open == nil {
		open = systemOpen
	}
	if err := open(ctx, f.Name()); err != nil {
		return apperr.Wrap(apperr.CodeExportSurfaceUnavailable, "open browser", err)
	}
	return nil
}

// systemOpen launches the platform opener detached from ctx so the browser
// outlives the request that opened it.
func systemOpen(_ context.Context, path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Path, err)
	}
	go cmd.Wait()
	return nil
}
