// Package export serializes the transcript ledger to CSV and to a
// print-ready HTML document.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwulff/scribe/internal/ledger"
)

// DefaultPrefix names exported files.
const DefaultPrefix = "transcripts"

// bom lets spreadsheet apps detect UTF-8.
const bom = "\ufeff"

// CSV renders transcripts as a BOM-prefixed, newline-separated CSV with a
// Timestamp,Text header. Text is always quoted; the timestamp never is.
func CSV(transcripts []ledger.Transcript) []byte {
	var b bytes.Buffer
	b.WriteString(bom)
	b.WriteString("Timestamp,Text")
	for _, t := range transcripts {
		b.WriteByte('\n')
		b.WriteString(t.Timestamp)
		b.WriteString(`,"`)
		b.WriteString(strings.ReplaceAll(t.Text, `"`, `""`))
		b.WriteByte('"')
	}
	return b.Bytes()
}

// CSVFilename returns prefix_YYYY-MM-DD.csv for the UTC date of now.
func CSVFilename(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%s.csv", prefix, now.UTC().Format("2006-01-02"))
}

// WriteCSV writes the CSV export into dir and returns its path. An existing
// file for the same day is replaced.
func WriteCSV(dir string, transcripts []ledger.Transcript, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, CSVFilename(DefaultPrefix, now))
	if err := os.WriteFile(path, CSV(transcripts), 0o644); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return path, nil
}
