package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jwulff/scribe/internal/apperr"
	"github.com/jwulff/scribe/internal/ledger"
	"github.com/jwulff/scribe/internal/settings"
	"github.com/rs/zerolog"
)

var sample = []ledger.Transcript{
	{ID: "1", Text: `He said "hi"`, Timestamp: "10:00:01"},
	{ID: "2", Text: "commas, and\nnewlines", Timestamp: "10:00:05"},
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	if !bytes.HasPrefix(data, []byte("\ufeff")) {
		t.Fatal("missing UTF-8 BOM")
	}
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return records
}

func TestCSVRoundTrip(t *testing.T) {
	records := parseCSV(t, CSV(sample))

	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[0][0] != "Timestamp" || records[0][1] != "Text" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "10:00:01" || records[1][1] != `He said "hi"` {
		t.Errorf("row 1 = %q", records[1])
	}
	if records[2][1] != "commas, and\nnewlines" {
		t.Errorf("row 2 text = %q", records[2][1])
	}
}

func TestCSVQuoting(t *testing.T) {
	got := string(CSV(sample[:1]))
	want := "\ufeffTimestamp,Text\n10:00:01,\"He said \"\"hi\"\"\""
	if got != want {
		t.Errorf("csv = %q, want %q", got, want)
	}
}

func TestCSVEmptyIsHeaderOnly(t *testing.T) {
	if got := string(CSV(nil)); got != "\ufeffTimestamp,Text" {
		t.Errorf("csv = %q", got)
	}
}

func TestCSVFilename(t *testing.T) {
	now := time.Date(2026, 1, 9, 23, 0, 0, 0, time.UTC)
	if got := CSVFilename("", now); got != "transcripts_2026-01-09.csv" {
		t.Errorf("filename = %q", got)
	}
}

func TestWriteCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	now := time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)

	path, err := WriteCSV(dir, sample, now)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if filepath.Base(path) != "transcripts_2026-01-09.csv" {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, CSV(sample)) {
		t.Error("file content differs from CSV()")
	}
}

func TestPrintDocument(t *testing.T) {
	list := append([]ledger.Transcript{{ID: "0", Text: "<script>alert(1)</script>", Timestamp: "09:59:59"}}, sample...)
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	doc, err := PrintDocument(list, LabelsFor(settings.English), now)
	if err != nil {
		t.Fatalf("PrintDocument: %v", err)
	}
	html := string(doc)

	for _, want := range []string{
		"<h1>Confirmed Transcripts</h1>",
		"March 14, 2026",
		"Total Transcripts:</strong> 3",
		"10:00:05",
		"&lt;script&gt;",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(html, "<script>alert") {
		t.Error("transcript text not escaped")
	}
	if n := strings.Count(html, `<div class="transcript">`); n != 3 {
		t.Errorf("transcript blocks = %d, want 3", n)
	}
}

func TestPrintDocumentFinnish(t *testing.T) {
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	doc, err := PrintDocument(sample, LabelsFor(settings.Finnish), now)
	if err != nil {
		t.Fatalf("PrintDocument: %v", err)
	}
	if !strings.Contains(string(doc), "14.3.2026") {
		t.Error("finnish date layout not applied")
	}
	if !strings.Contains(string(doc), `lang="fi"`) {
		t.Error("document language not set")
	}
}

type recordingSurface struct {
	doc []byte
	err error
}

func (s *recordingSurface) Open(_ context.Context, doc []byte) error {
	s.doc = doc
	return s.err
}

func TestPrint(t *testing.T) {
	s := &recordingSurface{}
	if !Print(context.Background(), s, sample, LabelsFor(settings.English), time.Now(), zerolog.Nop()) {
		t.Fatal("Print = false")
	}
	if !bytes.Contains(s.doc, []byte("He said")) {
		t.Error("surface did not receive the document")
	}

	s = &recordingSurface{err: errors.New("no display")}
	if Print(context.Background(), s, sample, LabelsFor(settings.English), time.Now(), zerolog.Nop()) {
		t.Error("Print = true with failing surface")
	}
}

func TestBrowserSurface(t *testing.T) {
	dir := t.TempDir()
	var opened string
	s := BrowserSurface{Dir: dir, Opener: func(_ context.Context, path string) error {
		opened = path
		return nil
	}}

	if err := s.Open(context.Background(), []byte("<html></html>")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if filepath.Dir(opened) != dir || !strings.HasSuffix(opened, ".html") {
		t.Errorf("opened = %q", opened)
	}
	data, err := os.ReadFile(opened)
	if err != nil || string(data) != "<html></html>" {
		t.Errorf("document = %q, %v", data, err)
	}
}

func TestBrowserSurfaceUnavailable(t *testing.T) {
	s := BrowserSurface{Dir: t.TempDir(), Opener: func(context.Context, string) error {
		return errors.New("xdg-open: not found")
	}}

	err := s.Open(context.Background(), []byte("x"))
	if !errors.Is(err, apperr.ErrExportSurfaceUnavailable) {
		t.Errorf("Open = %v, want export surface unavailable", err)
	}
}
