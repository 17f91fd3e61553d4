package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/jwulff/scribe/internal/i18n"
	"github.com/jwulff/scribe/internal/ledger"
	"github.com/jwulff/scribe/internal/settings"
)

// Labels are the localized strings of the print document.
type Labels struct {
	Lang       settings.Language
	Title      string
	DateLabel  string
	TotalLabel string
	DateLayout string
}

// LabelsFor returns the print labels for lang.
func LabelsFor(lang settings.Language) Labels {
	t := i18n.For(lang)
	return Labels{
		Lang:       lang,
		Title:      t.ConfirmedTranscripts,
		DateLabel:  t.PDFDate,
		TotalLabel: t.PDFTotalTranscripts,
		DateLayout: t.DateLayout,
	}
}

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Title}} - {{.Date}}</title>
<style>
@page { margin: 2cm; }
body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
h1 { color: #2196F3; border-bottom: 3px solid #2196F3; padding-bottom: 10px; margin-bottom: 30px; font-size: 24px; }
.meta { color: #666; font-size: 13px; margin-bottom: 30px; }
.transcript { margin-bottom: 25px; padding: 15px; border-left: 4px solid #2196F3; background-color: #f5f5f5; page-break-inside: avoid; }
.timestamp { color: #2196F3; font-weight: 600; font-size: 13px; margin-bottom: 8px; }
.text { font-size: 14px; line-height: 1.8; }
@media print { body { padding: 0; } }
</style>
</head>
<body onload="window.print()">
<h1>{{.Title}}</h1>
<div class="meta">
<strong>{{.DateLabel}}:</strong> {{.Date}}<br>
<strong>{{.TotalLabel}}:</strong> {{.Total}}
</div>
{{range .Transcripts}}<div class="transcript">
<div class="timestamp">🕒 {{.Timestamp}}</div>
<div class="text">{{.Text}}</div>
</div>
{{end}}</body>
</html>
`))

type printData struct {
	Labels
	Date        string
	Total       string
	Transcripts []ledger.Transcript
}

// PrintDocument renders transcripts as a self-contained HTML page that
// opens the print dialog when loaded. Transcript text is HTML-escaped.
func PrintDocument(transcripts []ledger.Transcript, labels Labels, now time.Time) ([]byte, error) {
	layout := labels.DateLayout
	if layout == "" {
		layout = "2006-01-02"
	}
	data := printData{
		Labels:      labels,
		Date:        now.Format(layout),
		Total:       i18n.Count(labels.Lang, len(transcripts)),
		Transcripts: transcripts,
	}

	var b bytes.Buffer
	if err := printTemplate.Execute(&b, data); err != nil {
		return nil, fmt.Errorf("render print document: %w", err)
	}
	return b.Bytes(), nil
}
