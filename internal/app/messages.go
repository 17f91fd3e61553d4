package app

import "github.com/jwulff/scribe/internal/devices"

// RefreshMsg is sent when the controller or notifier changed state outside
// the update loop.
type RefreshMsg struct{}

// MicrophonesMsg carries the enumerated audio inputs.
type MicrophonesMsg struct {
	Mics []devices.Microphone
}

// StartResultMsg is sent when a start attempt finished. Failures have
// already been reported through the notifier.
type StartResultMsg struct {
	Err error
}

// StopResultMsg is sent after a stop request completed.
type StopResultMsg struct {
	Stopped bool
}

// ExportKind names an export format.
type ExportKind int

const (
	ExportCSV ExportKind = iota
	ExportPrint
)

// ExportResultMsg carries the outcome of an export.
type ExportResultMsg struct {
	Kind ExportKind
	Path string
	OK   bool
	Err  error
}
