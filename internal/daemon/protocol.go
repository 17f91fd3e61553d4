// Package daemon provides the client and protocol types for talking to the
// local transcription engine daemon over a Unix socket using NDJSON, and an
// Engine that adapts it to the session and device interfaces.
package daemon

// Command names.
const (
	CmdSubscribe = "subscribe"
	CmdStart     = "start"
	CmdStop      = "stop"
	CmdStatus    = "status"
	CmdDevices   = "devices"
	CmdProbe     = "probe"
	CmdRelease   = "release"
)

// Event names streamed to subscribers.
const (
	EventPartial      = "partial"
	EventCommitted    = "committed"
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventError        = "error"
)

// CodePermissionDenied is the response code for a refused microphone.
const CodePermissionDenied = "PERMISSION_DENIED"

// Command is sent from a client to the daemon.
type Command struct {
	Cmd              string   `json:"cmd"`
	Token            string   `json:"token,omitempty"`
	Model            string   `json:"model,omitempty"`
	Device           string   `json:"device,omitempty"`
	EchoCancellation *bool    `json:"echoCancellation,omitempty"`
	NoiseSuppression *bool    `json:"noiseSuppression,omitempty"`
	ProbeID          string   `json:"probeId,omitempty"`
	Events           []string `json:"events,omitempty"`
}

// DeviceInfo describes one media device known to the daemon.
type DeviceInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK        bool         `json:"ok"`
	SessionID string       `json:"sessionId,omitempty"`
	Devices   []DeviceInfo `json:"devices,omitempty"`
	ProbeID   string       `json:"probeId,omitempty"`
	Error     string       `json:"error,omitempty"`
	Code      string       `json:"code,omitempty"`
}

// Event is streamed from the daemon to subscribed clients.
type Event struct {
	Event     string `json:"event"`
	Text      string `json:"text,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
}

// BoolPtr returns a pointer to a bool value. Convenience for building commands.
func BoolPtr(b bool) *bool { return &b }
