package session

import "context"

// Constraints are the microphone options passed to the engine.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	// DeviceID is empty for the platform default input.
	DeviceID string
}

// EventKind classifies an engine event.
type EventKind int

const (
	EventPartial EventKind = iota
	EventCommitted
	EventConnected
	EventDisconnected
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventPartial:
		return "partial"
	case EventCommitted:
		return "committed"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// Event is delivered by a live engine session.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Handle is a live engine session. Events is closed once the session has
// fully ended.
type Handle interface {
	Events() <-chan Event
}

// Capability is the external streaming transcription engine.
type Capability interface {
	// Supported reports whether the engine can be reached on this platform.
	Supported() bool
	// Connect starts capture and streaming with a single-use token. It must
	// abort and return promptly when ctx is cancelled.
	Connect(ctx context.Context, token string, c Constraints) (Handle, error)
	// Disconnect ends the session. It is idempotent and never fails from
	// the caller's point of view.
	Disconnect(h Handle)
}

// TokenSource mints single-use tokens. *token.Provider implements it.
type TokenSource interface {
	FetchToken(ctx context.Context, overrideKey string) (string, error)
}

// Messages supplies localized notification text.
type Messages interface {
	RecordingStarted() string
	StartFailed(err error) string
	ConnectionLost(err error) string
}
