// Package session drives the connect/record/disconnect lifecycle of the
// external transcription engine and routes its events into the transcript
// ledger and the notifier.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jwulff/scribe/internal/apperr"
	"github.com/jwulff/scribe/internal/ledger"
	"github.com/jwulff/scribe/internal/notify"
	"github.com/jwulff/scribe/internal/settings"
	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// State is the controller's lifecycle state.
type State int

const (
	Idle State = iota
	Connecting
	Recording
	// Error is transient: it resolves to Idle within the same transition.
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Recording:
		return "recording"
	case Error:
		return "error"
	}
	return "unknown"
}

// Active reports whether a connect attempt or session is live.
func (s State) Active() bool {
	return s == Connecting || s == Recording
}

// ConnectionLostTTL is how long mid-session engine errors stay visible.
const ConnectionLostTTL = 5 * time.Second

var (
	// ErrBusy is returned by Start outside Idle.
	ErrBusy = errors.New("session already active")
	// ErrCancelled is returned by Start when Stop ran during the attempt.
	ErrCancelled = errors.New("session start cancelled")
)

// Notifier receives user-facing messages. *notify.Notifier implements it.
type Notifier interface {
	Show(message string, sev notify.Severity, ttl time.Duration) notify.Notification
}

// Ledger receives committed text. *ledger.Ledger implements it.
type Ledger interface {
	Append(text, timestamp string) (ledger.Transcript, bool)
}

// SettingsSource provides the current connect parameters.
// *settings.Store implements it.
type SettingsSource interface {
	Current() settings.Settings
}

// Options wires a Controller to its collaborators.
type Options struct {
	Capability Capability
	Tokens     TokenSource
	Settings   SettingsSource
	Notifier   Notifier
	Ledger     Ledger
	Messages   Messages
	Log        zerolog.Logger
	// OnChange (optional) is called after every state or partial update.
	OnChange func()
}

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	State     State
	Partial   string
	SessionID string
	LastErr   error
}

// Controller is the session state machine. Only one connect attempt or
// session is live at a time.
type Controller struct {
	capability Capability
	tokens     TokenSource
	settings   SettingsSource
	notifier   Notifier
	ledger     Ledger
	messages   Messages
	log        zerolog.Logger
	onChange   func()
	now        func() time.Time

	mu        sync.Mutex
	state     State
	partial   string
	sessionID string
	lastErr   error
	handle    Handle
	cancel    context.CancelFunc
	// attempt increments on every start and stop so that work belonging to
	// a superseded attempt can detect it and back off.
	attempt uint64
}

// New creates an idle Controller.
func New(opts Options) *Controller {
	return &Controller{
		capability: opts.Capability,
		tokens:     opts.Tokens,
		settings:   opts.Settings,
		notifier:   opts.Notifier,
		ledger:     opts.Ledger,
		messages:   opts.Messages,
		log:        opts.Log,
		onChange:   opts.OnChange,
		now:        time.Now,
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, Partial: c.partial, SessionID: c.sessionID, LastErr: c.lastErr}
}

// ConstraintsFrom derives microphone constraints from settings.
func ConstraintsFrom(st settings.Settings) Constraints {
	return Constraints{
		EchoCancellation: st.EchoCancellation,
		NoiseSuppression: st.NoiseSuppression,
		DeviceID:         st.SelectedMicrophoneID,
	}
}

// Start fetches a token and connects the engine. It blocks until the
// session is recording, fails, or is cancelled by Stop. Failures are
// reported to the notifier and returned; the controller is Idle again
// afterwards.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	p := c.beginLocked(ctx)
	c.mu.Unlock()
	c.changed()
	return p.run()
}

// Stop ends the live attempt or session. It reports false (no-op) when
// nothing is live. The controller is Idle on return.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	if !c.state.Active() {
		c.mu.Unlock()
		return false
	}
	h := c.haltLocked()
	c.mu.Unlock()

	c.release(h)
	c.changed()
	return true
}

// Toggle stops a live attempt or session, otherwise claims a new start.
// The state change is made before Toggle returns, so a second call always
// sees the first. finish does the blocking remainder (token fetch and
// connect after a start, engine release after a stop) and must be called
// exactly once.
func (c *Controller) Toggle(ctx context.Context) (started bool, finish func() error) {
	c.mu.Lock()
	if c.state.Active() {
		h := c.haltLocked()
		c.mu.Unlock()
		c.changed()
		return false, func() error {
			c.release(h)
			return nil
		}
	}
	p := c.beginLocked(ctx)
	c.mu.Unlock()
	c.changed()
	return true, p.run
}

// pending is a start that has moved the controller to Connecting but has
// not fetched a token or connected yet.
type pending struct {
	c       *Controller
	attempt uint64
	ctx     context.Context
	st      settings.Settings
	log     zerolog.Logger
}

func (c *Controller) beginLocked(ctx context.Context) pending {
	c.attempt++
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.sessionID = newSessionID(c.attempt)
	c.partial = ""
	c.lastErr = nil
	c.setStateLocked(Connecting)
	return pending{
		c:       c,
		attempt: c.attempt,
		ctx:     ctx,
		st:      c.settings.Current(),
		log:     c.log.With().Str("session", c.sessionID).Logger(),
	}
}

func (p pending) run() error {
	c, attempt, ctx, log := p.c, p.attempt, p.ctx, p.log

	if !c.capability.Supported() {
		return c.fail(attempt, apperr.New(apperr.CodeUnsupportedPlatform, "transcription engine unavailable"))
	}

	log.Debug().Msg("fetching token")
	tok, err := c.tokens.FetchToken(ctx, p.st.APIKeyOverride)
	if err != nil {
		return c.fail(attempt, err)
	}

	constraints := ConstraintsFrom(p.st)
	log.Debug().
		Bool("echo_cancellation", constraints.EchoCancellation).
		Bool("noise_suppression", constraints.NoiseSuppression).
		Str("device", constraints.DeviceID).
		Msg("connecting engine")

	h, err := c.capability.Connect(ctx, tok, constraints)
	if err != nil {
		return c.fail(attempt, err)
	}

	c.mu.Lock()
	if c.attempt != attempt || c.state != Connecting {
		c.mu.Unlock()
		log.Debug().Msg("connect finished after stop, releasing session")
		c.capability.Disconnect(h)
		return ErrCancelled
	}
	c.handle = h
	c.setStateLocked(Recording)
	c.mu.Unlock()

	go c.pump(attempt, h)

	log.Info().Msg("recording")
	c.notifier.Show(c.messages.RecordingStarted(), notify.Success, notify.SuccessTTL)
	c.changed()
	return nil
}

// haltLocked moves a live attempt or session to Idle and returns the
// engine session to release, if any.
func (c *Controller) haltLocked() Handle {
	c.attempt++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	h := c.handle
	c.handle = nil
	c.partial = ""
	c.setStateLocked(Idle)
	return h
}

func (c *Controller) release(h Handle) {
	if h != nil {
		c.capability.Disconnect(h)
	}
}

// fail resolves a start failure through Error back to Idle and notifies.
func (c *Controller) fail(attempt uint64, err error) error {
	c.mu.Lock()
	if c.attempt != attempt {
		// Stop already moved us to Idle; the error is a consequence of that.
		c.mu.Unlock()
		return ErrCancelled
	}
	c.attempt++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.handle = nil
	c.partial = ""
	c.lastErr = err
	c.setStateLocked(Error)
	c.setStateLocked(Idle)
	c.mu.Unlock()

	c.log.Error().Err(err).Str("code", string(apperr.CodeOf(err))).Msg("session start failed")
	c.notifier.Show(c.messages.StartFailed(err), notify.Error, notify.ErrorTTL)
	c.changed()
	return err
}

// pump applies events in delivery order. It drains the channel even after
// the session is superseded so the engine's sender never blocks.
func (c *Controller) pump(attempt uint64, h Handle) {
	for ev := range h.Events() {
		c.apply(attempt, h, ev)
	}

	c.mu.Lock()
	if c.attempt == attempt && c.state.Active() {
		c.attempt++
		c.handle = nil
		c.partial = ""
		c.setStateLocked(Idle)
		c.mu.Unlock()
		c.log.Info().Msg("engine stream closed")
		c.changed()
		return
	}
	c.mu.Unlock()
}

func (c *Controller) apply(attempt uint64, h Handle, ev Event) {
	c.mu.Lock()
	if c.attempt != attempt {
		c.mu.Unlock()
		return
	}

	switch ev.Kind {
	case EventPartial:
		if c.state.Active() {
			c.partial = ev.Text
		}
		c.mu.Unlock()
		c.changed()

	case EventCommitted:
		c.partial = ""
		ts := c.now().Format(ledger.TimestampLayout)
		c.mu.Unlock()
		if _, added := c.ledger.Append(ev.Text, ts); added {
			c.log.Debug().Str("text", ev.Text).Msg("committed")
		} else {
			c.log.Debug().Str("text", ev.Text).Msg("dropped duplicate commit")
		}
		c.changed()

	case EventConnected:
		c.mu.Unlock()
		c.log.Debug().Msg("engine connected")

	case EventDisconnected:
		c.attempt++
		c.handle = nil
		c.partial = ""
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.setStateLocked(Idle)
		c.mu.Unlock()
		c.log.Info().Msg("engine disconnected")
		c.capability.Disconnect(h)
		c.changed()

	case EventFailed:
		err := ev.Err
		if err == nil {
			err = apperr.New(apperr.CodeCapability, "")
		}
		c.attempt++
		c.handle = nil
		c.partial = ""
		c.lastErr = err
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.setStateLocked(Error)
		c.setStateLocked(Idle)
		c.mu.Unlock()
		c.log.Error().Err(err).Msg("engine error")
		c.capability.Disconnect(h)
		c.notifier.Show(c.messages.ConnectionLost(err), notify.Error, ConnectionLostTTL)
		c.changed()

	default:
		c.mu.Unlock()
	}
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.log.Debug().Str("from", c.state.String()).Str("to", s.String()).Msg("state")
	c.state = s
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func newSessionID(attempt uint64) string {
	id, err := nanoid.New()
	if err != nil {
		return fmt.Sprintf("session-%d", attempt)
	}
	return id
}
