// Package notify holds the single transient, severity-tagged message shown
// to the user, and expires it on a cancellable timer.
package notify

import (
	"sync"
	"time"
)

// Severity tags a notification.
type Severity string

const (
	Error   Severity = "error"
	Success Severity = "success"
	Info    Severity = "info"
)

// Default lifetimes. Errors linger so there is time to read them.
const (
	InfoTTL    = 2 * time.Second
	SuccessTTL = 3 * time.Second
	ErrorTTL   = 10 * time.Second
)

// DefaultTTL returns the lifetime used when Show is given ttl <= 0.
func DefaultTTL(sev Severity) time.Duration {
	switch sev {
	case Error:
		return ErrorTTL
	case Success:
		return SuccessTTL
	default:
		return InfoTTL
	}
}

// Notification is the live message.
type Notification struct {
	ID        uint64
	Message   string
	Severity  Severity
	ExpiresAt time.Time
}

// Timer is the part of *time.Timer the Notifier uses.
type Timer interface {
	Stop() bool
}

// Notifier owns at most one live Notification and its expiry timer.
type Notifier struct {
	mu      sync.Mutex
	current *Notification
	timer   Timer
	seq     uint64

	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer
	onChange  func()
}

// New creates a Notifier. onChange (may be nil) is called after every show,
// dismiss and expiry, outside the Notifier's lock.
func New(onChange func()) *Notifier {
	return &Notifier{
		now: time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		onChange: onChange,
	}
}

// Show replaces the current notification and restarts the expiry timer.
func (n *Notifier) Show(message string, sev Severity, ttl time.Duration) Notification {
	if ttl <= 0 {
		ttl = DefaultTTL(sev)
	}

	n.mu.Lock()
	n.stopTimerLocked()
	n.seq++
	id := n.seq
	note := Notification{
		ID:        id,
		Message:   message,
		Severity:  sev,
		ExpiresAt: n.now().Add(ttl),
	}
	n.current = &note
	n.timer = n.afterFunc(ttl, func() { n.expire(id) })
	n.mu.Unlock()

	n.changed()
	return note
}

// Dismiss clears the current notification immediately.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if n.current == nil {
		n.mu.Unlock()
		return
	}
	n.stopTimerLocked()
	n.current = nil
	n.mu.Unlock()

	n.changed()
}

// Current returns the live notification, if any.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

// expire clears the notification only if it is still the one the timer
// was armed for.
func (n *Notifier) expire(id uint64) {
	n.mu.Lock()
	if n.current == nil || n.current.ID != id {
		n.mu.Unlock()
		return
	}
	n.current = nil
	n.timer = nil
	n.mu.Unlock()

	n.changed()
}

func (n *Notifier) stopTimerLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) changed() {
	if n.onChange != nil {
		n.onChange()
	}
}
