// Package ledger keeps the append-only record of committed transcript text.
package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// TimestampLayout formats the wall-clock commit time.
const TimestampLayout = "15:04:05"

// Transcript is one finalized, immutable piece of recognized text.
type Transcript struct {
	ID        string
	Text      string
	Timestamp string
}

// Ledger is an ordered, deduplicated list of Transcripts. An entry whose
// text exactly matches any existing entry is dropped, which tolerates
// re-delivered commit events.
type Ledger struct {
	mu      sync.RWMutex
	entries []Transcript
	seen    map[string]struct{}
	newID   func() string
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{
		seen:  make(map[string]struct{}),
		newID: uuid.NewString,
	}
}

// Append adds text stamped with timestamp. It reports false (and adds
// nothing) for empty text or text already present.
func (l *Ledger) Append(text, timestamp string) (Transcript, bool) {
	if text == "" {
		return Transcript{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[text]; dup {
		return Transcript{}, false
	}

	t := Transcript{ID: l.newID(), Text: text, Timestamp: timestamp}
	l.entries = append(l.entries, t)
	l.seen[text] = struct{}{}
	return t, true
}

// All returns a copy of the entries in arrival order.
func (l *Ledger) All() []Transcript {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Transcript, len(l.entries))
	copy(out, l.entries)
	return out
}

// Count returns the number of entries.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
