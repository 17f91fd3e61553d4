// Package db provides SQLite-backed key/value persistence for scribe's
// client settings.
package db

import "time"

// Setting is one persisted scalar.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
