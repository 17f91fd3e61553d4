package app

import tea "github.com/charmbracelet/bubbletea"

// Updates coalesces change signals from background goroutines into redraws.
type Updates chan struct{}

// NewUpdates creates an Updates with room for one pending signal.
func NewUpdates() Updates {
	return make(Updates, 1)
}

// Signal records a pending change without blocking.
func (u Updates) Signal() {
	select {
	case u <- struct{}{}:
	default:
	}
}

// waitForUpdate blocks until the next signal.
func waitForUpdate(u Updates) tea.Cmd {
	if u == nil {
		return nil
	}
	return func() tea.Msg {
		<-u
		return RefreshMsg{}
	}
}
