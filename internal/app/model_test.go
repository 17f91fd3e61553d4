package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwulff/scribe/internal/devices"
	"github.com/jwulff/scribe/internal/i18n"
	"github.com/jwulff/scribe/internal/ledger"
	"github.com/jwulff/scribe/internal/notify"
	"github.com/jwulff/scribe/internal/session"
	"github.com/jwulff/scribe/internal/settings"
	"github.com/rs/zerolog"
)

type fakeSessions struct {
	mu     sync.Mutex
	snap   session.Snapshot
	starts int
	stops  int
}

func (f *fakeSessions) Toggle(context.Context) (bool, func() error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap.State.Active() {
		f.stops++
		f.snap.State = session.Idle
		return false, func() error { return nil }
	}
	f.starts++
	f.snap.State = session.Recording
	return true, func() error { return nil }
}

func (f *fakeSessions) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

type fakeMics []devices.Microphone

func (f fakeMics) ListMicrophones(context.Context) []devices.Microphone { return f }

type fakeSurface struct {
	err    error
	opened int
}

func (s *fakeSurface) Open(context.Context, []byte) error {
	s.opened++
	return s.err
}

type testEnv struct {
	m        Model
	sessions *fakeSessions
	settings *settings.Store
	notices  *notify.Notifier
	ledger   *ledger.Ledger
	surface  *fakeSurface
	dir      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		sessions: &fakeSessions{},
		settings: settings.NewStore(nil, zerolog.Nop()),
		notices:  notify.New(nil),
		ledger:   ledger.New(),
		surface:  &fakeSurface{},
		dir:      t.TempDir(),
	}
	t.Cleanup(env.notices.Dismiss)
	env.m = New(Deps{
		Sessions:    env.sessions,
		Settings:    env.settings,
		Mics:        fakeMics{{ID: "a", Label: "Built-in"}, {ID: "b", Label: "USB Mic"}},
		Notices:     env.notices,
		Transcripts: env.ledger,
		Surface:     env.surface,
		ExportDir:   env.dir,
		TokenURL:    "http://localhost:8787/token",
		Log:         zerolog.Nop(),
		Now:         func() time.Time { return time.Date(2026, 5, 6, 10, 0, 0, 0, time.UTC) },
	})
	env.m.width = 100
	env.m.height = 30
	return env
}

func (env *testEnv) press(t *testing.T, key string) tea.Cmd {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case KeySpace:
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case KeyEnter:
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case KeyEsc:
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, cmd := env.m.Update(msg)
	env.m = updated.(Model)
	return cmd
}

func (env *testEnv) apply(msg tea.Msg) tea.Cmd {
	updated, cmd := env.m.Update(msg)
	env.m = updated.(Model)
	return cmd
}

func (env *testEnv) notice(t *testing.T) notify.Notification {
	t.Helper()
	n, ok := env.notices.Current()
	if !ok {
		t.Fatal("no notification shown")
	}
	return n
}

func TestNewModel(t *testing.T) {
	env := newTestEnv(t)
	if !env.m.transcriptLive {
		t.Error("new model should be in live mode")
	}
	if env.m.settingsOpen {
		t.Error("settings panel should start closed")
	}
}

func TestSpaceStartsWhenIdle(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.press(t, KeySpace)
	if cmd == nil {
		t.Fatal("space should return a start command")
	}
	if _, ok := cmd().(StartResultMsg); !ok {
		t.Error("start command should produce StartResultMsg")
	}
	if env.sessions.starts != 1 {
		t.Errorf("starts = %d, want 1", env.sessions.starts)
	}
}

type gatedHandle struct{ events chan session.Event }

func (h *gatedHandle) Events() <-chan session.Event { return h.events }

// gatedCapability holds Connect until gate closes, then connects regardless
// of ctx, like an engine that finished its handshake just as the user
// asked to stop.
type gatedCapability struct {
	gate chan struct{}

	mu          sync.Mutex
	disconnects int
}

func (g *gatedCapability) Supported() bool { return true }

func (g *gatedCapability) Connect(context.Context, string, session.Constraints) (session.Handle, error) {
	<-g.gate
	return &gatedHandle{events: make(chan session.Event)}, nil
}

func (g *gatedCapability) Disconnect(h session.Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnects++
	close(h.(*gatedHandle).events)
}

type staticToken string

func (s staticToken) FetchToken(context.Context, string) (string, error) { return string(s), nil }

func TestSpaceTwiceWhileConnectingStops(t *testing.T) {
	env := newTestEnv(t)
	capability := &gatedCapability{gate: make(chan struct{})}
	ctrl := session.New(session.Options{
		Capability: capability,
		Tokens:     staticToken("tok"),
		Settings:   env.settings,
		Notifier:   env.notices,
		Ledger:     env.ledger,
		Messages:   i18n.NewCatalog(func() settings.Language { return settings.English }),
		Log:        zerolog.Nop(),
	})
	env.m.deps.Sessions = ctrl

	first := env.press(t, KeySpace)
	if got := ctrl.Snapshot().State; got != session.Connecting {
		t.Fatalf("state after first space = %v, want connecting", got)
	}
	second := env.press(t, KeySpace)
	if got := ctrl.Snapshot().State; got != session.Idle {
		t.Fatalf("state after second space = %v, want idle", got)
	}

	startDone := make(chan tea.Msg, 1)
	go func() { startDone <- first() }()
	if msg, ok := second().(StopResultMsg); !ok || !msg.Stopped {
		t.Errorf("second command result = %#v, want StopResultMsg", msg)
	}
	close(capability.gate)

	select {
	case msg := <-startDone:
		res, ok := msg.(StartResultMsg)
		if !ok || !errors.Is(res.Err, session.ErrCancelled) {
			t.Errorf("first command result = %#v, want ErrCancelled", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("start command did not return")
	}

	if got := ctrl.Snapshot().State; got != session.Idle {
		t.Errorf("state = %v, want idle", got)
	}
	capability.mu.Lock()
	disconnects := capability.disconnects
	capability.mu.Unlock()
	if disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", disconnects)
	}
}

func TestSpaceStopsWhenActive(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.snap.State = session.Connecting

	cmd := env.press(t, KeySpace)
	if cmd == nil {
		t.Fatal("space should return a stop command")
	}
	if msg, ok := cmd().(StopResultMsg); !ok || !msg.Stopped {
		t.Errorf("stop command result = %+v", msg)
	}
	if env.sessions.starts != 0 || env.sessions.stops != 1 {
		t.Errorf("starts/stops = %d/%d, want 0/1", env.sessions.starts, env.sessions.stops)
	}
}

func TestExportEmptyLedgerShortCircuits(t *testing.T) {
	for _, key := range []string{KeyExportCSV, KeyExportPrint} {
		env := newTestEnv(t)

		if cmd := env.press(t, key); cmd != nil {
			t.Errorf("%s: export command issued for empty ledger", key)
		}
		n := env.notice(t)
		if n.Severity != notify.Info || n.Message != "No transcripts to export" {
			t.Errorf("%s: notification = %+v", key, n)
		}
		if env.surface.opened != 0 {
			t.Errorf("%s: surface opened", key)
		}
		entries, _ := os.ReadDir(env.dir)
		if len(entries) != 0 {
			t.Errorf("%s: files written: %d", key, len(entries))
		}
	}
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.Append(`He said "hi"`, "10:00:00")

	cmd := env.press(t, KeyExportCSV)
	if cmd == nil {
		t.Fatal("expected export command")
	}
	msg := cmd().(ExportResultMsg)
	if !msg.OK {
		t.Fatalf("export failed: %v", msg.Err)
	}
	if want := filepath.Join(env.dir, "transcripts_2026-05-06.csv"); msg.Path != want {
		t.Errorf("path = %q, want %q", msg.Path, want)
	}

	env.apply(msg)
	n := env.notice(t)
	if n.Severity != notify.Success || !strings.Contains(n.Message, "exported") {
		t.Errorf("notification = %+v", n)
	}
}

func TestPrintSurfaceFailureNotifies(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.Append("hello", "10:00:00")
	env.surface.err = errors.New("no browser")

	msg := env.press(t, KeyExportPrint)().(ExportResultMsg)
	if msg.OK {
		t.Fatal("print reported success with failing surface")
	}
	env.apply(msg)
	if n := env.notice(t); n.Severity != notify.Error {
		t.Errorf("notification = %+v, want error", n)
	}
}

func TestToggleEchoCancellation(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, KeyEcho)
	if env.settings.Current().EchoCancellation {
		t.Error("echo cancellation should be off after toggle")
	}
	n := env.notice(t)
	if n.Message != "Echo Cancellation disabled" || n.Severity != notify.Info {
		t.Errorf("notification = %+v", n)
	}

	env.press(t, KeyNoise)
	if env.settings.Current().NoiseSuppression {
		t.Error("noise suppression should be off after toggle")
	}
}

func TestCycleMicrophone(t *testing.T) {
	env := newTestEnv(t)
	env.apply(MicrophonesMsg{Mics: []devices.Microphone{{ID: "a", Label: "Built-in"}, {ID: "b", Label: "USB Mic"}}})

	want := []struct{ id, label string }{
		{"a", "Built-in"},
		{"b", "USB Mic"},
		{"", "Default Microphone"},
	}
	for i, w := range want {
		env.press(t, KeyCycleMic)
		if got := env.settings.Current().SelectedMicrophoneID; got != w.id {
			t.Errorf("step %d: microphone = %q, want %q", i, got, w.id)
		}
		if n := env.notice(t); n.Message != "Microphone changed: "+w.label {
			t.Errorf("step %d: notification = %q", i, n.Message)
		}
	}
}

func TestLanguageToggle(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, KeyLanguage)
	if got := env.settings.Current().Language; got != settings.Finnish {
		t.Fatalf("language = %q, want fi", got)
	}
	if n := env.notice(t); n.Message != "Kieli vaihdettu" {
		t.Errorf("notification = %q", n.Message)
	}

	env.press(t, KeyLanguage)
	if got := env.settings.Current().Language; got != settings.English {
		t.Errorf("language = %q, want en", got)
	}
}

func TestAPIKeyEntry(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, KeyAPIKey)
	if !env.m.editingKey {
		t.Fatal("k should open the key input")
	}
	// While editing, command keys are text.
	env.press(t, "sk_")
	env.press(t, "q")
	env.press(t, KeyEnter)

	if env.m.editingKey {
		t.Error("enter should close the key input")
	}
	if got := env.settings.Current().APIKeyOverride; got != "sk_q" {
		t.Errorf("override = %q, want %q", got, "sk_q")
	}
	if n := env.notice(t); n.Severity != notify.Success {
		t.Errorf("notification = %+v", n)
	}

	env.press(t, KeyClearAPIKey)
	if got := env.settings.Current().APIKeyOverride; got != "" {
		t.Errorf("override after clear = %q", got)
	}
	if n := env.notice(t); n.Severity != notify.Info {
		t.Errorf("notification = %+v", n)
	}
}

func TestAPIKeyEntryBlankIgnored(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, KeyAPIKey)
	env.press(t, "  ")
	env.press(t, KeyEnter)
	if !env.m.editingKey {
		t.Error("blank key should keep the input open")
	}
	env.press(t, KeyEsc)
	if env.m.editingKey {
		t.Error("esc should close the input")
	}
	if got := env.settings.Current().APIKeyOverride; got != "" {
		t.Errorf("override = %q, want empty", got)
	}
}

func TestInsecureTransport(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"http://localhost:8787/token", false},
		{"http://127.0.0.1:8787/token", false},
		{"http://[::1]:8787/token", false},
		{"https://scribe.example.com/token", false},
		{"http://scribe.example.com/token", true},
		{"http://192.168.1.20:8787/token", true},
	}
	for _, c := range cases {
		if got := InsecureTransport(c.url); got != c.want {
			t.Errorf("InsecureTransport(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestInsecureTransportWarning(t *testing.T) {
	env := newTestEnv(t)
	cmd := checkTransportCmd("http://scribe.example.com/token", env.notices, env.m.t())
	if cmd == nil {
		t.Fatal("expected a warning command")
	}
	cmd()
	if n := env.notice(t); n.Severity != notify.Error {
		t.Errorf("notification = %+v", n)
	}
}

func TestRefreshRearmsWait(t *testing.T) {
	env := newTestEnv(t)
	env.m.deps.Updates = NewUpdates()

	if cmd := env.apply(RefreshMsg{}); cmd == nil {
		t.Error("refresh should wait for the next update")
	}
}

func TestUpdatesCoalesce(t *testing.T) {
	u := NewUpdates()
	u.Signal()
	u.Signal()
	if _, ok := waitForUpdate(u)().(RefreshMsg); !ok {
		t.Error("expected RefreshMsg")
	}
	select {
	case <-u:
		t.Error("second signal should have been coalesced")
	default:
	}
}

func TestViewRendersTranscripts(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.Append("first line", "10:00:01")
	env.sessions.snap = session.Snapshot{State: session.Recording, Partial: "still talk"}

	view := env.m.View()
	for _, want := range []string{"REALTIME SCRIBE", "[10:00:01]", "first line", "still talk", "Recording..."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewSettingsPanel(t *testing.T) {
	env := newTestEnv(t)
	env.m.width = 140
	env.press(t, KeySettings)

	view := env.m.View()
	for _, want := range []string{"MICROPHONE SETTINGS", "Echo Cancellation", "Using server default key"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewWithoutSize(t *testing.T) {
	env := newTestEnv(t)
	env.m.width = 0
	if view := env.m.View(); view != "Initializing..." {
		t.Errorf("view without size = %q, want 'Initializing...'", view)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if len(got) != len(want) {
		t.Fatalf("wrapText = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}
