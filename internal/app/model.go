package app

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwulff/scribe/internal/devices"
	"github.com/jwulff/scribe/internal/export"
	"github.com/jwulff/scribe/internal/i18n"
	"github.com/jwulff/scribe/internal/ledger"
	"github.com/jwulff/scribe/internal/notify"
	"github.com/jwulff/scribe/internal/session"
	"github.com/jwulff/scribe/internal/settings"
	"github.com/jwulff/scribe/internal/ui"
	"github.com/rs/zerolog"

	tea "github.com/charmbracelet/bubbletea"
)

// Sessions is the part of *session.Controller the UI drives.
type Sessions interface {
	Toggle(ctx context.Context) (started bool, finish func() error)
	Snapshot() session.Snapshot
}

// MicLister lists selectable microphones. *devices.Enumerator implements it.
type MicLister interface {
	ListMicrophones(ctx context.Context) []devices.Microphone
}

// Transcripts is the read side of the ledger.
type Transcripts interface {
	All() []ledger.Transcript
	Count() int
}

// Notices is the notifier as seen by the UI.
type Notices interface {
	Show(message string, sev notify.Severity, ttl time.Duration) notify.Notification
	Current() (notify.Notification, bool)
	Dismiss()
}

// Deps wires the Model to the client components.
type Deps struct {
	Context     context.Context
	Sessions    Sessions
	Settings    *settings.Store
	Mics        MicLister
	Notices     Notices
	Transcripts Transcripts
	Surface     export.Surface
	ExportDir   string
	TokenURL    string
	Updates     Updates
	Log         zerolog.Logger
	Now         func() time.Time
}

// Model is the root bubbletea model for the scribe TUI.
type Model struct {
	deps Deps

	mics []devices.Microphone

	// UI state
	settingsOpen     bool
	editingKey       bool
	keyInput         []rune
	width            int
	height           int
	transcriptScroll int
	transcriptLive   bool
}

// New creates a new Model with default state.
func New(deps Deps) Model {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Model{
		deps:           deps,
		transcriptLive: true,
	}
}

// Init lists microphones, checks the token transport and starts listening
// for background changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listMicsCmd(m.deps.Context, m.deps.Mics),
		checkTransportCmd(m.deps.TokenURL, m.deps.Notices, m.t()),
		waitForUpdate(m.deps.Updates),
	)
}

// listMicsCmd enumerates audio inputs.
func listMicsCmd(ctx context.Context, mics MicLister) tea.Cmd {
	if mics == nil {
		return nil
	}
	return func() tea.Msg {
		return MicrophonesMsg{Mics: mics.ListMicrophones(ctx)}
	}
}

// checkTransportCmd warns when the token endpoint is plain HTTP to a
// remote host.
func checkTransportCmd(tokenURL string, notices Notices, t i18n.Translations) tea.Cmd {
	if !InsecureTransport(tokenURL) {
		return nil
	}
	return func() tea.Msg {
		notices.Show("⚠️ "+t.InsecureTransport, notify.Error, notify.ErrorTTL)
		return nil
	}
}

// InsecureTransport reports whether rawURL is plain HTTP to a host other
// than the local machine.
func InsecureTransport(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return false
	}
	return true
}

// toggleCmd finishes a start or stop already claimed by Toggle. A start
// blocks through token fetch and connect.
func toggleCmd(started bool, finish func() error) tea.Cmd {
	return func() tea.Msg {
		err := finish()
		if started {
			return StartResultMsg{Err: err}
		}
		return StopResultMsg{Stopped: true}
	}
}

// exportCSVCmd writes the CSV export.
func exportCSVCmd(dir string, transcripts []ledger.Transcript, now time.Time) tea.Cmd {
	return func() tea.Msg {
		path, err := export.WriteCSV(dir, transcripts, now)
		return ExportResultMsg{Kind: ExportCSV, Path: path, OK: err == nil, Err: err}
	}
}

// printCmd opens the print document.
func printCmd(ctx context.Context, surface export.Surface, transcripts []ledger.Transcript, labels export.Labels, now time.Time, log zerolog.Logger) tea.Cmd {
	return func() tea.Msg {
		ok := export.Print(ctx, surface, transcripts, labels, now, log)
		return ExportResultMsg{Kind: ExportPrint, OK: ok}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RefreshMsg:
		if m.transcriptLive {
			m.scrollToBottom()
		}
		return m, waitForUpdate(m.deps.Updates)

	case MicrophonesMsg:
		m.mics = msg.Mics
		return m, nil

	case StartResultMsg:
		if msg.Err != nil {
			m.deps.Log.Debug().Err(msg.Err).Msg("start finished")
		}
		return m, nil

	case StopResultMsg:
		return m, nil

	case ExportResultMsg:
		m.notifyExport(msg)
		return m, nil
	}

	return m, nil
}

func (m Model) notifyExport(msg ExportResultMsg) {
	t := m.t()
	switch {
	case msg.Kind == ExportCSV && msg.OK:
		m.deps.Log.Info().Str("path", msg.Path).Msg("csv exported")
		m.deps.Notices.Show(fmt.Sprintf("%s %s", t.TranscriptsExported, msg.Path), notify.Success, notify.SuccessTTL)
	case msg.Kind == ExportCSV:
		m.deps.Log.Error().Err(msg.Err).Msg("csv export failed")
		m.deps.Notices.Show(fmt.Sprintf("%s: %v", t.ExportFailed, msg.Err), notify.Error, notify.ErrorTTL)
	case msg.OK:
		m.deps.Notices.Show(t.TranscriptsExported, notify.Success, notify.SuccessTTL)
	default:
		m.deps.Notices.Show(t.PrintSurfaceUnavailable, notify.Error, notify.ErrorTTL)
	}
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editingKey {
		return m.handleKeyInput(msg)
	}

	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit

	case KeySpace:
		return m, toggleCmd(m.deps.Sessions.Toggle(m.deps.Context))

	case KeySettings:
		m.settingsOpen = !m.settingsOpen
		return m, nil

	case KeyEcho:
		on := !m.deps.Settings.Current().EchoCancellation
		m.deps.Settings.SetEchoCancellation(on)
		t := m.t()
		m.info(pick(on, t.EchoCancellationEnabled, t.EchoCancellationDisabled))
		return m, nil

	case KeyNoise:
		on := !m.deps.Settings.Current().NoiseSuppression
		m.deps.Settings.SetNoiseSuppression(on)
		t := m.t()
		m.info(pick(on, t.NoiseSuppressionEnabled, t.NoiseSuppressionDisabled))
		return m, nil

	case KeyCycleMic:
		id := m.nextMicrophone()
		m.deps.Settings.SetMicrophone(id)
		t := m.t()
		m.info(fmt.Sprintf("%s: %s", t.MicrophoneChanged, m.micLabel(id)))
		return m, nil

	case KeyLanguage:
		lang := settings.Finnish
		if m.deps.Settings.Current().Language == settings.Finnish {
			lang = settings.English
		}
		m.deps.Settings.SetLanguage(lang)
		m.info(i18n.For(lang).LanguageChanged)
		return m, nil

	case KeyAPIKey:
		m.editingKey = true
		m.keyInput = m.keyInput[:0]
		return m, nil

	case KeyClearAPIKey:
		m.deps.Settings.SetAPIKeyOverride("")
		m.deps.Notices.Show(m.t().APIKeyRemoved, notify.Info, notify.SuccessTTL)
		return m, nil

	case KeyExportCSV:
		if m.emptyExport() {
			return m, nil
		}
		return m, exportCSVCmd(m.deps.ExportDir, m.deps.Transcripts.All(), m.deps.Now())

	case KeyExportPrint:
		if m.emptyExport() {
			return m, nil
		}
		labels := export.LabelsFor(m.deps.Settings.Current().Language)
		return m, printCmd(m.deps.Context, m.deps.Surface, m.deps.Transcripts.All(), labels, m.deps.Now(), m.deps.Log)

	case KeyDismissNotice:
		m.deps.Notices.Dismiss()
		return m, nil

	case KeyUp:
		m.transcriptLive = false
		if m.transcriptScroll > 0 {
			m.transcriptScroll--
		}
		return m, nil

	case KeyDown:
		maxScroll := m.maxTranscriptScroll()
		m.transcriptScroll++
		if m.transcriptScroll >= maxScroll {
			m.transcriptScroll = maxScroll
			m.transcriptLive = true
		}
		return m, nil
	}

	return m, nil
}

// handleKeyInput edits the API key override.
func (m Model) handleKeyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEnter:
		key := strings.TrimSpace(string(m.keyInput))
		if key == "" {
			return m, nil
		}
		m.deps.Settings.SetAPIKeyOverride(key)
		m.editingKey = false
		m.keyInput = nil
		m.deps.Notices.Show("✅ "+m.t().APIKeySavedSuccess, notify.Success, notify.SuccessTTL)
		return m, nil

	case KeyEsc:
		m.editingKey = false
		m.keyInput = nil
		return m, nil

	case KeyBackspace:
		if len(m.keyInput) > 0 {
			m.keyInput = m.keyInput[:len(m.keyInput)-1]
		}
		return m, nil

	case KeyCtrlU:
		m.keyInput = m.keyInput[:0]
		return m, nil

	case KeyCtrlC:
		return m, tea.Quit
	}

	if msg.Type == tea.KeyRunes {
		m.keyInput = append(m.keyInput, msg.Runes...)
	}
	return m, nil
}

// emptyExport short-circuits exports of an empty ledger.
func (m Model) emptyExport() bool {
	if m.deps.Transcripts.Count() > 0 {
		return false
	}
	m.info(m.t().NoTranscriptsToExport)
	return true
}

func (m Model) info(message string) {
	m.deps.Notices.Show(message, notify.Info, notify.InfoTTL)
}

func (m Model) t() i18n.Translations {
	return i18n.For(m.deps.Settings.Current().Language)
}

// nextMicrophone cycles default, then each enumerated input.
func (m Model) nextMicrophone() string {
	current := m.deps.Settings.Current().SelectedMicrophoneID
	ids := []string{""}
	for _, mic := range m.mics {
		ids = append(ids, mic.ID)
	}
	for i, id := range ids {
		if id == current {
			return ids[(i+1)%len(ids)]
		}
	}
	return ids[0]
}

func (m Model) micLabel(id string) string {
	for _, mic := range m.mics {
		if mic.ID == id && mic.Label != "" {
			return mic.Label
		}
	}
	return m.t().DefaultMicrophone
}

func pick(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}

func (m *Model) scrollToBottom() {
	m.transcriptScroll = m.maxTranscriptScroll()
}

func (m Model) maxTranscriptScroll() int {
	totalLines := m.deps.Transcripts.Count()
	if m.deps.Sessions.Snapshot().Partial != "" {
		totalLines++
	}
	visible := m.transcriptVisibleLines()
	if totalLines <= visible {
		return 0
	}
	return totalLines - visible
}

func (m Model) transcriptVisibleLines() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + divider(1) + divider(1) + notice(1) + footer(1) + padding
	reserved := 8
	return max(5, m.height-reserved)
}

func (m Model) settingsPanelWidth() int {
	if m.width == 0 {
		return 34
	}
	return max(30, m.width*35/100)
}

func (m Model) transcriptPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	if !m.settingsOpen {
		return m.width
	}
	return max(30, m.width-m.settingsPanelWidth()-3)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	snap := m.deps.Sessions.Snapshot()
	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar(snap))
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderMainContent(snap))
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.editingKey {
		sections = append(sections, m.renderKeyInput())
	} else if n, ok := m.deps.Notices.Current(); ok {
		sections = append(sections, ui.NotificationStyle(n.Severity).Render(" "+n.Message+" "))
	}

	sections = append(sections, m.renderFooter(snap))

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	t := m.t()
	st := m.deps.Settings.Current()
	title := ui.TitleStyle.Render(strings.ToUpper(t.Title))
	device := ui.DimStyle.Render(" · " + m.micLabel(st.SelectedMicrophoneID))
	lang := ui.DimStyle.Render(" [" + string(st.Language) + "]")
	return title + device + lang
}

func (m Model) renderStatusBar(snap session.Snapshot) string {
	t := m.t()
	switch snap.State {
	case session.Recording:
		return ui.RecordingDotStyle.Render("● " + t.Recording)
	case session.Connecting:
		return ui.ConnectingDotStyle.Render("◌ " + t.Connecting)
	}
	return ui.IdleDotStyle.Render("○ " + t.Idle)
}

func (m Model) renderMainContent(snap session.Snapshot) string {
	contentH := m.transcriptVisibleLines()
	transcriptW := m.transcriptPanelWidth()
	transcriptPanel := m.renderTranscriptPanel(snap, transcriptW, contentH)
	if !m.settingsOpen {
		return transcriptPanel
	}

	settingsW := m.settingsPanelWidth()
	settingsPanel := m.renderSettingsPanel(settingsW, contentH)
	divider := ui.DividerStyle.Render(" │ ")

	settingsLines := strings.Split(settingsPanel, "\n")
	transcriptLines := strings.Split(transcriptPanel, "\n")

	var rows []string
	for i := 0; i < contentH; i++ {
		sl := strings.Repeat(" ", settingsW)
		if i < len(settingsLines) {
			sl = settingsLines[i]
		}
		tr := ""
		if i < len(transcriptLines) {
			tr = transcriptLines[i]
		}
		rows = append(rows, sl+divider+tr)
	}

	return strings.Join(rows, "\n")
}

func (m Model) renderSettingsPanel(width, height int) string {
	t := m.t()
	st := m.deps.Settings.Current()

	onOff := func(on bool) string {
		if on {
			return ui.SettingOnStyle.Render("on")
		}
		return ui.SettingOffStyle.Render("off")
	}
	row := func(key, label, value string) string {
		return ui.SettingKeyStyle.Render(key) + " " + label + ": " + value
	}

	keyState := ui.DimStyle.Render(t.APIKeyDefault)
	if st.APIKeyOverride != "" {
		keyState = ui.SettingOnStyle.Render(t.APIKeyInUse)
	}

	lines := []string{
		ui.PanelTitleActiveStyle.Render(strings.ToUpper(t.MicrophoneSettings)),
		row(KeyEcho, t.EchoCancellation, onOff(st.EchoCancellation)),
		row(KeyNoise, t.NoiseSuppression, onOff(st.NoiseSuppression)),
		row(KeyCycleMic, t.Microphone, m.micLabel(st.SelectedMicrophoneID)),
		"",
		ui.PanelTitleActiveStyle.Render(strings.ToUpper(t.Settings)),
		row(KeyLanguage, t.Language, string(st.Language)),
		row(KeyAPIKey, t.APIKey, keyState),
		"",
		ui.PanelTitleActiveStyle.Render(strings.ToUpper(t.ExportSettings)),
		ui.SettingKeyStyle.Render(KeyExportCSV) + " " + t.ExportCSV,
		ui.SettingKeyStyle.Render(KeyExportPrint) + " " + t.ExportPDF,
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, l := range lines {
		lines[i] = padRight(truncateToWidth(l, width), width)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTranscriptPanel(snap session.Snapshot, width, height int) string {
	t := m.t()
	entries := m.deps.Transcripts.All()

	badge := ui.LiveBadgeStyle.Render(" LIVE")
	if !m.transcriptLive {
		badge = ui.ScrollBadgeStyle.Render(" SCROLL")
	}
	header := ui.PanelTitleStyle.Render(fmt.Sprintf("%s (%s)",
		strings.ToUpper(t.ConfirmedTranscripts), i18n.Count(m.deps.Settings.Current().Language, len(entries)))) + badge

	lines := []string{header}
	contentHeight := height - 1

	if len(entries) == 0 && snap.Partial == "" {
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  "+t.StartRecordingPrompt))
	} else {
		// Prefix: "[HH:MM:SS] " = 11 chars visible
		prefixWidth := 11
		textWidth := max(10, width-prefixWidth-2)
		indentStr := strings.Repeat(" ", prefixWidth)

		var displayLines []string
		for _, e := range entries {
			ts := ui.TimestampStyle.Render("[" + e.Timestamp + "]")
			wrapped := wrapText(e.Text, textWidth)
			displayLines = append(displayLines, ts+" "+wrapped[0])
			for _, wl := range wrapped[1:] {
				displayLines = append(displayLines, indentStr+wl)
			}
		}

		if snap.Partial != "" {
			label := ui.PartialTextStyle.Render(fmt.Sprintf("%-11s", "["+t.Realtime+"]"))
			wrapped := wrapText(snap.Partial+"▌", textWidth)
			displayLines = append(displayLines, label+ui.PartialTextStyle.Render(wrapped[0]))
			for _, wl := range wrapped[1:] {
				displayLines = append(displayLines, indentStr+ui.PartialTextStyle.Render(wl))
			}
		}

		start := 0
		if m.transcriptLive {
			if len(displayLines) > contentHeight {
				start = len(displayLines) - contentHeight
			}
		} else {
			start = m.transcriptScroll
		}
		if start < 0 {
			start = 0
		}

		end := start + contentHeight
		if end > len(displayLines) {
			end = len(displayLines)
		}

		for i := start; i < end; i++ {
			lines = append(lines, "  "+displayLines[i])
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderKeyInput() string {
	t := m.t()
	masked := strings.Repeat("•", len(m.keyInput))
	return ui.SettingKeyStyle.Render(t.SetAPIKey+": ") + ui.InputStyle.Render(masked+"▌") +
		ui.DimStyle.Render("  "+t.APIKeyPrompt)
}

func (m Model) renderFooter(snap session.Snapshot) string {
	t := m.t()
	key := func(k, desc string) string {
		return ui.FooterKeyStyle.Render(k) + ui.FooterDescStyle.Render(" "+desc)
	}

	if m.editingKey {
		return strings.Join([]string{
			key("Enter", t.Save),
			key("Esc", t.Cancel),
		}, "  ")
	}

	var parts []string
	if snap.State.Active() {
		parts = append(parts, key("Space", t.Stop))
	} else {
		parts = append(parts, key("Space", t.Start))
	}
	parts = append(parts, key(KeySettings, t.Settings))
	parts = append(parts, key(KeyExportCSV, "CSV"))
	parts = append(parts, key(KeyExportPrint, "PDF"))
	parts = append(parts, key(KeyClearAPIKey, t.Remove+" "+t.APIKey))
	parts = append(parts, key("↑↓", "Scroll"))
	parts = append(parts, key(KeyQuit, "Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	// Simple truncation for non-styled strings
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
