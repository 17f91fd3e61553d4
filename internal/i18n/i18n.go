// Package i18n holds the user-facing strings for each supported language and
// maps failure categories onto localized notification text.
package i18n

import (
	"errors"
	"fmt"

	"github.com/jwulff/scribe/internal/apperr"
	"github.com/jwulff/scribe/internal/settings"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Translations is one language's string table.
type Translations struct {
	Title                string
	Start                string
	Stop                 string
	Settings             string
	Recording            string
	Connecting           string
	Idle                 string
	Realtime             string
	ConfirmedTranscripts string
	StartRecordingPrompt string

	MicrophoneSettings  string
	EchoCancellation    string
	NoiseSuppression    string
	Microphone          string
	DefaultMicrophone   string
	APIKey              string
	APIKeyInUse         string
	APIKeyDefault       string
	SetAPIKey           string
	APIKeyPrompt        string
	Language            string
	ExportSettings      string
	ExportPDF           string
	ExportCSV           string
	PDFDate             string
	PDFTotalTranscripts string
	DateLayout          string
	Save                string
	Cancel              string
	Remove              string

	RecordingStarted           string
	CreditsExhausted           string
	InvalidAPIKey              string
	NoAPIKey                   string
	TokenFetchFailed           string
	ConnectionError            string
	UnknownError               string
	APIKeySavedSuccess         string
	APIKeyRemoved              string
	EchoCancellationEnabled    string
	EchoCancellationDisabled   string
	NoiseSuppressionEnabled    string
	NoiseSuppressionDisabled   string
	MicrophoneChanged          string
	LanguageChanged            string
	NoTranscriptsToExport      string
	TranscriptsExported        string
	ExportFailed               string
	PrintSurfaceUnavailable    string
	PlatformNotSupported       string
	StartEngine                string
	MicrophonePermissionDenied string
	InsecureTransport          string
}

var tables = map[settings.Language]Translations{
	settings.English: {
		Title:                "Realtime Scribe",
		Start:                "Start",
		Stop:                 "Stop",
		Settings:             "Settings",
		Recording:            "Recording...",
		Connecting:           "Connecting...",
		Idle:                 "Idle",
		Realtime:             "Real-time",
		ConfirmedTranscripts: "Confirmed Transcripts",
		StartRecordingPrompt: "Start recording to see transcripts...",

		MicrophoneSettings:  "Microphone Settings",
		EchoCancellation:    "Echo Cancellation",
		NoiseSuppression:    "Noise Suppression",
		Microphone:          "Microphone",
		DefaultMicrophone:   "Default Microphone",
		APIKey:              "API Key",
		APIKeyInUse:         "In use",
		APIKeyDefault:       "Using server default key",
		SetAPIKey:           "Set API Key",
		APIKeyPrompt:        "Enter your own ElevenLabs API key. It is stored only on this machine.",
		Language:            "Language",
		ExportSettings:      "Export Transcripts",
		ExportPDF:           "Print / PDF",
		ExportCSV:           "Download as CSV",
		PDFDate:             "Date",
		PDFTotalTranscripts: "Total Transcripts",
		DateLayout:          "January 2, 2006",
		Save:                "Save",
		Cancel:              "Cancel",
		Remove:              "Remove",

		RecordingStarted:           "Recording started!",
		CreditsExhausted:           "Credits exhausted! Check your ElevenLabs account and refill credits.",
		InvalidAPIKey:              "Invalid API key. Check your API key in settings.",
		NoAPIKey:                   "No API key configured. Set one in settings or on the token server.",
		TokenFetchFailed:           "Failed to fetch token",
		ConnectionError:            "Connection error",
		UnknownError:               "Unknown error",
		APIKeySavedSuccess:         "API key saved!",
		APIKeyRemoved:              "API key removed. Using server key.",
		EchoCancellationEnabled:    "Echo Cancellation enabled",
		EchoCancellationDisabled:   "Echo Cancellation disabled",
		NoiseSuppressionEnabled:    "Noise Suppression enabled",
		NoiseSuppressionDisabled:   "Noise Suppression disabled",
		MicrophoneChanged:          "Microphone changed",
		LanguageChanged:            "Language changed",
		NoTranscriptsToExport:      "No transcripts to export",
		TranscriptsExported:        "Transcripts exported successfully!",
		ExportFailed:               "Export failed",
		PrintSurfaceUnavailable:    "Could not open the print preview",
		PlatformNotSupported:       "The transcription engine is not available on this system",
		StartEngine:                "Start the engine daemon and try again",
		MicrophonePermissionDenied: "Microphone permission denied. Please allow microphone access.",
		InsecureTransport:          "HTTPS required for token requests to remote hosts.",
	},
	settings.Finnish: {
		Title:                "Reaaliaikainen litterointi",
		Start:                "Aloita",
		Stop:                 "Lopeta",
		Settings:             "Asetukset",
		Recording:            "Nauhoitetaan...",
		Connecting:           "Yhdistetään...",
		Idle:                 "Valmiina",
		Realtime:             "Reaaliaikainen",
		ConfirmedTranscripts: "Vahvistetut Transkriptiot",
		StartRecordingPrompt: "Aloita nauhoitus nähdäksesi transkriptiot...",

		MicrophoneSettings:  "Mikrofonin asetukset",
		EchoCancellation:    "Echo Cancellation",
		NoiseSuppression:    "Noise Suppression",
		Microphone:          "Mikrofoni",
		DefaultMicrophone:   "Oletusmikrofoni",
		APIKey:              "API-avain",
		APIKeyInUse:         "Käytössä",
		APIKeyDefault:       "Käytetään palvelimen oletusavainta",
		SetAPIKey:           "Aseta API-avain",
		APIKeyPrompt:        "Syötä oma ElevenLabs API-avaimesi. Avain tallennetaan vain tälle koneelle.",
		Language:            "Kieli",
		ExportSettings:      "Vie transkriptiot",
		ExportPDF:           "Tulosta / PDF",
		ExportCSV:           "Lataa CSV-tiedostona",
		PDFDate:             "Päivämäärä",
		PDFTotalTranscripts: "Transkriptioiden määrä",
		DateLayout:          "2.1.2006",
		Save:                "Tallenna",
		Cancel:              "Peruuta",
		Remove:              "Poista",

		RecordingStarted:           "Nauhoitus aloitettu!",
		CreditsExhausted:           "Krediitit loppuneet! Tarkista ElevenLabs-tilisi ja täydennä krediitit.",
		InvalidAPIKey:              "Virheellinen API-avain. Tarkista API-avain asetuksista.",
		NoAPIKey:                   "API-avainta ei ole määritetty. Aseta avain asetuksista tai palvelimelle.",
		TokenFetchFailed:           "Tokenin haku epäonnistui",
		ConnectionError:            "Yhteysvirhe",
		UnknownError:               "Tuntematon virhe",
		APIKeySavedSuccess:         "API-avain tallennettu!",
		APIKeyRemoved:              "API-avain poistettu. Käytetään palvelimen avainta.",
		EchoCancellationEnabled:    "Echo Cancellation käytössä",
		EchoCancellationDisabled:   "Echo Cancellation pois käytöstä",
		NoiseSuppressionEnabled:    "Noise Suppression käytössä",
		NoiseSuppressionDisabled:   "Noise Suppression pois käytöstä",
		MicrophoneChanged:          "Mikrofoni vaihdettu",
		LanguageChanged:            "Kieli vaihdettu",
		NoTranscriptsToExport:      "Ei transkriptioita vietäväksi",
		TranscriptsExported:        "Transkriptiot viety onnistuneesti!",
		ExportFailed:               "Vienti epäonnistui",
		PrintSurfaceUnavailable:    "Tulostusnäkymää ei voitu avata",
		PlatformNotSupported:       "Litterointimoottori ei ole käytettävissä tässä järjestelmässä",
		StartEngine:                "Käynnistä moottoripalvelu ja yritä uudelleen",
		MicrophonePermissionDenied: "Mikrofonin käyttöoikeus evätty. Salli mikrofonin käyttö.",
		InsecureTransport:          "Etäpalvelimen tokenipyynnöt vaativat HTTPS-yhteyden.",
	},
}

// For returns the table for lang, falling back to English.
func For(lang settings.Language) Translations {
	if t, ok := tables[lang]; ok {
		return t
	}
	return tables[settings.English]
}

// Tag returns the BCP 47 tag for lang.
func Tag(lang settings.Language) language.Tag {
	switch lang {
	case settings.Finnish:
		return language.Finnish
	default:
		return language.English
	}
}

// Count formats n with the language's digit grouping.
func Count(lang settings.Language, n int) string {
	return message.NewPrinter(Tag(lang)).Sprintf("%d", n)
}

// Catalog produces localized notification text for the current language.
type Catalog struct {
	lang func() settings.Language
}

// NewCatalog creates a Catalog that reads the language on every call, so a
// language change applies to the next message.
func NewCatalog(lang func() settings.Language) Catalog {
	return Catalog{lang: lang}
}

// T returns the current table.
func (c Catalog) T() Translations {
	return For(c.lang())
}

// RecordingStarted is shown after a successful connect.
func (c Catalog) RecordingStarted() string {
	return c.T().RecordingStarted
}

// StartFailed maps a start failure onto its category message.
func (c Catalog) StartFailed(err error) string {
	t := c.T()
	switch apperr.CodeOf(err) {
	case apperr.CodeUnsupportedPlatform:
		return fmt.Sprintf("🚫 %s. %s", t.PlatformNotSupported, t.StartEngine)
	case apperr.CodePermissionDenied:
		return "🎤 " + t.MicrophonePermissionDenied
	case apperr.CodeQuotaExceeded:
		return "💳 " + t.CreditsExhausted
	case apperr.CodeInvalidCredential:
		return "🔑 " + t.InvalidAPIKey
	case apperr.CodeNoCredential:
		return "🔑 " + t.NoAPIKey
	case apperr.CodeUpstream:
		return t.TokenFetchFailed
	}
	return fmt.Sprintf("%s: %s", t.ConnectionError, c.detail(err))
}

// ConnectionLost is shown when the engine reports an error mid-session.
func (c Catalog) ConnectionLost(err error) string {
	return fmt.Sprintf("%s: %s", c.T().ConnectionError, c.detail(err))
}

// detail returns the most specific human-readable message for err.
func (c Catalog) detail(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if err != nil && !errors.As(err, &appErr) {
		return err.Error()
	}
	return c.T().UnknownError
}
