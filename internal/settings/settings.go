// Package settings persists the user's client preferences. Every setter
// writes through to storage immediately; storage failures are logged and the
// in-memory value (or default) is kept.
package settings

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// Language is the UI language.
type Language string

const (
	English Language = "en" // primary
	Finnish Language = "fi" // secondary
)

// Storage keys.
const (
	KeyLanguage         = "language"
	KeyAPIKeyOverride   = "elevenlabs_api_key"
	KeyEchoCancellation = "echo_cancellation"
	KeyNoiseSuppression = "noise_suppression"
	KeyMicrophone       = "selected_microphone_id"
)

// Settings is the user configuration.
type Settings struct {
	Language Language
	// APIKeyOverride is empty when the intermediary's default credential
	// should be used.
	APIKeyOverride       string
	EchoCancellation     bool
	NoiseSuppression     bool
	SelectedMicrophoneID string
}

// Defaults returns the documented defaults.
func Defaults() Settings {
	return Settings{
		Language:         English,
		EchoCancellation: true,
		NoiseSuppression: true,
	}
}

// KV is the persisted scalar storage. *db.Store implements it.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Store loads and saves Settings.
type Store struct {
	kv  KV
	log zerolog.Logger

	mu      sync.Mutex
	current Settings
}

// NewStore creates a Store over kv. A nil kv keeps settings in memory only.
func NewStore(kv KV, log zerolog.Logger) *Store {
	return &Store{kv: kv, log: log, current: Defaults()}
}

// Load reads every key from storage, filling absent or unreadable values
// with defaults.
func (s *Store) Load() Settings {
	st := Defaults()

	if v, ok := s.get(KeyLanguage); ok {
		if lang, valid := ParseLanguage(v); valid {
			st.Language = lang
		}
	}
	if v, ok := s.get(KeyAPIKeyOverride); ok {
		st.APIKeyOverride = strings.TrimSpace(v)
	}
	if v, ok := s.get(KeyEchoCancellation); ok {
		st.EchoCancellation = v == "true"
	}
	if v, ok := s.get(KeyNoiseSuppression); ok {
		st.NoiseSuppression = v == "true"
	}
	if v, ok := s.get(KeyMicrophone); ok {
		st.SelectedMicrophoneID = v
	}

	s.mu.Lock()
	s.current = st
	s.mu.Unlock()
	return st
}

// Current returns the last loaded or set Settings without touching storage.
func (s *Store) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetLanguage persists the UI language. Unknown languages are ignored.
func (s *Store) SetLanguage(lang Language) Settings {
	if _, valid := ParseLanguage(string(lang)); !valid {
		s.log.Warn().Str("language", string(lang)).Msg("ignoring unknown language")
		return s.Current()
	}
	return s.update(KeyLanguage, string(lang), func(st *Settings) { st.Language = lang })
}

// SetAPIKeyOverride persists the credential override. An empty key removes
// the override so the intermediary's default is used.
func (s *Store) SetAPIKeyOverride(key string) Settings {
	key = strings.TrimSpace(key)
	if key == "" {
		s.mu.Lock()
		s.current.APIKeyOverride = ""
		st := s.current
		s.mu.Unlock()
		if s.kv != nil {
			if err := s.kv.Delete(KeyAPIKeyOverride); err != nil {
				s.log.Warn().Err(err).Str("key", KeyAPIKeyOverride).Msg("settings delete failed")
			}
		}
		return st
	}
	return s.update(KeyAPIKeyOverride, key, func(st *Settings) { st.APIKeyOverride = key })
}

// SetEchoCancellation persists the echo-cancellation flag.
func (s *Store) SetEchoCancellation(on bool) Settings {
	return s.update(KeyEchoCancellation, cast.ToString(on), func(st *Settings) { st.EchoCancellation = on })
}

// SetNoiseSuppression persists the noise-suppression flag.
func (s *Store) SetNoiseSuppression(on bool) Settings {
	return s.update(KeyNoiseSuppression, cast.ToString(on), func(st *Settings) { st.NoiseSuppression = on })
}

// SetMicrophone persists the selected input device id. Empty selects the
// platform default.
func (s *Store) SetMicrophone(deviceID string) Settings {
	return s.update(KeyMicrophone, deviceID, func(st *Settings) { st.SelectedMicrophoneID = deviceID })
}

// Set updates a field by storage key, coercing value to the field's type.
func (s *Store) Set(field string, value any) (Settings, error) {
	switch field {
	case KeyLanguage:
		return s.SetLanguage(Language(cast.ToString(value))), nil
	case KeyAPIKeyOverride:
		return s.SetAPIKeyOverride(cast.ToString(value)), nil
	case KeyEchoCancellation:
		on, err := cast.ToBoolE(value)
		if err != nil {
			return s.Current(), fmt.Errorf("%s: %w", field, err)
		}
		return s.SetEchoCancellation(on), nil
	case KeyNoiseSuppression:
		on, err := cast.ToBoolE(value)
		if err != nil {
			return s.Current(), fmt.Errorf("%s: %w", field, err)
		}
		return s.SetNoiseSuppression(on), nil
	case KeyMicrophone:
		return s.SetMicrophone(cast.ToString(value)), nil
	}
	return s.Current(), fmt.Errorf("unknown setting %q", field)
}

// ParseLanguage validates a stored language value.
func ParseLanguage(v string) (Language, bool) {
	switch Language(v) {
	case English, Finnish:
		return Language(v), true
	}
	return English, false
}

func (s *Store) update(key, value string, apply func(*Settings)) Settings {
	s.mu.Lock()
	apply(&s.current)
	st := s.current
	s.mu.Unlock()

	if s.kv != nil {
		if err := s.kv.Set(key, value); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("settings write failed")
		}
	}
	return st
}

func (s *Store) get(key string) (string, bool) {
	if s.kv == nil {
		return "", false
	}
	v, ok, err := s.kv.Get(key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("settings read failed, using default")
		return "", false
	}
	return v, ok
}
