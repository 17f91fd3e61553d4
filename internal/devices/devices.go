// Package devices lists the microphones available to the transcription
// engine.
package devices

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// KindAudioInput is the device kind of a microphone.
const KindAudioInput = "audioinput"

// Device is one media device reported by the platform.
type Device struct {
	ID    string
	Label string
	Kind  string
}

// Microphone is a selectable audio input.
type Microphone struct {
	ID    string
	Label string
}

// MediaDevices is the platform's device primitive. Labels are only
// populated once a permission probe has been granted.
type MediaDevices interface {
	Supported() bool
	// OpenProbe requests microphone permission by briefly opening an
	// input. The returned closer releases it.
	OpenProbe(ctx context.Context) (io.Closer, error)
	Enumerate(ctx context.Context) ([]Device, error)
}

// Enumerator lists microphones, probing permission at most once.
type Enumerator struct {
	media MediaDevices
	log   zerolog.Logger

	probeOnce sync.Once
	probeErr  error
}

// NewEnumerator creates an Enumerator over media.
func NewEnumerator(media MediaDevices, log zerolog.Logger) *Enumerator {
	return &Enumerator{media: media, log: log}
}

// ListMicrophones returns the audio inputs in platform order. Failures are
// logged and produce an empty list.
func (e *Enumerator) ListMicrophones(ctx context.Context) []Microphone {
	if e.media == nil || !e.media.Supported() {
		e.log.Debug().Msg("device enumeration unsupported")
		return nil
	}

	e.probeOnce.Do(func() { e.probeErr = e.probe(ctx) })
	if e.probeErr != nil {
		return nil
	}

	all, err := e.media.Enumerate(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("enumerate devices")
		return nil
	}

	var mics []Microphone
	for _, d := range all {
		if d.Kind != KindAudioInput {
			continue
		}
		mics = append(mics, Microphone{ID: d.ID, Label: d.Label})
	}
	e.log.Debug().Int("count", len(mics)).Msg("microphones listed")
	return mics
}

// probe acquires and immediately releases microphone permission.
func (e *Enumerator) probe(ctx context.Context) error {
	p, err := e.media.OpenProbe(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("microphone permission probe")
		return err
	}
	if err := p.Close(); err != nil {
		e.log.Warn().Err(err).Msg("release permission probe")
	}
	return nil
}
