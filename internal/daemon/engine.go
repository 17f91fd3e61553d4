package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jwulff/scribe/internal/apperr"
	"github.com/jwulff/scribe/internal/devices"
	"github.com/jwulff/scribe/internal/session"
	"github.com/rs/zerolog"
)

// stopTimeout bounds the stop and release commands sent on teardown.
const stopTimeout = 2 * time.Second

// Engine drives the daemon for one client. It implements
// session.Capability and devices.MediaDevices.
type Engine struct {
	socketPath string
	model      string
	log        zerolog.Logger
}

// NewEngine creates an Engine for the daemon at socketPath. model is the
// transcription model requested on start.
func NewEngine(socketPath, model string, log zerolog.Logger) *Engine {
	return &Engine{socketPath: socketPath, model: model, log: log}
}

// Supported reports whether the daemon socket exists.
func (e *Engine) Supported() bool {
	_, err := os.Stat(e.socketPath)
	return err == nil
}

// Connect subscribes to the daemon's event stream, then starts a session
// with token. The subscription is opened first so no early event is missed.
func (e *Engine) Connect(ctx context.Context, token string, c session.Constraints) (session.Handle, error) {
	evc, err := e.dial(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := evc.SendCommandContext(ctx, Command{
		Cmd:    CmdSubscribe,
		Events: []string{EventPartial, EventCommitted, EventConnected, EventDisconnected, EventError},
	})
	if err != nil {
		evc.Close()
		return nil, e.transportErr(ctx, "subscribe", err)
	}
	if !resp.OK {
		evc.Close()
		return nil, responseErr(CmdSubscribe, resp)
	}

	cmd, err := e.dial(ctx)
	if err != nil {
		evc.Close()
		return nil, err
	}
	resp, err = cmd.SendCommandContext(ctx, Command{
		Cmd:              CmdStart,
		Token:            token,
		Model:            e.model,
		Device:           c.DeviceID,
		EchoCancellation: BoolPtr(c.EchoCancellation),
		NoiseSuppression: BoolPtr(c.NoiseSuppression),
	})
	if err != nil {
		cmd.Close()
		evc.Close()
		if ctx.Err() != nil {
			e.abandonStart()
		}
		return nil, e.transportErr(ctx, "start", err)
	}
	if !resp.OK {
		cmd.Close()
		evc.Close()
		return nil, responseErr(CmdStart, resp)
	}

	h := &handle{
		events:    make(chan session.Event, 64),
		done:      make(chan struct{}),
		evc:       evc,
		cmd:       cmd,
		sessionID: resp.SessionID,
		log:       e.log.With().Str("daemon_session", resp.SessionID).Logger(),
	}
	go h.readLoop()

	h.log.Info().Msg("daemon session started")
	return h, nil
}

// abandonStart stops a session the daemon may have started for a start
// request whose response was never read.
func (e *Engine) abandonStart() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	c, err := ConnectContext(ctx, e.socketPath)
	if err != nil {
		e.log.Debug().Err(err).Msg("stop after cancelled start")
		return
	}
	defer c.Close()
	if _, err := c.SendCommandContext(ctx, Command{Cmd: CmdStop}); err != nil {
		e.log.Debug().Err(err).Msg("stop after cancelled start")
		return
	}
	e.log.Info().Msg("stopped session left by cancelled start")
}

// Disconnect stops the session and closes both connections. Safe to call
// more than once.
func (e *Engine) Disconnect(h session.Handle) {
	dh, ok := h.(*handle)
	if !ok {
		return
	}
	dh.close()
}

// OpenProbe asks the daemon to open the microphone briefly so the user is
// prompted for permission. Closing the result releases the input.
func (e *Engine) OpenProbe(ctx context.Context) (io.Closer, error) {
	c, err := e.dial(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.SendCommandContext(ctx, Command{Cmd: CmdProbe})
	if err != nil {
		c.Close()
		return nil, e.transportErr(ctx, "probe", err)
	}
	if !resp.OK {
		c.Close()
		return nil, responseErr(CmdProbe, resp)
	}
	return &probe{client: c, id: resp.ProbeID}, nil
}

// Enumerate lists the media devices known to the daemon.
func (e *Engine) Enumerate(ctx context.Context) ([]devices.Device, error) {
	c, err := e.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	resp, err := c.SendCommandContext(ctx, Command{Cmd: CmdDevices})
	if err != nil {
		return nil, e.transportErr(ctx, "devices", err)
	}
	if !resp.OK {
		return nil, responseErr(CmdDevices, resp)
	}

	out := make([]devices.Device, 0, len(resp.Devices))
	for _, d := range resp.Devices {
		out = append(out, devices.Device{ID: d.ID, Label: d.Label, Kind: d.Kind})
	}
	return out, nil
}

func (e *Engine) dial(ctx context.Context) (*Client, error) {
	c, err := ConnectContext(ctx, e.socketPath)
	if err != nil {
		return nil, e.transportErr(ctx, "dial", err)
	}
	return c, nil
}

// transportErr keeps context errors recognizable and categorizes the rest.
func (e *Engine) transportErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	e.log.Warn().Err(err).Str("op", op).Msg("daemon request failed")
	return apperr.Wrap(apperr.CodeCapability, "engine daemon unreachable", err)
}

// responseErr maps a rejected command onto the failure taxonomy.
func responseErr(cmd string, resp Response) error {
	msg := resp.Error
	if msg == "" {
		msg = fmt.Sprintf("%s rejected", cmd)
	}
	if resp.Code == CodePermissionDenied {
		return apperr.New(apperr.CodePermissionDenied, msg)
	}
	return apperr.New(apperr.CodeCapability, msg)
}

// handle is a live daemon session: one connection streams events, the
// other carries commands.
type handle struct {
	events    chan session.Event
	done      chan struct{}
	evc       *Client
	cmd       *Client
	sessionID string
	log       zerolog.Logger

	closing   atomic.Bool
	closeOnce sync.Once
}

func (h *handle) Events() <-chan session.Event { return h.events }

func (h *handle) readLoop() {
	defer close(h.events)
	for {
		ev, err := h.evc.ReadEvent()
		if err != nil {
			if h.closing.Load() {
				return
			}
			h.log.Warn().Err(err).Msg("event stream ended")
			if errors.Is(err, ErrClosed) {
				h.emit(session.Event{Kind: session.EventDisconnected})
			} else {
				h.emit(session.Event{Kind: session.EventFailed, Err: apperr.Wrap(apperr.CodeCapability, "engine connection lost", err)})
			}
			return
		}
		if ev.SessionID != "" && h.sessionID != "" && ev.SessionID != h.sessionID {
			continue
		}

		out, ok := translate(ev)
		if !ok {
			h.log.Debug().Str("event", ev.Event).Msg("ignoring daemon event")
			continue
		}
		if !h.emit(out) {
			return
		}
	}
}

// emit delivers ev unless the handle is being torn down.
func (h *handle) emit(ev session.Event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

func (h *handle) close() {
	h.closeOnce.Do(func() {
		h.closing.Store(true)
		close(h.done)

		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if _, err := h.cmd.SendCommandContext(ctx, Command{Cmd: CmdStop}); err != nil {
			h.log.Debug().Err(err).Msg("stop command")
		}
		h.cmd.Close()
		h.evc.Close()
		h.log.Info().Msg("daemon session closed")
	})
}

// translate maps a daemon event onto a session event.
func translate(ev Event) (session.Event, bool) {
	switch ev.Event {
	case EventPartial:
		return session.Event{Kind: session.EventPartial, Text: ev.Text}, true
	case EventCommitted:
		return session.Event{Kind: session.EventCommitted, Text: ev.Text}, true
	case EventConnected:
		return session.Event{Kind: session.EventConnected}, true
	case EventDisconnected:
		return session.Event{Kind: session.EventDisconnected}, true
	case EventError:
		code := apperr.CodeCapability
		if ev.Code == CodePermissionDenied {
			code = apperr.CodePermissionDenied
		}
		return session.Event{Kind: session.EventFailed, Err: apperr.New(code, ev.Message)}, true
	}
	return session.Event{}, false
}

// probe holds the microphone open until Close.
type probe struct {
	client *Client
	id     string
}

func (p *probe) Close() error {
	defer p.client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	resp, err := p.client.SendCommandContext(ctx, Command{Cmd: CmdRelease, ProbeID: p.id})
	if err != nil {
		return fmt.Errorf("release probe: %w", err)
	}
	if !resp.OK {
		return responseErr(CmdRelease, resp)
	}
	return nil
}
