// Package session ties the capture lifecycle, the current sample buffer and
// the decoder registry together. Completing a capture (or loading one from a
// file) triggers a decode pass on every registered decoder.
package session

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/rs/zerolog"
)

// ErrNilSnapshot reports a capture completion without data.
var ErrNilSnapshot = errors.New("session: nil snapshot")

// Session is one acquisition context.
type Session struct {
	lifecycle *Lifecycle
	capture   *Capture
	registry  *Registry
	log       zerolog.Logger
}

// New creates a detached session with no capture and no decoders.
func New(log zerolog.Logger) *Session {
	c := &Capture{}
	return &Session{
		lifecycle: NewLifecycle(),
		capture:   c,
		registry:  NewRegistry(c, log),
		log:       log,
	}
}

// State reports the lifecycle state.
func (s *Session) State() State { return s.lifecycle.State() }

// Registry returns the decoder registry.
func (s *Session) Registry() *Registry { return s.registry }

// Capture returns the sample buffer holder.
func (s *Session) Capture() *Capture { return s.capture }

// Attach records that a device is available.
func (s *Session) Attach() error {
	return s.fire(EventAttached)
}

// Detach records that the device went away. A running capture is abandoned
// and leaves no buffer loaded.
func (s *Session) Detach() error {
	prev := s.lifecycle.State()
	if err := s.fire(EventDetached); err != nil {
		return err
	}
	if prev == StateCapturing {
		s.capture.Abort()
	}
	return nil
}

// StartCapture begins an acquisition. Decoders see ErrCaptureInProgress
// until it ends.
func (s *Session) StartCapture() error {
	if err := s.fire(EventCaptureStarted); err != nil {
		return err
	}
	s.capture.Begin()
	return nil
}

// CaptureEnded publishes the completed buffer and decodes it with every
// registered decoder. The returned error joins per-decoder failures.
func (s *Session) CaptureEnded(snap *logic.Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	if err := s.fire(EventCaptureEnded); err != nil {
		return err
	}
	return s.publish(snap)
}

// Load installs a buffer read from storage rather than a device. It is
// refused while a capture is running.
func (s *Session) Load(snap *logic.Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	if st := s.lifecycle.State(); st == StateCapturing {
		return fmt.Errorf("%w: load in %s", ErrInvalidTransition, st)
	}
	return s.publish(snap)
}

// Decode re-runs every decoder over the loaded buffer.
func (s *Session) Decode() error {
	if _, err := s.capture.Snapshot(); err != nil {
		return err
	}
	return s.registry.DecodeAll()
}

func (s *Session) publish(snap *logic.Snapshot) error {
	s.capture.End(snap)
	s.log.Info().
		Uint64("samples", snap.Samples()).
		Uint64("rate", snap.SampleRate()).
		Int("decoders", s.registry.Len()).
		Msg("capture loaded")
	return s.registry.DecodeAll()
}

func (s *Session) fire(e Event) error {
	prev := s.lifecycle.State()
	next, err := s.lifecycle.Fire(e)
	if err != nil {
		return err
	}
	s.log.Debug().Stringer("from", prev).Stringer("to", next).Stringer("event", e).Msg("lifecycle")
	return nil
}
