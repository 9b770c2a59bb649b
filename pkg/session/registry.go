package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/decoder"
	"github.com/rs/zerolog"
)

// ErrUnknownHandle reports a handle that was never issued or has been
// removed.
var ErrUnknownHandle = errors.New("session: unknown decoder handle")

// Handle identifies one decoder within a Registry. Handles are never reused.
type Handle int

// Registry owns the decoders of a session. The mutex guards only the slot
// table; decoders publish their timelines atomically, so readers of a
// decoder never wait on a decode pass of another.
type Registry struct {
	mu    sync.RWMutex
	slots []*decoder.Decoder
	src   decoder.Source
	log   zerolog.Logger
}

// NewRegistry creates an empty registry whose decoders read from src.
func NewRegistry(src decoder.Source, log zerolog.Logger) *Registry {
	return &Registry{src: src, log: log}
}

// Entry is one registered decoder.
type Entry struct {
	Handle  Handle
	Decoder *decoder.Decoder
}

func pending(err error) bool {
	return errors.Is(err, ErrNoCapture) || errors.Is(err, ErrCaptureInProgress)
}

// Add creates a decoder from the integer protocol selector. A configuration
// error adds nothing. When a capture is already loaded the new decoder runs
// a pass before Add returns; a failed pass is logged and leaves the decoder
// registered with an empty timeline.
func (r *Registry) Add(protocolID int, channels decoder.Channels, opts decoder.Options, index decoder.OptionsIndex) (Handle, error) {
	d, err := decoder.Create(protocolID, r.src, channels, opts, index)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	h := Handle(len(r.slots))
	d.WithLogger(r.log.With().Int("handle", int(h)).Logger())
	r.slots = append(r.slots, d)
	r.mu.Unlock()

	r.log.Info().Int("handle", int(h)).Str("protocol", d.Name()).Ints("probes", d.Probes()).Msg("decoder added")
	if err := d.Decode(); err != nil && !pending(err) {
		r.log.Warn().Err(err).Int("handle", int(h)).Msg("initial decode failed")
	}
	return h, nil
}

// Get returns the decoder behind h.
func (r *Registry) Get(h Handle) (*decoder.Decoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h < 0 || int(h) >= len(r.slots) || r.slots[h] == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return r.slots[h], nil
}

// Reset reconfigures the decoder behind h and rebuilds its timeline. A
// configuration error leaves the decoder unchanged. A pass that fails for
// lack of a capture is not an error.
func (r *Registry) Reset(h Handle, channels decoder.Channels, opts decoder.Options, index decoder.OptionsIndex) error {
	d, err := r.Get(h)
	if err != nil {
		return err
	}
	if err := d.Recode(channels, opts, index); err != nil && !pending(err) {
		return fmt.Errorf("session: decoder %d: %w", h, err)
	}
	r.log.Info().Int("handle", int(h)).Ints("probes", d.Probes()).Msg("decoder reconfigured")
	return nil
}

// Remove drops the decoder behind h.
func (r *Registry) Remove(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h < 0 || int(h) >= len(r.slots) || r.slots[h] == nil {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	r.slots[h] = nil
	r.log.Info().Int("handle", int(h)).Msg("decoder removed")
	return nil
}

// Probes returns the channel assignment of the decoder behind h.
func (r *Registry) Probes(h Handle) (decoder.Channels, error) {
	d, err := r.Get(h)
	if err != nil {
		return nil, err
	}
	return d.Probes(), nil
}

// OptionsIndex returns the option selection indices of the decoder behind h.
func (r *Registry) OptionsIndex(h Handle) (decoder.OptionsIndex, error) {
	d, err := r.Get(h)
	if err != nil {
		return nil, err
	}
	return d.OptionsIndex(), nil
}

// Handles lists live handles in ascending order.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Handle
	for i, d := range r.slots {
		if d != nil {
			out = append(out, Handle(i))
		}
	}
	return out
}

// Entries lists live decoders in handle order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entry
	for i, d := range r.slots {
		if d != nil {
			out = append(out, Entry{Handle: Handle(i), Decoder: d})
		}
	}
	return out
}

// Len reports the number of live decoders.
func (r *Registry) Len() int { return len(r.Handles()) }

// DecodeAll runs a pass on every decoder. Each failure is reported in the
// joined error; the other decoders still run.
func (r *Registry) DecodeAll() error {
	var errs []error
	for _, e := range r.Entries() {
		if err := e.Decoder.Decode(); err != nil {
			errs = append(errs, fmt.Errorf("session: decoder %d: %w", e.Handle, err))
		}
	}
	return errors.Join(errs...)
}
