package decoder

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/timeline"
	"github.com/rs/zerolog"
)

// Source supplies the captured sample buffer a decode pass reads. The
// decoder never owns the capture lifecycle.
type Source interface {
	Snapshot() (*logic.Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (*logic.Snapshot, error)

// Snapshot implements Source.
func (f SourceFunc) Snapshot() (*logic.Snapshot, error) { return f() }

// StaticSource always returns the same snapshot.
func StaticSource(s *logic.Snapshot) Source {
	return SourceFunc(func() (*logic.Snapshot, error) { return s, nil })
}

// config is one immutable, validated configuration.
type config struct {
	channels Channels
	options  Options
	index    OptionsIndex
	run      decodeFunc
}

// Decoder is one configured protocol decoder together with the timeline of
// its most recent decode pass. Decode and Recode run synchronously on the
// caller's goroutine; reads of the published timeline and configuration are
// lock-free and may happen concurrently from any goroutine.
type Decoder struct {
	protocol Protocol
	source   Source
	log      zerolog.Logger

	pass      sync.Mutex
	cfg       atomic.Pointer[config]
	published timeline.Published
}

// New validates the configuration and constructs a decoder. It does not run
// a decode pass. A nil index is derived from the normalized options.
func New(p Protocol, src Source, channels Channels, opts Options, index OptionsIndex) (*Decoder, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedProtocol, int(p))
	}
	if src == nil {
		return nil, ErrNoSource
	}
	cfg, err := p.compile(channels, opts, index)
	if err != nil {
		return nil, err
	}
	d := &Decoder{protocol: p, source: src, log: zerolog.Nop()}
	d.cfg.Store(cfg)
	return d, nil
}

// Create is New keyed by the integer protocol selector.
func Create(id int, src Source, channels Channels, opts Options, index OptionsIndex) (*Decoder, error) {
	p, err := ProtocolByID(id)
	if err != nil {
		return nil, err
	}
	return New(p, src, channels, opts, index)
}

// WithLogger sets the logger used for decode passes. Call it before the
// decoder is shared.
func (d *Decoder) WithLogger(l zerolog.Logger) *Decoder {
	d.log = l.With().Str("protocol", d.protocol.String()).Logger()
	return d
}

func (p Protocol) compile(channels Channels, opts Options, index OptionsIndex) (*config, error) {
	ch, err := p.ValidateChannels(channels)
	if err != nil {
		return nil, err
	}
	norm, err := p.Normalize(opts)
	if err != nil {
		return nil, err
	}
	run, err := p.def().compile(norm)
	if err != nil {
		return nil, err
	}
	if index == nil {
		index = p.Index(norm)
	} else {
		index = index.Clone()
	}
	return &config{channels: ch, options: norm, index: index, run: run}, nil
}

// Decode runs a full pass over the current configuration and publishes the
// result. On a resource error (no capture, disabled channel) an empty
// timeline is published and the error returned; signal-level problems never
// fail a pass.
func (d *Decoder) Decode() error {
	d.pass.Lock()
	defer d.pass.Unlock()
	return d.run(d.cfg.Load())
}

// Recode replaces the configuration and runs a full pass. A configuration
// error is returned before anything changes; otherwise the new timeline is
// published and then the new configuration.
func (d *Decoder) Recode(channels Channels, opts Options, index OptionsIndex) error {
	cfg, err := d.protocol.compile(channels, opts, index)
	if err != nil {
		return err
	}
	d.pass.Lock()
	defer d.pass.Unlock()
	err = d.run(cfg)
	d.cfg.Store(cfg)
	return err
}

func (d *Decoder) run(cfg *config) error {
	began := time.Now()
	snap, err := d.source.Snapshot()
	if err != nil {
		d.published.Store(nil)
		d.log.Warn().Err(err).Msg("decode aborted: capture unavailable")
		return fmt.Errorf("decoder: %s: %w", d.protocol, err)
	}

	b := timeline.NewBuilder(0)
	if err := cfg.run(snap, cfg.channels, b); err != nil {
		d.published.Store(nil)
		d.log.Warn().Err(err).Msg("decode aborted")
		return fmt.Errorf("decoder: %s: %w", d.protocol, err)
	}
	tl, err := b.Build()
	if err != nil {
		d.published.Store(nil)
		d.log.Error().Err(err).Msg("decode produced an invalid timeline")
		return fmt.Errorf("decoder: %s: %w", d.protocol, err)
	}
	d.published.Store(tl)
	d.log.Debug().
		Int("intervals", tl.Len()).
		Uint64("samples", snap.Samples()).
		Dur("took", time.Since(began)).
		Str("generation", tl.Generation().String()).
		Msg("decode complete")
	return nil
}

// Protocol reports the decoder's protocol.
func (d *Decoder) Protocol() Protocol { return d.protocol }

// Name reports the protocol name shown to users.
func (d *Decoder) Name() string { return d.protocol.String() }

// Probes returns the channel assignment in role order.
func (d *Decoder) Probes() Channels { return d.cfg.Load().channels.Clone() }

// Options returns the normalized options.
func (d *Decoder) Options() Options { return d.cfg.Load().options.Clone() }

// OptionsIndex returns the UI selection indices supplied with the current
// configuration.
func (d *Decoder) OptionsIndex() OptionsIndex { return d.cfg.Load().index.Clone() }

// Kinds returns the protocol's static state table.
func (d *Decoder) Kinds() timeline.KindTable { return d.protocol.Kinds() }

// Timeline returns the timeline of the last completed pass.
func (d *Decoder) Timeline() *timeline.Timeline { return d.published.Load() }

// SubsampledStates answers a renderer query against the published timeline.
func (d *Decoder) SubsampledStates(start, end uint64, minLength float64) []timeline.Interval {
	return d.published.Load().Query(start, end, minLength)
}

// emit appends iv after clamping its start to the builder tail, dropping it
// if nothing remains. Events that collide on one sample are clamped, not
// rejected.
func emit(b *timeline.Builder, iv timeline.Interval) {
	if tail := b.Tail(); iv.Start < tail {
		iv.Start = tail
	}
	if iv.End <= iv.Start {
		return
	}
	b.Append(iv)
}
