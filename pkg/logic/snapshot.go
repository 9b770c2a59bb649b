package logic

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrUnknownChannel reports a channel index with no probe mapping.
	ErrUnknownChannel = errors.New("logic: unknown channel")
	// ErrChannelDisabled reports a probe that was not sampled during capture.
	ErrChannelDisabled = errors.New("logic: channel disabled")
	// ErrNoSamples reports an empty capture buffer.
	ErrNoSamples = errors.New("logic: no samples")
)

// Probe maps one logical channel onto a bit inside each sample unit.
type Probe struct {
	Enabled bool
	Bit     uint
}

// Snapshot is a captured, bit-packed multi-channel sample buffer. Sample i
// occupies bytes [i*UnitSize, (i+1)*UnitSize) and channel bit b lives in byte
// b/8 at position b%8. A Snapshot is never modified after construction.
type Snapshot struct {
	data       []byte
	unitSize   int
	samples    uint64
	sampleRate uint64
	probes     []Probe
}

// NewSnapshot validates the probe mapping against unitSize and wraps data.
// Trailing bytes that do not form a whole unit are ignored.
func NewSnapshot(data []byte, unitSize int, sampleRate uint64, probes []Probe) (*Snapshot, error) {
	if unitSize < 1 {
		return nil, fmt.Errorf("logic: unit size must be positive, got %d", unitSize)
	}
	for i, p := range probes {
		if p.Bit >= uint(unitSize*8) {
			return nil, fmt.Errorf("logic: probe %d bit %d outside %d-byte unit", i, p.Bit, unitSize)
		}
	}
	return &Snapshot{
		data:       data,
		unitSize:   unitSize,
		samples:    uint64(len(data) / unitSize),
		sampleRate: sampleRate,
		probes:     append([]Probe(nil), probes...),
	}, nil
}

// WriteTo writes the complete sample units as a raw dump, the format
// NewSnapshot reads back.
func (s *Snapshot) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.data[:s.samples*uint64(s.unitSize)])
	return int64(n), err
}

// UnitSize reports the number of bytes per sample.
func (s *Snapshot) UnitSize() int { return s.unitSize }

// Samples reports the number of complete samples in the buffer.
func (s *Snapshot) Samples() uint64 { return s.samples }

// SampleRate reports the capture rate in Hz, or 0 when unknown.
func (s *Snapshot) SampleRate() uint64 { return s.sampleRate }

// Probes returns a copy of the channel mapping.
func (s *Snapshot) Probes() []Probe {
	return append([]Probe(nil), s.probes...)
}

// Lane returns a validated accessor for one channel.
func (s *Snapshot) Lane(channel int) (Lane, error) {
	if channel < 0 || channel >= len(s.probes) {
		return Lane{}, fmt.Errorf("%w: %d", ErrUnknownChannel, channel)
	}
	p := s.probes[channel]
	if !p.Enabled {
		return Lane{}, fmt.Errorf("%w: %d", ErrChannelDisabled, channel)
	}
	if s.samples == 0 {
		return Lane{}, ErrNoSamples
	}
	return Lane{
		snap:    s,
		channel: channel,
		offset:  int(p.Bit / 8),
		mask:    1 << (p.Bit % 8),
	}, nil
}

// Edges is a convenience wrapper around Lane followed by Lane.Edges.
func (s *Snapshot) Edges(channel int, start, end uint64, dst []EdgePair) (EdgeRun, error) {
	lane, err := s.Lane(channel)
	if err != nil {
		return EdgeRun{}, err
	}
	return lane.Edges(start, end, dst), nil
}
