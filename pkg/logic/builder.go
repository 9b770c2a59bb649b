package logic

import "fmt"

// Builder assembles a Snapshot sample by sample. It keeps the current level
// of every channel and appends copies of it on Hold.
type Builder struct {
	unitSize   int
	sampleRate uint64
	probes     []Probe
	current    []byte
	data       []byte
	err        error
}

// NewBuilder creates a builder for the given layout. All levels start low.
func NewBuilder(unitSize int, sampleRate uint64, probes []Probe) *Builder {
	b := &Builder{
		unitSize:   unitSize,
		sampleRate: sampleRate,
		probes:     append([]Probe(nil), probes...),
	}
	if unitSize < 1 {
		b.err = fmt.Errorf("logic: unit size must be positive, got %d", unitSize)
		return b
	}
	b.current = make([]byte, unitSize)
	return b
}

// SequentialProbes maps channels 0..n-1 onto bits 0..n-1, all enabled.
func SequentialProbes(n int) []Probe {
	probes := make([]Probe, n)
	for i := range probes {
		probes[i] = Probe{Enabled: true, Bit: uint(i)}
	}
	return probes
}

// Set changes the level of channel for every subsequently held sample.
func (b *Builder) Set(channel int, level bool) *Builder {
	if b.err != nil {
		return b
	}
	if channel < 0 || channel >= len(b.probes) {
		b.err = fmt.Errorf("%w: %d", ErrUnknownChannel, channel)
		return b
	}
	bit := b.probes[channel].Bit
	if int(bit/8) >= b.unitSize {
		b.err = fmt.Errorf("logic: probe %d bit %d outside %d-byte unit", channel, bit, b.unitSize)
		return b
	}
	mask := byte(1) << (bit % 8)
	if level {
		b.current[bit/8] |= mask
	} else {
		b.current[bit/8] &^= mask
	}
	return b
}

// Level reports the current level of channel.
func (b *Builder) Level(channel int) bool {
	if b.err != nil || channel < 0 || channel >= len(b.probes) {
		return false
	}
	bit := b.probes[channel].Bit
	if int(bit/8) >= b.unitSize {
		return false
	}
	return b.current[bit/8]&(1<<(bit%8)) != 0
}

// Hold appends n samples at the current levels.
func (b *Builder) Hold(n uint64) *Builder {
	if b.err != nil {
		return b
	}
	for i := uint64(0); i < n; i++ {
		b.data = append(b.data, b.current...)
	}
	return b
}

// Len reports the number of samples appended so far.
func (b *Builder) Len() uint64 {
	if b.unitSize < 1 {
		return 0
	}
	return uint64(len(b.data) / b.unitSize)
}

// Snapshot finalizes the captured samples.
func (b *Builder) Snapshot() (*Snapshot, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewSnapshot(b.data, b.unitSize, b.sampleRate, b.probes)
}
