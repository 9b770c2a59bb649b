package sim

import (
	"fmt"
	"math/bits"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
)

// UART describes a single RX line carrying Frames.
type UART struct {
	Baud       int    // default 9600
	SampleRate uint64 // default 16 samples per bit
	Bits       int    // default 8
	Parity     string // none, odd or even
	StopBits   int    // default 1
	MSBFirst   bool
	Invert     bool

	Idle   uint64 // mark samples before the first and between frames
	Frames []uint32

	// BadParity and BadStop list frame indices to corrupt.
	BadParity []int
	BadStop   []int
	// Channels maps RX to a physical channel.
	Channels []int
}

// Build renders the waveform.
func (s UART) Build() (*logic.Snapshot, error) {
	baud := s.Baud
	if baud == 0 {
		baud = 9600
	}
	rate := s.SampleRate
	if rate == 0 {
		rate = uint64(baud) * 16
	}
	nbits := s.Bits
	if nbits == 0 {
		nbits = 8
	}
	stop := s.StopBits
	if stop == 0 {
		stop = 1
	}
	switch s.Parity {
	case "", "none", "odd", "even":
	default:
		return nil, fmt.Errorf("sim: unknown parity %q", s.Parity)
	}
	chans, width, err := resolveChannels(s.Channels, 1)
	if err != nil {
		return nil, err
	}
	rx := chans[0]
	spb := float64(rate) / float64(baud)
	idle := orDefault(s.Idle, uint64(2*spb))

	b := newBuilder(width, rate)
	line := func(mark bool) { b.Set(rx, mark != s.Invert) }
	var clock float64
	// emitBit holds one bit period, rounding the cumulative position so
	// fractional rates do not drift.
	emitBit := func(mark bool) {
		line(mark)
		clock += spb
		if target := uint64(clock + 0.5); target > b.Len() {
			b.Hold(target - b.Len())
		}
	}

	line(true)
	b.Hold(idle)
	clock = float64(b.Len())
	for fi, v := range s.Frames {
		emitBit(false)
		for i := 0; i < nbits; i++ {
			pos := i
			if s.MSBFirst {
				pos = nbits - 1 - i
			}
			emitBit(v>>uint(pos)&1 == 1)
		}
		if s.Parity == "odd" || s.Parity == "even" {
			ones := bits.OnesCount32(v & (1<<uint(nbits) - 1))
			pbit := ones%2 == 1 // even parity bit
			if s.Parity == "odd" {
				pbit = !pbit
			}
			if contains(s.BadParity, fi) {
				pbit = !pbit
			}
			emitBit(pbit)
		}
		for i := 0; i < stop; i++ {
			emitBit(!contains(s.BadStop, fi))
		}
		line(true)
		b.Hold(idle)
		clock = float64(b.Len())
	}
	return b.Snapshot()
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
