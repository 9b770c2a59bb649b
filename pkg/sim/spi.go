package sim

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
)

// Word is one SPI transfer: the MOSI and MISO values of the same word.
type Word struct {
	Out uint32
	In  uint32
}

// SPI describes one chip-select window carrying Words.
type SPI struct {
	CPOL         bool
	CPHA         bool
	Bits         int
	LSBFirst     bool
	CSActiveHigh bool

	HalfPeriod uint64 // samples per clock half period, default 4
	Lead       uint64 // idle samples before select and after deselect, default 8
	Gap        uint64 // idle clock samples between words, default 2*HalfPeriod

	Words []Word
	// TruncateBits, when positive, deselects after that many bits of the
	// final word.
	TruncateBits int

	SampleRate uint64
	// Channels maps SSN, SCLK, MOSI, MISO to physical channels.
	Channels []int
}

// Build renders the waveform.
func (s SPI) Build() (*logic.Snapshot, error) {
	bits := s.Bits
	if bits == 0 {
		bits = 8
	}
	if bits < 1 || bits > 32 {
		return nil, fmt.Errorf("sim: spi bits %d out of range", bits)
	}
	if s.TruncateBits >= bits {
		return nil, fmt.Errorf("sim: truncate %d must be below word size %d", s.TruncateBits, bits)
	}
	chans, width, err := resolveChannels(s.Channels, 4)
	if err != nil {
		return nil, err
	}
	ssn, sclk, mosi, miso := chans[0], chans[1], chans[2], chans[3]
	half := orDefault(s.HalfPeriod, 4)
	lead := orDefault(s.Lead, 8)
	gap := orDefault(s.Gap, 2*half)

	b := newBuilder(width, s.SampleRate)
	b.Set(ssn, !s.CSActiveHigh).Set(sclk, s.CPOL).Hold(lead)
	b.Set(ssn, s.CSActiveHigh).Hold(half)

	for wi, w := range s.Words {
		n := bits
		if wi == len(s.Words)-1 && s.TruncateBits > 0 {
			n = s.TruncateBits
		}
		for k := 0; k < n; k++ {
			pos := bits - 1 - k
			if s.LSBFirst {
				pos = k
			}
			out := w.Out>>uint(pos)&1 == 1
			in := w.In>>uint(pos)&1 == 1
			if s.CPHA {
				// leading edge shifts, trailing edge samples
				b.Set(sclk, !s.CPOL).Set(mosi, out).Set(miso, in).Hold(half)
				b.Set(sclk, s.CPOL).Hold(half)
			} else {
				b.Set(mosi, out).Set(miso, in).Hold(half)
				b.Set(sclk, !s.CPOL).Hold(half)
				b.Set(sclk, s.CPOL)
			}
		}
		if !s.CPHA {
			b.Hold(half)
		}
		if wi != len(s.Words)-1 {
			b.Hold(gap)
		}
	}

	b.Hold(half).Set(ssn, !s.CSActiveHigh).Hold(lead)
	return b.Snapshot()
}
