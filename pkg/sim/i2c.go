package sim

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
)

// I2CTransfer is one addressed transfer between START and STOP.
type I2CTransfer struct {
	Addr uint8
	Read bool
	Data []byte
	// Nack marks the final data byte (or the address when Data is empty) as
	// not acknowledged.
	Nack bool
	// NoStop replaces the closing STOP with a repeated START for the next
	// transfer.
	NoStop bool
	// TruncateBits, when positive, issues STOP after that many bits of the
	// final byte.
	TruncateBits int
}

// I2C describes a bus carrying Transfers.
type I2C struct {
	HalfPeriod uint64 // default 5
	Lead       uint64 // default 10
	Transfers  []I2CTransfer
	SampleRate uint64
	// Channels maps SCL, SDA to physical channels.
	Channels []int
}

// Build renders the waveform.
func (s I2C) Build() (*logic.Snapshot, error) {
	chans, width, err := resolveChannels(s.Channels, 2)
	if err != nil {
		return nil, err
	}
	scl, sda := chans[0], chans[1]
	half := orDefault(s.HalfPeriod, 5)
	lead := orDefault(s.Lead, 10)

	b := newBuilder(width, s.SampleRate)
	b.Set(scl, true).Set(sda, true).Hold(lead)

	for ti, t := range s.Transfers {
		if ti > 0 && s.Transfers[ti-1].NoStop {
			// repeated start: release SDA with SCL low, then raise SCL
			b.Set(sda, true).Hold(half)
			b.Set(scl, true).Hold(half)
		}
		b.Set(sda, false).Hold(half) // START
		b.Set(scl, false).Hold(half)

		frames := append([]byte{t.Addr<<1 | boolBit(t.Read)}, t.Data...)
		for fi, v := range frames {
			last := fi == len(frames)-1
			nbits := 8
			if last && t.TruncateBits > 0 {
				if t.TruncateBits >= 8 {
					return nil, fmt.Errorf("sim: i2c truncate %d must be below 8", t.TruncateBits)
				}
				nbits = t.TruncateBits
			}
			for k := 0; k < nbits; k++ {
				clockBit(b, scl, sda, v>>uint(7-k)&1 == 1, half)
			}
			if nbits < 8 {
				break
			}
			nack := last && t.Nack
			clockBit(b, scl, sda, nack, half)
		}

		if t.NoStop && ti != len(s.Transfers)-1 {
			continue
		}
		b.Set(sda, false).Hold(half) // STOP
		b.Set(scl, true).Hold(half)
		b.Set(sda, true).Hold(lead)
	}
	return b.Snapshot()
}

func clockBit(b *logic.Builder, scl, sda int, bit bool, half uint64) {
	b.Set(sda, bit).Hold(half)
	b.Set(scl, true).Hold(half)
	b.Set(scl, false)
}

func boolBit(v bool) byte {
	if v {
		return 1
	}
	return 0
}
