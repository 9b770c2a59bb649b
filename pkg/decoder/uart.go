package decoder

import (
	"errors"
	"fmt"
	"image/color"
	"math/bits"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/timeline"
)

// ErrSampleRate reports a capture whose sample rate is unknown or too low
// for the configured baud rate.
var ErrSampleRate = errors.New("decoder: unusable sample rate")

// UART state kinds.
const (
	UARTUnknown    = timeline.KindUnknown
	UARTFramingErr = timeline.Kind(1)
	UARTParityErr  = timeline.Kind(2)
	UARTData       = timeline.Kind(3)
)

// UARTKinds is the UART label/color table.
var UARTKinds = timeline.KindTable{
	UARTUnknown:    {Label: "Unknown", Color: color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}},
	UARTFramingErr: {Label: "Framing Error", Color: color.NRGBA{R: 0xe0, G: 0x40, B: 0x40, A: 0xff}},
	UARTParityErr:  {Label: "Parity Error", Color: color.NRGBA{R: 0xf0, G: 0xa0, B: 0x20, A: 0xff}},
	UARTData:       {Label: "Data", Color: color.NRGBA{R: 0x30, G: 0x90, B: 0xe0, A: 0xff}},
}

// UARTRoleRX is the only UART role.
const UARTRoleRX = 0

var uartRoles = []Role{
	UARTRoleRX: {Name: "RX", Required: true, Description: "receive line"},
}

var uartOptions = []OptionDef{
	{Name: "baud", Type: OptionInt, Default: 115200, Min: 1, Max: 100_000_000, Description: "baud rate"},
	{Name: "bits", Type: OptionInt, Default: 8, Min: 5, Max: 9, Description: "data bits per frame"},
	{Name: "parity", Type: OptionChoice, Default: "none", Choices: []string{"none", "odd", "even"}, Description: "parity bit"},
	{Name: "stop", Type: OptionChoice, Default: "1", Choices: []string{"1", "2"}, Description: "stop bits"},
	{Name: "order", Type: OptionChoice, Default: "lsb", Choices: []string{"lsb", "msb"}, Description: "bit order"},
	{Name: "invert", Type: OptionBool, Default: false, Description: "line idles low"},
}

type uartConfig struct {
	baud     int
	bits     int
	parity   string
	stop     int
	msbFirst bool
	invert   bool
}

func compileUART(opts Options) (decodeFunc, error) {
	c := uartConfig{
		baud:     opts.Int("baud"),
		bits:     opts.Int("bits"),
		parity:   opts.Choice("parity"),
		stop:     1,
		msbFirst: opts.Choice("order") == "msb",
		invert:   opts.Bool("invert"),
	}
	if opts.Choice("stop") == "2" {
		c.stop = 2
	}
	return c.decode, nil
}

func (c uartConfig) parityBits() int {
	if c.parity == "none" {
		return 0
	}
	return 1
}

// decode finds each start bit on a transition away from idle and samples
// every following bit at its centre.
func (c uartConfig) decode(snap *logic.Snapshot, ch Channels, b *timeline.Builder) error {
	rx, err := snap.Lane(ch.Role(UARTRoleRX))
	if err != nil {
		return err
	}
	if snap.SampleRate() == 0 {
		return fmt.Errorf("%w: capture has no sample rate", ErrSampleRate)
	}
	spb := float64(snap.SampleRate()) / float64(c.baud)
	if spb < 2 {
		return fmt.Errorf("%w: %d Hz is below twice %d baud", ErrSampleRate, snap.SampleRate(), c.baud)
	}

	n := snap.Samples()
	run := rx.Edges(0, n, nil)
	// logical level: true is mark (idle), false is space
	level := func(i uint64) bool { return rx.At(i) != c.invert }
	frameBits := 1 + c.bits + c.parityBits() + c.stop

	var resume uint64
	for _, e := range run.Edges {
		if e.Index < resume || (e.Value != c.invert) {
			// not a mark-to-space transition, or inside the previous frame
			continue
		}
		t0 := float64(e.Index)
		at := func(bit float64) uint64 { return uint64(t0 + bit*spb) }

		end := at(float64(frameBits))
		if at(float64(frameBits)-0.5) >= n {
			emit(b, timeline.Interval{Start: e.Index, End: n, Kind: UARTFramingErr})
			break
		}
		if end > n {
			end = n
		}
		if level(at(0.5)) {
			// start bit did not hold; treat as a glitch
			continue
		}

		var value uint32
		for i := 0; i < c.bits; i++ {
			var bit uint32
			if level(at(1.5 + float64(i))) {
				bit = 1
			}
			if c.msbFirst {
				value = value<<1 | bit
			} else {
				value |= bit << uint(i)
			}
		}
		pos := 1.5 + float64(c.bits)

		iv := timeline.Interval{Start: e.Index, End: end, Kind: UARTData, Primary: value}
		if c.parityBits() == 1 {
			var pbit uint32
			if level(at(pos)) {
				pbit = 1
			}
			ones := bits.OnesCount32(value) + int(pbit)
			if (c.parity == "even") != (ones%2 == 0) {
				iv.Kind = UARTParityErr
				iv.Secondary = pbit
			}
			pos++
		}
		stopOK := true
		for s := 0; s < c.stop; s++ {
			if !level(at(pos)) {
				stopOK = false
			}
			pos++
		}
		if !stopOK {
			iv.Kind = UARTFramingErr
		}
		emit(b, iv)
		resume = at(pos - 1)
	}
	return nil
}
