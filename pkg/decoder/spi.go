package decoder

import (
	"image/color"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/timeline"
)

// SPI state kinds.
const (
	SPIUnknown  = timeline.KindUnknown
	SPIClockErr = timeline.Kind(1)
	SPIBitsErr  = timeline.Kind(2)
	SPIData     = timeline.Kind(3)
)

// SPIKinds is the SPI label/color table.
var SPIKinds = timeline.KindTable{
	SPIUnknown:  {Label: "Unknown", Color: color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}},
	SPIClockErr: {Label: "Clock Error", Color: color.NRGBA{R: 0xe0, G: 0x40, B: 0x40, A: 0xff}},
	SPIBitsErr:  {Label: "Bits Error", Color: color.NRGBA{R: 0xf0, G: 0xa0, B: 0x20, A: 0xff}},
	SPIData:     {Label: "Data", Color: color.NRGBA{R: 0x30, G: 0x90, B: 0xe0, A: 0xff}},
}

// SPI role positions within Channels.
const (
	SPIRoleSSN = iota
	SPIRoleSCLK
	SPIRoleMOSI
	SPIRoleMISO
)

var spiRoles = []Role{
	SPIRoleSSN:  {Name: "SSN", Required: true, Description: "chip select"},
	SPIRoleSCLK: {Name: "SCLK", Required: true, Description: "serial clock"},
	SPIRoleMOSI: {Name: "MOSI", Required: true, Description: "master out, slave in"},
	SPIRoleMISO: {Name: "MISO", Required: false, Description: "master in, slave out"},
}

var spiOptions = []OptionDef{
	{Name: "cpol", Type: OptionBool, Default: false, Description: "clock idles high"},
	{Name: "cpha", Type: OptionBool, Default: false, Description: "sample on the trailing clock edge"},
	{Name: "bits", Type: OptionInt, Default: 8, Min: 1, Max: 32, Description: "bits per word"},
	{Name: "order", Type: OptionChoice, Default: "msb", Choices: []string{"msb", "lsb"}, Description: "bit order"},
	{Name: "ssn", Type: OptionChoice, Default: "low", Choices: []string{"low", "high"}, Description: "chip select active level"},
	{Name: "max_width", Type: OptionInt, Default: 0, Min: 0, Max: 1 << 30, Description: "longest clock gap in samples while selected, 0 disables"},
}

type spiConfig struct {
	cpol       bool
	cpha       bool
	bits       int
	lsbFirst   bool
	activeHigh bool
	maxWidth   uint64
}

func compileSPI(opts Options) (decodeFunc, error) {
	c := spiConfig{
		cpol:       opts.Bool("cpol"),
		cpha:       opts.Bool("cpha"),
		bits:       opts.Int("bits"),
		lsbFirst:   opts.Choice("order") == "lsb",
		activeHigh: opts.Choice("ssn") == "high",
		maxWidth:   uint64(opts.Int("max_width")),
	}
	return c.decode, nil
}

// sampleRising reports whether data is sampled on rising clock edges. Mode 0
// (idle low, leading edge) and mode 3 (idle high, trailing edge) sample on
// the rising edge; modes 1 and 2 on the falling edge.
func (c spiConfig) sampleRising() bool { return c.cpol == c.cpha }

type spiPass struct {
	cfg        spiConfig
	sclk       logic.Lane
	mosi       logic.Lane
	miso       logic.Lane
	hasMISO    bool
	b          *timeline.Builder
	clockEdges []logic.EdgePair

	nbits   int
	out, in uint32
	first   uint64
	last    uint64
}

func (c spiConfig) decode(snap *logic.Snapshot, ch Channels, b *timeline.Builder) error {
	ssn, err := snap.Lane(ch.Role(SPIRoleSSN))
	if err != nil {
		return err
	}
	p := &spiPass{cfg: c, b: b}
	if p.sclk, err = snap.Lane(ch.Role(SPIRoleSCLK)); err != nil {
		return err
	}
	if p.mosi, err = snap.Lane(ch.Role(SPIRoleMOSI)); err != nil {
		return err
	}
	if misoCh := ch.Role(SPIRoleMISO); misoCh != Unbound {
		if p.miso, err = snap.Lane(misoCh); err != nil {
			return err
		}
		p.hasMISO = true
	}

	n := snap.Samples()
	cs := ssn.Edges(0, n, nil)
	active := cs.Initial == c.activeHigh
	var begin uint64
	for _, e := range cs.Edges {
		nowActive := e.Value == c.activeHigh
		switch {
		case nowActive && !active:
			begin = e.Index
		case !nowActive && active:
			p.transaction(begin, e.Index)
		}
		active = nowActive
	}
	if active {
		p.transaction(begin, n)
	}
	return nil
}

// transaction decodes one chip-select window [begin, end).
func (p *spiPass) transaction(begin, end uint64) {
	run := p.sclk.Edges(begin, end, p.clockEdges)
	p.clockEdges = run.Edges
	p.nbits = 0

	rising := p.cfg.sampleRising()
	gapStart := begin
	for _, e := range run.Edges {
		p.checkGap(gapStart, e.Index)
		gapStart = e.Index
		if e.Value != rising {
			continue
		}
		p.shift(e.Index)
	}
	p.checkGap(gapStart, end)
	p.flushPartial()
}

func (p *spiPass) shift(at uint64) {
	var outBit, inBit uint32
	if p.mosi.At(at) {
		outBit = 1
	}
	if p.hasMISO && p.miso.At(at) {
		inBit = 1
	}
	if p.nbits == 0 {
		p.first = at
		p.out, p.in = 0, 0
	}
	if p.cfg.lsbFirst {
		p.out |= outBit << uint(p.nbits)
		p.in |= inBit << uint(p.nbits)
	} else {
		p.out = p.out<<1 | outBit
		p.in = p.in<<1 | inBit
	}
	p.nbits++
	p.last = at
	if p.nbits == p.cfg.bits {
		emit(p.b, timeline.Interval{Start: p.first, End: p.last + 1, Kind: SPIData, Primary: p.out, Secondary: p.in})
		p.nbits = 0
	}
}

// flushPartial records a word cut short by deselect, a clock gap or the end
// of the capture.
func (p *spiPass) flushPartial() {
	if p.nbits == 0 {
		return
	}
	emit(p.b, timeline.Interval{Start: p.first, End: p.last + 1, Kind: SPIBitsErr, Primary: p.out, Secondary: p.in})
	p.nbits = 0
}

func (p *spiPass) checkGap(from, to uint64) {
	if p.cfg.maxWidth == 0 || to-from <= p.cfg.maxWidth {
		return
	}
	p.flushPartial()
	emit(p.b, timeline.Interval{Start: from, End: to, Kind: SPIClockErr})
}
