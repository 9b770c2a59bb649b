package decoder

import (
	"image/color"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/timeline"
)

// I2C state kinds.
const (
	I2CUnknown   = timeline.KindUnknown
	I2CBitsErr   = timeline.Kind(1)
	I2CStart     = timeline.Kind(2)
	I2CRepStart  = timeline.Kind(3)
	I2CStop      = timeline.Kind(4)
	I2CAddrWrite = timeline.Kind(5)
	I2CAddrRead  = timeline.Kind(6)
	I2CData      = timeline.Kind(7)
)

// I2CKinds is the I2C label/color table.
var I2CKinds = timeline.KindTable{
	I2CUnknown:   {Label: "Unknown", Color: color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}},
	I2CBitsErr:   {Label: "Bits Error", Color: color.NRGBA{R: 0xf0, G: 0xa0, B: 0x20, A: 0xff}},
	I2CStart:     {Label: "Start", Color: color.NRGBA{R: 0x40, G: 0xc0, B: 0x40, A: 0xff}},
	I2CRepStart:  {Label: "Repeated Start", Color: color.NRGBA{R: 0x40, G: 0xa0, B: 0x80, A: 0xff}},
	I2CStop:      {Label: "Stop", Color: color.NRGBA{R: 0xc0, G: 0x40, B: 0x40, A: 0xff}},
	I2CAddrWrite: {Label: "Address Write", Color: color.NRGBA{R: 0xa0, G: 0x60, B: 0xe0, A: 0xff}},
	I2CAddrRead:  {Label: "Address Read", Color: color.NRGBA{R: 0x60, G: 0x60, B: 0xe0, A: 0xff}},
	I2CData:      {Label: "Data", Color: color.NRGBA{R: 0x30, G: 0x90, B: 0xe0, A: 0xff}},
}

// I2C role positions within Channels.
const (
	I2CRoleSCL = iota
	I2CRoleSDA
)

var i2cRoles = []Role{
	I2CRoleSCL: {Name: "SCL", Required: true, Description: "serial clock"},
	I2CRoleSDA: {Name: "SDA", Required: true, Description: "serial data"},
}

func compileI2C(Options) (decodeFunc, error) {
	return decodeI2C, nil
}

type i2cPass struct {
	b       *timeline.Builder
	scl     bool
	sda     bool
	inFrame bool
	nbits   int
	value   uint32
	first   uint64
	last    uint64
	prev    uint64
	nbyte   int
}

// decodeI2C walks SCL and SDA edges in sample order. An SDA change while SCL
// is high is a START (falling) or STOP (rising); otherwise SDA is sampled on
// every SCL rising edge, eight data bits MSB first followed by the ACK bit.
// The SCL rising edge that precedes a START or STOP belongs to the condition,
// not to a byte. When both lines change on one sample the SCL edge is applied
// first.
func decodeI2C(snap *logic.Snapshot, ch Channels, b *timeline.Builder) error {
	scl, err := snap.Lane(ch.Role(I2CRoleSCL))
	if err != nil {
		return err
	}
	sda, err := snap.Lane(ch.Role(I2CRoleSDA))
	if err != nil {
		return err
	}
	n := snap.Samples()
	clk := scl.Edges(0, n, nil)
	dat := sda.Edges(0, n, nil)

	p := &i2cPass{b: b, scl: clk.Initial, sda: dat.Initial}
	i, j := 0, 0
	for i < len(clk.Edges) || j < len(dat.Edges) {
		if j >= len(dat.Edges) || (i < len(clk.Edges) && clk.Edges[i].Index <= dat.Edges[j].Index) {
			p.clock(clk.Edges[i])
			i++
			continue
		}
		p.data(dat.Edges[j])
		j++
	}
	if p.inFrame && p.nbits > 0 {
		emit(b, timeline.Interval{Start: p.first, End: n, Kind: I2CBitsErr, Primary: p.value})
	}
	return nil
}

func (p *i2cPass) clock(e logic.EdgePair) {
	p.scl = e.Value
	if !e.Value || !p.inFrame {
		return
	}
	var bit uint32
	if p.sda {
		bit = 1
	}
	if p.nbits == 0 {
		p.first = e.Index
		p.value = 0
	}
	p.prev, p.last = p.last, e.Index
	if p.nbits < 8 {
		p.value = p.value<<1 | bit
		p.nbits++
		return
	}

	iv := timeline.Interval{Start: p.first, End: e.Index + 1, Primary: p.value, Secondary: bit}
	switch {
	case p.nbyte > 0:
		iv.Kind = I2CData
	case p.value&1 == 1:
		iv.Kind = I2CAddrRead
		iv.Primary = p.value >> 1
	default:
		iv.Kind = I2CAddrWrite
		iv.Primary = p.value >> 1
	}
	emit(p.b, iv)
	p.nbyte++
	p.nbits = 0
}

func (p *i2cPass) data(e logic.EdgePair) {
	p.sda = e.Value
	if !p.scl {
		return
	}
	if p.nbits > 1 {
		emit(p.b, timeline.Interval{Start: p.first, End: p.prev + 1, Kind: I2CBitsErr, Primary: p.value >> 1})
	}
	p.nbits = 0
	kind := I2CStop
	if !e.Value {
		kind = I2CStart
		if p.inFrame {
			kind = I2CRepStart
		}
	}
	emit(p.b, timeline.Interval{Start: e.Index, End: e.Index + 1, Kind: kind})
	p.inFrame = kind != I2CStop
	p.nbyte = 0
}
