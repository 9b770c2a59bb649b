package decoder

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/sim"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/timeline"
)

func kindsOf(ivs []timeline.Interval) []timeline.Kind {
	out := make([]timeline.Kind, len(ivs))
	for i, iv := range ivs {
		out[i] = iv.Kind
	}
	return out
}

func sameKinds(a, b []timeline.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestI2CWriteTransfer(t *testing.T) {
	snap, err := sim.I2C{Transfers: []sim.I2CTransfer{{Addr: 0x50, Data: []byte{0x00, 0xA5}}}}.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	d := decodeSnapshot(t, ProtocolI2C, snap, Channels{0, 1}, nil)
	got := fullQuery(snap, d)
	want := []timeline.Kind{I2CStart, I2CAddrWrite, I2CData, I2CData, I2CStop}
	if !sameKinds(kindsOf(got), want) {
		t.Fatalf("kinds = %v, want %v (%v)", kindsOf(got), want, got)
	}
	if got[1].Primary != 0x50 || got[1].Secondary != 0 {
		t.Fatalf("address = %v, want 0x50 ACK", got[1])
	}
	if got[3].Primary != 0xA5 {
		t.Fatalf("data = %#x, want 0xa5", got[3].Primary)
	}
}

func TestI2CRepeatedStartRead(t *testing.T) {
	snap, err := sim.I2C{Transfers: []sim.I2CTransfer{
		{Addr: 0x1D, Data: []byte{0x0F}, NoStop: true},
		{Addr: 0x1D, Read: true, Data: []byte{0x2A}, Nack: true},
	}}.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	d := decodeSnapshot(t, ProtocolI2C, snap, Channels{0, 1}, nil)
	got := fullQuery(snap, d)
	want := []timeline.Kind{I2CStart, I2CAddrWrite, I2CData, I2CRepStart, I2CAddrRead, I2CData, I2CStop}
	if !sameKinds(kindsOf(got), want) {
		t.Fatalf("kinds = %v, want %v", kindsOf(got), want)
	}
	if got[5].Primary != 0x2A || got[5].Secondary != 1 {
		t.Fatalf("read byte = %v, want 0x2a NACK", got[5])
	}
}

func TestI2CTruncatedByteIsBitsErr(t *testing.T) {
	snap, err := sim.I2C{Channels: []int{1, 0}, Transfers: []sim.I2CTransfer{{Addr: 0x22, Data: []byte{0xF0}, TruncateBits: 4}}}.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	d := decodeSnapshot(t, ProtocolI2C, snap, Channels{1, 0}, nil)
	got := fullQuery(snap, d)
	want := []timeline.Kind{I2CStart, I2CAddrWrite, I2CBitsErr, I2CStop}
	if !sameKinds(kindsOf(got), want) {
		t.Fatalf("kinds = %v, want %v", kindsOf(got), want)
	}
	if got[2].Primary != 0xF {
		t.Fatalf("partial byte = %#x, want 0xf", got[2].Primary)
	}
}
