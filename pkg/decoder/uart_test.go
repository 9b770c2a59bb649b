package decoder

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/sim"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/timeline"
)

func TestUARTFrames(t *testing.T) {
	frames := []uint32{'O', 'K', 0x00, 0xFF, 0x55}
	cases := []struct {
		name string
		wave sim.UART
		opts Options
	}{
		{"8N1", sim.UART{Baud: 9600, Frames: frames}, Options{"baud": 9600}},
		{"8E2", sim.UART{Baud: 9600, Parity: "even", StopBits: 2, Frames: frames}, Options{"baud": 9600, "parity": "even", "stop": "2"}},
		{"7O1 msb", sim.UART{Baud: 19200, Bits: 7, Parity: "odd", MSBFirst: true, Frames: []uint32{0x41, 0x7F}}, Options{"baud": 19200, "bits": 7, "parity": "odd", "order": "msb"}},
		{"inverted", sim.UART{Baud: 9600, Invert: true, Frames: frames}, Options{"baud": 9600, "invert": true}},
		{"fractional rate", sim.UART{Baud: 115200, SampleRate: 1_000_000, Frames: frames}, Options{"baud": 115200}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := tc.wave.Build()
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			d := decodeSnapshot(t, ProtocolUART, snap, Channels{0}, tc.opts)
			got := fullQuery(snap, d)
			want := tc.wave.Frames
			if len(got) != len(want) {
				t.Fatalf("decoded %d frames, want %d: %v", len(got), len(want), got)
			}
			for i := range want {
				if got[i].Kind != UARTData || got[i].Primary != want[i] {
					t.Fatalf("frame %d = %v, want Data %#x", i, got[i], want[i])
				}
			}
		})
	}
}

func TestUARTErrors(t *testing.T) {
	wave := sim.UART{Baud: 9600, Parity: "even", Frames: []uint32{1, 2, 3}, BadParity: []int{1}, BadStop: []int{2}}
	snap, err := wave.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	d := decodeSnapshot(t, ProtocolUART, snap, Channels{0}, Options{"baud": 9600, "parity": "even"})
	got := fullQuery(snap, d)
	want := []timeline.Kind{UARTData, UARTParityErr, UARTFramingErr}
	if !sameKinds(kindsOf(got), want) {
		t.Fatalf("kinds = %v, want %v (%v)", kindsOf(got), want, got)
	}
	if got[1].Primary != 2 || got[2].Primary != 3 {
		t.Fatalf("error frames lost their payload: %v", got)
	}
}

func TestUARTRequiresSampleRate(t *testing.T) {
	snap, err := logic.NewSnapshot(make([]byte, 64), 1, 0, logic.SequentialProbes(1))
	if err != nil {
		t.Fatalf("NewSnapshot() error: %v", err)
	}
	d, err := New(ProtocolUART, StaticSource(snap), Channels{0}, nil, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := d.Decode(); !errors.Is(err, ErrSampleRate) {
		t.Fatalf("Decode() error = %v, want ErrSampleRate", err)
	}
}
