package decoder

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/sim"
)

func TestCreateUnsupportedProtocol(t *testing.T) {
	src := StaticSource(nil)
	for _, id := range []int{-1, 3, 99} {
		d, err := Create(id, src, Channels{0, 1}, nil, nil)
		if !errors.Is(err, ErrUnsupportedProtocol) {
			t.Fatalf("Create(%d) error = %v, want ErrUnsupportedProtocol", id, err)
		}
		if d != nil {
			t.Fatalf("Create(%d) returned a decoder alongside an error", id)
		}
	}
}

func TestCreateMissingChannel(t *testing.T) {
	src := StaticSource(nil)
	cases := []struct {
		name string
		ch   Channels
		role string
	}{
		{"no channels", nil, "SSN"},
		{"clock unbound", Channels{0, Unbound, 2, 3}, "SCLK"},
		{"mosi negative", Channels{0, 1, -5}, "MOSI"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Create(int(ProtocolSPI), src, tc.ch, nil, nil)
			if !errors.Is(err, ErrMissingChannel) {
				t.Fatalf("Create() error = %v, want ErrMissingChannel", err)
			}
			var chErr *ChannelError
			if !errors.As(err, &chErr) || chErr.Role != tc.role {
				t.Fatalf("Create() error = %v, want role %s", err, tc.role)
			}
			if d != nil {
				t.Fatalf("Create() returned a partially configured decoder")
			}
		})
	}
}

func TestCreateRejectsDuplicateChannel(t *testing.T) {
	_, err := New(ProtocolSPI, StaticSource(nil), Channels{0, 1, 1, 3}, nil, nil)
	if !errors.Is(err, ErrInvalidChannel) {
		t.Fatalf("New() error = %v, want ErrInvalidChannel", err)
	}
	_, err = New(ProtocolI2C, StaticSource(nil), Channels{0, 1, 2}, nil, nil)
	if !errors.Is(err, ErrInvalidChannel) {
		t.Fatalf("New() with extra channel error = %v, want ErrInvalidChannel", err)
	}
}

func TestCreateRejectsBadOptions(t *testing.T) {
	cases := []Options{
		{"bits": 0},
		{"bits": 33},
		{"order": "middle"},
		{"color": "blue"},
		{"cpol": "maybe"},
	}
	for _, opts := range cases {
		_, err := New(ProtocolSPI, StaticSource(nil), Channels{0, 1, 2, 3}, opts, nil)
		if !errors.Is(err, ErrInvalidOption) {
			t.Fatalf("New(%v) error = %v, want ErrInvalidOption", opts, err)
		}
	}
}

func TestNewRequiresSource(t *testing.T) {
	if _, err := New(ProtocolSPI, nil, Channels{0, 1, 2, 3}, nil, nil); !errors.Is(err, ErrNoSource) {
		t.Fatalf("New(nil source) error = %v, want ErrNoSource", err)
	}
}

func TestProtocolLookup(t *testing.T) {
	for _, p := range Protocols() {
		byName, err := ProtocolByName(p.String())
		if err != nil || byName != p {
			t.Fatalf("ProtocolByName(%q) = %v, %v", p.String(), byName, err)
		}
		byID, err := ProtocolByID(int(p))
		if err != nil || byID != p {
			t.Fatalf("ProtocolByID(%d) = %v, %v", int(p), byID, err)
		}
		if len(p.Kinds()) == 0 || p.Kinds().Label(0) != "Unknown" {
			t.Fatalf("%s kind table missing Unknown entry", p)
		}
	}
	if _, err := ProtocolByName("can"); !errors.Is(err, ErrUnsupportedProtocol) {
		t.Fatalf("ProtocolByName(can) error = %v", err)
	}
}

func TestRecodeReplacesTimeline(t *testing.T) {
	words := []sim.Word{{Out: 0xAB}, {Out: 0xCD}, {Out: 0xEF}, {Out: 0x12}}
	snap, err := sim.SPI{Words: words}.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	d := decodeSnapshot(t, ProtocolSPI, snap, Channels{0, 1, 2, 3}, Options{"bits": 8})
	before := d.Timeline()
	if before.Count(SPIData) != 4 {
		t.Fatalf("8-bit decode produced %d words, want 4", before.Count(SPIData))
	}

	idx := OptionsIndex{"bits": 15}
	if err := d.Recode(Channels{0, 1, 2, 3}, Options{"bits": 16}, idx); err != nil {
		t.Fatalf("Recode() error: %v", err)
	}
	after := d.Timeline()
	if after.Generation() == before.Generation() {
		t.Fatalf("Recode() did not publish a new timeline")
	}
	got := after.Intervals()
	if len(got) != 2 || got[0].Primary != 0xABCD || got[1].Primary != 0xEF12 {
		t.Fatalf("16-bit decode = %v, want 0xabcd, 0xef12", got)
	}
	if before.Len() != 4 {
		t.Fatalf("Recode() mutated the previously published timeline")
	}
	if d.Options().Int("bits") != 16 || d.OptionsIndex()["bits"] != 15 {
		t.Fatalf("Recode() did not replace the configuration")
	}
}

func TestRecodeConfigErrorKeepsState(t *testing.T) {
	snap, err := sim.SPI{Words: []sim.Word{{Out: 1}}}.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	d := decodeSnapshot(t, ProtocolSPI, snap, Channels{0, 1, 2, 3}, nil)
	gen := d.Timeline().Generation()

	if err := d.Recode(Channels{0}, nil, nil); !errors.Is(err, ErrMissingChannel) {
		t.Fatalf("Recode() error = %v, want ErrMissingChannel", err)
	}
	if d.Timeline().Generation() != gen {
		t.Fatalf("failed Recode() replaced the timeline")
	}
	if got := d.Probes(); len(got) != 4 || got[1] != 1 {
		t.Fatalf("failed Recode() changed probes to %v", got)
	}
}

func TestDecodeSourceErrorPublishesEmpty(t *testing.T) {
	snap, err := sim.SPI{Words: []sim.Word{{Out: 1}}}.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	unavailable := errors.New("capture buffer released")
	fail := false
	src := SourceFunc(func() (*logic.Snapshot, error) {
		if fail {
			return nil, unavailable
		}
		return snap, nil
	})
	d, err := New(ProtocolSPI, src, Channels{0, 1, 2, 3}, nil, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := d.Decode(); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if d.Timeline().Len() != 1 {
		t.Fatalf("Decode() produced %d intervals, want 1", d.Timeline().Len())
	}

	fail = true
	if err := d.Decode(); !errors.Is(err, unavailable) {
		t.Fatalf("Decode() error = %v, want source error", err)
	}
	if d.Timeline().Len() != 0 {
		t.Fatalf("aborted Decode() left %d intervals", d.Timeline().Len())
	}
}

func TestIndexDerivedFromOptions(t *testing.T) {
	d, err := New(ProtocolSPI, StaticSource(nil), Channels{0, 1, 2, 3}, Options{"order": "lsb", "cpol": true, "bits": 12}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	idx := d.OptionsIndex()
	if idx["order"] != 1 || idx["cpol"] != 1 || idx["bits"] != 11 || idx["ssn"] != 0 {
		t.Fatalf("OptionsIndex() = %v", idx)
	}
	if d.Name() != "SPI" {
		t.Fatalf("Name() = %q, want SPI", d.Name())
	}
}

func TestParseValue(t *testing.T) {
	cases := []struct {
		p    Protocol
		name string
		text string
		want any
	}{
		{ProtocolSPI, "cpol", "1", true},
		{ProtocolSPI, "CPHA", "false", false},
		{ProtocolSPI, "bits", "0x10", 16},
		{ProtocolSPI, "order", "LSB", "lsb"},
		{ProtocolUART, "baud", "9600", 9600},
		{ProtocolUART, "stop", "2", "2"},
	}
	for _, tc := range cases {
		got, err := tc.p.ParseValue(tc.name, tc.text)
		if err != nil {
			t.Fatalf("ParseValue(%s, %q) error: %v", tc.name, tc.text, err)
		}
		if got != tc.want {
			t.Fatalf("ParseValue(%s, %q) = %v, want %v", tc.name, tc.text, got, tc.want)
		}
	}
	if _, err := ProtocolI2C.ParseValue("bits", "8"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("ParseValue on option-less protocol error = %v", err)
	}
}

func TestIndexOf(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  int
	}{
		{"order", "lsb", 1},
		{"ssn", "high", 1},
		{"bits", 8, 7},
		{"cpha", "on", 1},
	}
	for _, tc := range cases {
		got, err := ProtocolSPI.IndexOf(tc.name, tc.value)
		if err != nil || got != tc.want {
			t.Fatalf("IndexOf(%s, %v) = %d, %v, want %d", tc.name, tc.value, got, err, tc.want)
		}
	}
	if _, err := ProtocolSPI.IndexOf("bits", 64); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("IndexOf(bits, 64) error = %v", err)
	}
}
