package dsl

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/decoder"
)

func TestParseSingleSpec(t *testing.T) {
	specs, err := Parse("spi ssn:0 sclk:1 mosi:2 cpol=0 bits=8")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("Parse() returned %d specs, want 1", len(specs))
	}
	s := specs[0]
	if s.Protocol != "spi" || len(s.Items) != 5 {
		t.Fatalf("Parse() = %s", s)
	}
	if !s.Items[0].IsBinding() || s.Items[3].IsBinding() {
		t.Fatalf("item kinds wrong: %s", s)
	}
	if got := s.String(); got != "spi ssn:0 sclk:1 mosi:2 cpol=0 bits=8" {
		t.Fatalf("String() = %q", got)
	}
}

func TestParseMultipleSpecs(t *testing.T) {
	text := `
	# two buses on one capture
	spi ssn:0 sclk:1 mosi:2 miso:3;
	i2c scl:4 sda:5;
	uart rx:6 baud=9600 parity=even;
	`
	specs, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := []string{"spi", "i2c", "uart"}
	if len(specs) != len(want) {
		t.Fatalf("Parse() returned %d specs, want %d", len(specs), len(want))
	}
	for i, s := range specs {
		if s.Protocol != want[i] {
			t.Fatalf("spec %d protocol = %q, want %q", i, s.Protocol, want[i])
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		text string
		want error
	}{
		{"", ErrEmpty},
		{"   \n", ErrEmpty},
		{"spi ssn", ErrSyntax},
		{"spi ssn:", ErrSyntax},
		{"spi ssn:x", ErrSyntax},
		{"spi bits=", ErrSyntax},
		{"spi ssn:0 i2c scl:1", ErrSyntax},
		{";", ErrSyntax},
	}
	for _, tc := range cases {
		if _, err := Parse(tc.text); !errors.Is(err, tc.want) {
			t.Fatalf("Parse(%q) error = %v, want %v", tc.text, err, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	s, err := ParseOne("SPI SSN:0 sclk:1 MOSI:2 miso:0x3 CPHA=1 order=lsb bits=12")
	if err != nil {
		t.Fatalf("ParseOne() error: %v", err)
	}
	p, ch, opts, idx, err := s.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if p != decoder.ProtocolSPI {
		t.Fatalf("protocol = %v, want SPI", p)
	}
	if len(ch) != 4 || ch[0] != 0 || ch[1] != 1 || ch[2] != 2 || ch[3] != 3 {
		t.Fatalf("channels = %v", ch)
	}
	if !opts.Bool("cpha") || opts.Bool("cpol") || opts.Int("bits") != 12 || opts.Choice("order") != "lsb" {
		t.Fatalf("options = %v", opts)
	}
	if idx["order"] != 1 || idx["bits"] != 11 {
		t.Fatalf("index = %v", idx)
	}
}

func TestResolveLeavesUnboundRoles(t *testing.T) {
	s, err := ParseOne("spi ssn:0 sclk:1 mosi:2")
	if err != nil {
		t.Fatalf("ParseOne() error: %v", err)
	}
	_, ch, _, _, err := s.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if ch.Role(decoder.SPIRoleMISO) != decoder.Unbound {
		t.Fatalf("MISO = %d, want unbound", ch[decoder.SPIRoleMISO])
	}
}

func TestResolveErrors(t *testing.T) {
	cases := []struct {
		text string
		want error
	}{
		{"can rx:0", decoder.ErrUnsupportedProtocol},
		{"spi clk:1", ErrUnknownKey},
		{"spi speed=4", ErrUnknownKey},
		{"spi ssn:0 ssn:1", ErrDuplicateKey},
		{"spi bits=8 BITS=9", ErrDuplicateKey},
		{"spi bits=40", decoder.ErrInvalidOption},
		{"uart rx:0 parity=mark", decoder.ErrInvalidOption},
	}
	for _, tc := range cases {
		s, err := ParseOne(tc.text)
		if err != nil {
			t.Fatalf("ParseOne(%q) error: %v", tc.text, err)
		}
		if _, err := s.Bind(); !errors.Is(err, tc.want) {
			t.Fatalf("Bind(%q) error = %v, want %v", tc.text, err, tc.want)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	opts, err := decoder.ProtocolUART.Normalize(decoder.Options{"baud": 9600, "stop": "2", "invert": true})
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	text := Format(decoder.ProtocolUART, decoder.Channels{7}, opts)
	if text != "UART RX:7 baud=9600 stop=2 invert=1" {
		t.Fatalf("Format() = %q", text)
	}
	s, err := ParseOne(text)
	if err != nil {
		t.Fatalf("ParseOne(%q) error: %v", text, err)
	}
	r, err := s.Bind()
	if err != nil {
		t.Fatalf("Bind() error: %v", err)
	}
	if r.Channels[0] != 7 || r.Options.Int("baud") != 9600 || r.Options.Choice("stop") != "2" || !r.Options.Bool("invert") {
		t.Fatalf("round trip = %+v", r)
	}
}
