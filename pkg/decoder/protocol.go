package decoder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/timeline"
)

var (
	// ErrUnsupportedProtocol reports a protocol id or name outside the fixed
	// protocol list.
	ErrUnsupportedProtocol = errors.New("decoder: unsupported protocol")
	// ErrMissingChannel reports a required role with no channel bound.
	ErrMissingChannel = errors.New("decoder: required channel not bound")
	// ErrInvalidChannel reports a malformed channel assignment.
	ErrInvalidChannel = errors.New("decoder: invalid channel assignment")
	// ErrInvalidOption reports an unknown option or a value outside its range.
	ErrInvalidOption = errors.New("decoder: invalid option")
	// ErrNoSource reports a decoder constructed without a sample source.
	ErrNoSource = errors.New("decoder: no sample source")
)

// Protocol selects one entry of the fixed protocol list. The numeric value is
// the selector used by configuration front ends.
type Protocol int

const (
	ProtocolSPI Protocol = iota
	ProtocolI2C
	ProtocolUART
	protocolCount
)

// Role is one logical signal a protocol needs, e.g. SCLK for SPI.
type Role struct {
	Name        string
	Required    bool
	Description string
}

// decodeFunc runs one full pass over snap and appends the decoded states.
type decodeFunc func(snap *logic.Snapshot, channels Channels, b *timeline.Builder) error

// protocolDef is one row of the dispatch table. Adding a protocol means adding
// a Protocol constant and a row here.
type protocolDef struct {
	name    string
	roles   []Role
	options []OptionDef
	kinds   timeline.KindTable
	compile func(Options) (decodeFunc, error)
}

var protocolTable = [protocolCount]protocolDef{
	ProtocolSPI: {
		name:    "SPI",
		roles:   spiRoles,
		options: spiOptions,
		kinds:   SPIKinds,
		compile: compileSPI,
	},
	ProtocolI2C: {
		name:    "I2C",
		roles:   i2cRoles,
		options: nil,
		kinds:   I2CKinds,
		compile: compileI2C,
	},
	ProtocolUART: {
		name:    "UART",
		roles:   uartRoles,
		options: uartOptions,
		kinds:   UARTKinds,
		compile: compileUART,
	},
}

// Protocols lists every supported protocol in selector order.
func Protocols() []Protocol {
	out := make([]Protocol, protocolCount)
	for i := range out {
		out[i] = Protocol(i)
	}
	return out
}

// ProtocolByID validates an integer selector.
func ProtocolByID(id int) (Protocol, error) {
	if id < 0 || id >= int(protocolCount) {
		return 0, fmt.Errorf("%w: id %d", ErrUnsupportedProtocol, id)
	}
	return Protocol(id), nil
}

// ProtocolByName looks a protocol up by case-insensitive name.
func ProtocolByName(name string) (Protocol, error) {
	for i := range protocolTable {
		if strings.EqualFold(protocolTable[i].name, name) {
			return Protocol(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, name)
}

func (p Protocol) valid() bool { return p >= 0 && p < protocolCount }

func (p Protocol) def() *protocolDef { return &protocolTable[p] }

func (p Protocol) String() string {
	if p.valid() {
		return p.def().name
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

// Roles returns the ordered role list; Channels are indexed by it.
func (p Protocol) Roles() []Role {
	if !p.valid() {
		return nil
	}
	return append([]Role(nil), p.def().roles...)
}

// RoleIndex finds a role by case-insensitive name.
func (p Protocol) RoleIndex(name string) (int, bool) {
	if !p.valid() {
		return 0, false
	}
	for i, r := range p.def().roles {
		if strings.EqualFold(r.Name, name) {
			return i, true
		}
	}
	return 0, false
}

// OptionDefs returns the option schema.
func (p Protocol) OptionDefs() []OptionDef {
	if !p.valid() {
		return nil
	}
	return append([]OptionDef(nil), p.def().options...)
}

// Kinds returns the static label/color table for the protocol's states.
func (p Protocol) Kinds() timeline.KindTable {
	if !p.valid() {
		return nil
	}
	return p.def().kinds
}
