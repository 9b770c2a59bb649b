package decoder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// OptionType is the value type of one decoder option.
type OptionType uint8

const (
	OptionBool OptionType = iota
	OptionInt
	OptionChoice
)

func (t OptionType) String() string {
	switch t {
	case OptionBool:
		return "bool"
	case OptionInt:
		return "int"
	case OptionChoice:
		return "choice"
	}
	return fmt.Sprintf("OptionType(%d)", uint8(t))
}

// OptionDef describes one entry of a protocol's option schema. Default holds
// a bool, int or string matching Type.
type OptionDef struct {
	Name        string
	Type        OptionType
	Default     any
	Min, Max    int
	Choices     []string
	Description string
}

// Options maps option names to typed values (bool, int or string).
type Options map[string]any

// OptionsIndex mirrors Options as UI selection indices. It is carried for
// reconfigure round trips and never affects decoding.
type OptionsIndex map[string]int

// Clone copies the map.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Bool returns a boolean option; missing or mistyped values yield false.
func (o Options) Bool(name string) bool {
	v, _ := o[name].(bool)
	return v
}

// Int returns an integer option; missing or mistyped values yield 0.
func (o Options) Int(name string) int {
	v, _ := o[name].(int)
	return v
}

// Choice returns a choice option; missing or mistyped values yield "".
func (o Options) Choice(name string) string {
	v, _ := o[name].(string)
	return v
}

// Clone copies the map.
func (x OptionsIndex) Clone() OptionsIndex {
	out := make(OptionsIndex, len(x))
	for k, v := range x {
		out[k] = v
	}
	return out
}

// OptionError names the option that failed validation.
type OptionError struct {
	Protocol Protocol
	Option   string
	Value    any
	Reason   string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("decoder: %s option %q = %v: %s", e.Protocol, e.Option, e.Value, e.Reason)
}

func (e *OptionError) Unwrap() error { return ErrInvalidOption }

// OptionDef looks up one schema entry by case-insensitive name.
func (p Protocol) OptionDef(name string) (OptionDef, bool) {
	if !p.valid() {
		return OptionDef{}, false
	}
	for _, d := range p.def().options {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return OptionDef{}, false
}

// Normalize returns a fully populated copy of opts: defaults fill missing
// entries and provided values are coerced to the schema type. Unknown names
// and out-of-range values fail with an *OptionError.
func (p Protocol) Normalize(opts Options) (Options, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedProtocol, int(p))
	}
	out := make(Options, len(p.def().options))
	for _, d := range p.def().options {
		out[d.Name] = d.Default
	}
	for name, raw := range opts {
		d, ok := p.OptionDef(name)
		if !ok {
			return nil, &OptionError{Protocol: p, Option: name, Value: raw, Reason: "unknown option"}
		}
		v, err := d.coerce(raw)
		if err != nil {
			return nil, &OptionError{Protocol: p, Option: d.Name, Value: raw, Reason: err.Error()}
		}
		out[d.Name] = v
	}
	return out, nil
}

// ParseValue converts option text (from a decoder spec or config file) into
// the schema type.
func (p Protocol) ParseValue(name, text string) (any, error) {
	d, ok := p.OptionDef(name)
	if !ok {
		return nil, &OptionError{Protocol: p, Option: name, Value: text, Reason: "unknown option"}
	}
	v, err := d.coerce(text)
	if err != nil {
		return nil, &OptionError{Protocol: p, Option: d.Name, Value: text, Reason: err.Error()}
	}
	return v, nil
}

// Index derives the UI selection indices for a normalized option set:
// booleans map to 0/1, integers to value-Min and choices to their position.
func (p Protocol) Index(opts Options) OptionsIndex {
	out := make(OptionsIndex)
	if !p.valid() {
		return out
	}
	for _, d := range p.def().options {
		v, ok := opts[d.Name]
		if !ok {
			v = d.Default
		}
		switch d.Type {
		case OptionBool:
			if b, _ := v.(bool); b {
				out[d.Name] = 1
			} else {
				out[d.Name] = 0
			}
		case OptionInt:
			n, _ := v.(int)
			out[d.Name] = n - d.Min
		case OptionChoice:
			s, _ := v.(string)
			out[d.Name] = d.choiceIndex(s)
		}
	}
	return out
}

func (d OptionDef) choiceIndex(s string) int {
	for i, c := range d.Choices {
		if strings.EqualFold(c, s) {
			return i
		}
	}
	return -1
}

func (d OptionDef) coerce(raw any) (any, error) {
	switch d.Type {
	case OptionBool:
		return coerceBool(raw)
	case OptionInt:
		n, err := coerceInt(raw)
		if err != nil {
			return nil, err
		}
		if n < d.Min || n > d.Max {
			return nil, fmt.Errorf("must be in [%d, %d]", d.Min, d.Max)
		}
		return n, nil
	case OptionChoice:
		switch v := raw.(type) {
		case string:
			if i := d.choiceIndex(v); i >= 0 {
				return d.Choices[i], nil
			}
		case int, int64, float64:
			// a number names a choice first ("stop: 2"), then a position
			n, _ := coerceInt(v)
			if i := d.choiceIndex(strconv.Itoa(n)); i >= 0 {
				return d.Choices[i], nil
			}
			if n >= 0 && n < len(d.Choices) {
				return d.Choices[n], nil
			}
		}
		return nil, fmt.Errorf("must be one of %s", strings.Join(d.Choices, "|"))
	}
	return nil, fmt.Errorf("unsupported option type %s", d.Type)
}

func coerceBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case string:
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on", "high":
			return true, nil
		case "0", "false", "no", "off", "low":
			return false, nil
		}
	}
	return false, fmt.Errorf("not a boolean")
}

func coerceInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		if v <= math.MaxInt32 {
			return int(v), nil
		}
	case float64:
		if v == math.Trunc(v) && math.Abs(v) <= math.MaxInt32 {
			return int(v), nil
		}
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
		if err == nil && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("not an integer")
}

// IndexOf returns the UI selection index of one option value.
func (p Protocol) IndexOf(name string, value any) (int, error) {
	d, ok := p.OptionDef(name)
	if !ok {
		return 0, &OptionError{Protocol: p, Option: name, Value: value, Reason: "unknown option"}
	}
	v, err := d.coerce(value)
	if err != nil {
		return 0, &OptionError{Protocol: p, Option: d.Name, Value: value, Reason: err.Error()}
	}
	return p.Index(Options{d.Name: v})[d.Name], nil
}
