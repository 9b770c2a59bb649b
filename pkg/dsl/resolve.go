package dsl

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/decoder"
)

// ErrUnknownKey reports an item naming neither a role nor an option of the
// protocol.
var ErrUnknownKey = errors.New("dsl: unknown role or option")

// ErrDuplicateKey reports a role or option given twice in one spec.
var ErrDuplicateKey = errors.New("dsl: duplicate key")

// Resolved is a spec bound to a protocol: channels in role order, normalized
// options and their selection indices.
type Resolved struct {
	Protocol decoder.Protocol
	Channels decoder.Channels
	Options  decoder.Options
	Index    decoder.OptionsIndex
}

// Resolve binds the decoder spec to its protocol. Roles without a binding
// are left Unbound; channels are validated by decoder.New.
func (s *Spec) Resolve() (decoder.Protocol, decoder.Channels, decoder.Options, decoder.OptionsIndex, error) {
	r, err := s.resolve()
	if err != nil {
		return 0, nil, nil, nil, err
	}
	return r.Protocol, r.Channels, r.Options, r.Index, nil
}

// Bind is Resolve returning a struct.
func (s *Spec) Bind() (Resolved, error) { return s.resolve() }

func (s *Spec) resolve() (Resolved, error) {
	p, err := decoder.ProtocolByName(s.Protocol)
	if err != nil {
		return Resolved{}, fmt.Errorf("dsl: %s: %w", s.Pos, err)
	}
	roles := p.Roles()
	channels := make(decoder.Channels, len(roles))
	for i := range channels {
		channels[i] = decoder.Unbound
	}
	bound := make([]bool, len(roles))
	opts := make(decoder.Options)

	for _, it := range s.Items {
		if it.IsBinding() {
			idx, ok := p.RoleIndex(it.Key)
			if !ok {
				return Resolved{}, fmt.Errorf("%w: %s: %s has no role %q", ErrUnknownKey, it.Pos, p, it.Key)
			}
			if bound[idx] {
				return Resolved{}, fmt.Errorf("%w: %s: role %s", ErrDuplicateKey, it.Pos, roles[idx].Name)
			}
			ch, err := strconv.ParseInt(*it.Channel, 0, 32)
			if err != nil {
				return Resolved{}, fmt.Errorf("%w: %s: channel %q", ErrSyntax, it.Pos, *it.Channel)
			}
			bound[idx] = true
			channels[idx] = int(ch)
			continue
		}

		def, ok := p.OptionDef(it.Key)
		if !ok {
			return Resolved{}, fmt.Errorf("%w: %s: %s has no option %q", ErrUnknownKey, it.Pos, p, it.Key)
		}
		if _, dup := opts[def.Name]; dup {
			return Resolved{}, fmt.Errorf("%w: %s: option %s", ErrDuplicateKey, it.Pos, def.Name)
		}
		v, err := p.ParseValue(def.Name, *it.Value)
		if err != nil {
			return Resolved{}, fmt.Errorf("dsl: %s: %w", it.Pos, err)
		}
		opts[def.Name] = v
	}

	norm, err := p.Normalize(opts)
	if err != nil {
		return Resolved{}, fmt.Errorf("dsl: %s: %w", s.Pos, err)
	}
	return Resolved{Protocol: p, Channels: channels, Options: norm, Index: p.Index(norm)}, nil
}

// Format renders a decoder configuration as spec text. Unbound roles are
// omitted and options are listed in schema order when they differ from the
// default.
func Format(p decoder.Protocol, channels decoder.Channels, opts decoder.Options) string {
	s := &Spec{Protocol: p.String()}
	for i, r := range p.Roles() {
		if ch := channels.Role(i); ch != decoder.Unbound {
			v := strconv.Itoa(ch)
			s.Items = append(s.Items, &Item{Key: r.Name, Channel: &v})
		}
	}
	for _, d := range p.OptionDefs() {
		v, ok := opts[d.Name]
		if !ok || v == d.Default {
			continue
		}
		text := fmt.Sprint(v)
		if b, isBool := v.(bool); isBool {
			text = "0"
			if b {
				text = "1"
			}
		}
		s.Items = append(s.Items, &Item{Key: d.Name, Value: &text})
	}
	return s.String()
}
