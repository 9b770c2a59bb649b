package config

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/decoder"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/dsl"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/session"
)

// Resolve turns the entry into a protocol, role-ordered channels and
// normalized options.
func (d DecoderConfig) Resolve() (dsl.Resolved, error) {
	if d.Spec != "" {
		if d.Protocol != "" || len(d.Channels) > 0 || len(d.Options) > 0 {
			return dsl.Resolved{}, fmt.Errorf("spec %q cannot be combined with protocol, channels or options", d.Spec)
		}
		s, err := dsl.ParseOne(d.Spec)
		if err != nil {
			return dsl.Resolved{}, err
		}
		return s.Bind()
	}
	if d.Protocol == "" {
		return dsl.Resolved{}, fmt.Errorf("either spec or protocol is required")
	}

	p, err := decoder.ProtocolByName(d.Protocol)
	if err != nil {
		return dsl.Resolved{}, err
	}
	channels := make(decoder.Channels, len(p.Roles()))
	for i := range channels {
		channels[i] = decoder.Unbound
	}
	// sorted for stable error messages
	roles := make([]string, 0, len(d.Channels))
	for r := range d.Channels {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	for _, r := range roles {
		idx, ok := p.RoleIndex(r)
		if !ok {
			return dsl.Resolved{}, fmt.Errorf("%w: %s has no role %q", dsl.ErrUnknownKey, p, r)
		}
		channels[idx] = d.Channels[r]
	}
	opts, err := p.Normalize(decoder.Options(d.Options))
	if err != nil {
		return dsl.Resolved{}, err
	}
	return dsl.Resolved{Protocol: p, Channels: channels, Options: opts, Index: p.Index(opts)}, nil
}

// AddDecoders registers every configured decoder in order and returns their
// handles.
func AddDecoders(reg *session.Registry, decs []DecoderConfig) ([]session.Handle, error) {
	handles := make([]session.Handle, 0, len(decs))
	for i, d := range decs {
		r, err := d.Resolve()
		if err != nil {
			return handles, fmt.Errorf("config: decoder[%d]: %w", i, err)
		}
		h, err := reg.Add(int(r.Protocol), r.Channels, r.Options, r.Index)
		if err != nil {
			return handles, fmt.Errorf("config: decoder[%d]: %w", i, err)
		}
		handles = append(handles, h)
	}
	return handles, nil
}
