package decoder

import "fmt"

// Unbound marks a role with no channel assigned.
const Unbound = -1

// Channels binds each role of a protocol, in Roles() order, to a physical
// channel index. Negative entries and entries past the end are unbound.
type Channels []int

// Role returns the channel bound to role i, or Unbound.
func (c Channels) Role(i int) int {
	if i < 0 || i >= len(c) || c[i] < 0 {
		return Unbound
	}
	return c[i]
}

// Clone copies the assignment.
func (c Channels) Clone() Channels {
	return append(Channels(nil), c...)
}

// ChannelError names the role that failed validation.
type ChannelError struct {
	Protocol Protocol
	Role     string
	Channel  int
	Err      error
}

func (e *ChannelError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Protocol)
	}
	return fmt.Sprintf("%v: %s role %s (channel %d)", e.Err, e.Protocol, e.Role, e.Channel)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// ValidateChannels checks that every required role is bound and no channel
// is used by two roles. It returns a normalized copy sized to the role list.
func (p Protocol) ValidateChannels(c Channels) (Channels, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedProtocol, int(p))
	}
	roles := p.def().roles
	if len(c) > len(roles) {
		return nil, &ChannelError{Protocol: p, Channel: len(c), Err: fmt.Errorf("%w: %d channels for %d roles", ErrInvalidChannel, len(c), len(roles))}
	}
	out := make(Channels, len(roles))
	seen := make(map[int]string, len(roles))
	for i, r := range roles {
		ch := c.Role(i)
		out[i] = ch
		if ch == Unbound {
			if r.Required {
				return nil, &ChannelError{Protocol: p, Role: r.Name, Channel: Unbound, Err: ErrMissingChannel}
			}
			continue
		}
		if other, dup := seen[ch]; dup {
			return nil, &ChannelError{Protocol: p, Role: r.Name, Channel: ch, Err: fmt.Errorf("%w: channel shared with %s", ErrInvalidChannel, other)}
		}
		seen[ch] = r.Name
	}
	return out, nil
}
