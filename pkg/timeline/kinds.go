package timeline

import (
	"fmt"
	"image/color"
)

// Kind classifies a decoded interval. Kind 0 is always Unknown; the meaning of
// the other values is defined per protocol by its KindTable.
type Kind uint8

// KindUnknown is shared by every protocol table.
const KindUnknown Kind = 0

// KindInfo is the static render metadata for one kind.
type KindInfo struct {
	Label string
	Color color.NRGBA
}

// KindTable maps Kind values to labels and colors. Tables are declared as
// package-level values by each protocol and treated as read-only.
type KindTable []KindInfo

// Info returns the entry for k, falling back to entry 0 for out-of-range
// kinds.
func (t KindTable) Info(k Kind) KindInfo {
	if int(k) < len(t) {
		return t[k]
	}
	if len(t) > 0 {
		return t[0]
	}
	return KindInfo{Label: fmt.Sprintf("Kind(%d)", k)}
}

// Label is shorthand for Info(k).Label.
func (t KindTable) Label(k Kind) string { return t.Info(k).Label }

// Color is shorthand for Info(k).Color.
func (t KindTable) Color(k Kind) color.NRGBA { return t.Info(k).Color }

// Hex renders a color as #rrggbb for JSON consumers.
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
