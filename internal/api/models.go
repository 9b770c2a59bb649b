package api

import (
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/timeline"
)

// RoleInfo describes one protocol role.
type RoleInfo struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// OptionInfo describes one option schema entry.
type OptionInfo struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Default     any      `json:"default"`
	Min         *int     `json:"min,omitempty"`
	Max         *int     `json:"max,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Description string   `json:"description,omitempty"`
}

// KindInfo is one row of a protocol's state table.
type KindInfo struct {
	Kind  timeline.Kind `json:"kind" msgpack:"k"`
	Label string        `json:"label" msgpack:"l"`
	Color string        `json:"color" msgpack:"c"`
}

// ProtocolInfo is the catalogue entry of a protocol.
type ProtocolInfo struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Roles   []RoleInfo   `json:"roles"`
	Options []OptionInfo `json:"options"`
	Kinds   []KindInfo   `json:"kinds"`
}

// DecoderRequest creates or reconfigures a decoder. Either Spec or
// Protocol with Channels and Options is given; Index optionally overrides
// the derived selection indices.
type DecoderRequest struct {
	Spec     string         `json:"spec,omitempty"`
	Protocol string         `json:"protocol,omitempty"`
	Channels map[string]int `json:"channels,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
	Index    map[string]int `json:"options_index,omitempty"`
}

// DecoderInfo is the view of one registered decoder.
type DecoderInfo struct {
	ID           int            `json:"id"`
	Protocol     string         `json:"protocol"`
	Spec         string         `json:"spec"`
	Probes       []int          `json:"probes"`
	Options      map[string]any `json:"options"`
	OptionsIndex map[string]int `json:"options_index"`
	Intervals    int            `json:"intervals"`
	Generation   string         `json:"generation"`
}

// StatesResponse is the answer to a subsampled state query.
type StatesResponse struct {
	Decoder    int                 `json:"decoder" msgpack:"decoder"`
	Generation string              `json:"generation" msgpack:"generation"`
	Start      uint64              `json:"start" msgpack:"start"`
	End        uint64              `json:"end" msgpack:"end"`
	MinLength  float64             `json:"min_length" msgpack:"min_length"`
	Kinds      []KindInfo          `json:"kinds" msgpack:"kinds"`
	States     []timeline.Interval `json:"states" msgpack:"states"`
}

// CaptureInfo summarizes the loaded capture.
type CaptureInfo struct {
	Loaded     bool   `json:"loaded"`
	State      string `json:"state"`
	Samples    uint64 `json:"samples,omitempty"`
	SampleRate uint64 `json:"sample_rate,omitempty"`
	UnitSize   int    `json:"unit_size,omitempty"`
}

// DecodeResponse reports a decode-all run.
type DecodeResponse struct {
	Decoders int      `json:"decoders"`
	Errors   []string `json:"errors,omitempty"`
}
