package config

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
)

// ProbeTable maps channel n to bit n of the sample unit. Channels not listed
// in Probes are disabled unless the list is empty.
func (c CaptureConfig) ProbeTable() []logic.Probe {
	width := c.UnitSize * 8
	probes := make([]logic.Probe, width)
	for i := range probes {
		probes[i] = logic.Probe{Enabled: len(c.Probes) == 0, Bit: uint(i)}
	}
	for _, ch := range c.Probes {
		if ch >= 0 && ch < width {
			probes[ch].Enabled = true
		}
	}
	return probes
}

// LoadCapture reads the raw sample file.
func (c CaptureConfig) LoadCapture() (*logic.Snapshot, error) {
	if c.File == "" {
		return nil, fmt.Errorf("%w: capture file not set", ErrInvalid)
	}
	data, err := os.ReadFile(c.File)
	if err != nil {
		return nil, fmt.Errorf("config: read capture %s: %w", c.File, err)
	}
	return logic.NewSnapshot(data, c.UnitSize, c.SampleRate, c.ProbeTable())
}
