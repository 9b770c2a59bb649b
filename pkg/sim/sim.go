package sim

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
)

// DefaultSampleRate is used when a waveform leaves SampleRate unset.
const DefaultSampleRate = 1_000_000

func resolveChannels(mapping []int, roles int) ([]int, int, error) {
	if mapping == nil {
		mapping = make([]int, roles)
		for i := range mapping {
			mapping[i] = i
		}
	}
	if len(mapping) != roles {
		return nil, 0, fmt.Errorf("sim: %d channels for %d roles", len(mapping), roles)
	}
	width := 0
	seen := make(map[int]bool, roles)
	for _, ch := range mapping {
		if ch < 0 {
			return nil, 0, fmt.Errorf("sim: negative channel %d", ch)
		}
		if seen[ch] {
			return nil, 0, fmt.Errorf("sim: channel %d used twice", ch)
		}
		seen[ch] = true
		if ch+1 > width {
			width = ch + 1
		}
	}
	return mapping, width, nil
}

func newBuilder(width int, rate uint64) *logic.Builder {
	if rate == 0 {
		rate = DefaultSampleRate
	}
	return logic.NewBuilder((width+7)/8, rate, logic.SequentialProbes(width))
}

func orDefault(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}
