package timeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var (
	// ErrEmptyInterval reports an interval whose End does not exceed Start.
	ErrEmptyInterval = errors.New("timeline: empty interval")
	// ErrOutOfOrder reports an interval that starts before the previous one
	// ends.
	ErrOutOfOrder = errors.New("timeline: interval out of order")
)

// Interval is one decoded state over the half-open sample range [Start, End).
// Primary and Secondary carry the protocol payload, e.g. the MOSI and MISO
// words for SPI.
type Interval struct {
	Start     uint64 `json:"start" msgpack:"s"`
	End       uint64 `json:"end" msgpack:"e"`
	Kind      Kind   `json:"kind" msgpack:"k"`
	Primary   uint32 `json:"primary" msgpack:"p"`
	Secondary uint32 `json:"secondary" msgpack:"x"`
}

// Len reports End - Start.
func (iv Interval) Len() uint64 { return iv.End - iv.Start }

func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d) kind=%d %#x/%#x", iv.Start, iv.End, iv.Kind, iv.Primary, iv.Secondary)
}

// Timeline is an immutable, ordered, non-overlapping interval sequence
// produced by one decode pass. It is safe for concurrent readers.
type Timeline struct {
	intervals  []Interval
	generation uuid.UUID
}

var empty = &Timeline{}

// Empty returns the shared zero-length timeline.
func Empty() *Timeline { return empty }

// Len reports the number of intervals.
func (t *Timeline) Len() int { return len(t.intervals) }

// At returns interval i.
func (t *Timeline) At(i int) Interval { return t.intervals[i] }

// Intervals returns a copy of the full sequence.
func (t *Timeline) Intervals() []Interval {
	return append([]Interval(nil), t.intervals...)
}

// Generation identifies the decode pass that built t. The empty timeline
// reports uuid.Nil.
func (t *Timeline) Generation() uuid.UUID { return t.generation }

// Span returns the start of the first and end of the last interval.
func (t *Timeline) Span() (start, end uint64, ok bool) {
	if len(t.intervals) == 0 {
		return 0, 0, false
	}
	return t.intervals[0].Start, t.intervals[len(t.intervals)-1].End, true
}

// Count reports how many intervals carry kind k.
func (t *Timeline) Count(k Kind) int {
	n := 0
	for _, iv := range t.intervals {
		if iv.Kind == k {
			n++
		}
	}
	return n
}

// Query returns every interval overlapping [start, end). Runs of consecutive
// same-kind intervals are merged while the merged span stays below
// minLength; the merged interval keeps the values of its first member.
// Query never mutates t.
func (t *Timeline) Query(start, end uint64, minLength float64) []Interval {
	if start >= end || len(t.intervals) == 0 {
		return nil
	}
	// Intervals do not overlap, so End is non-decreasing as well.
	first := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].End > start
	})

	var out []Interval
	for i := first; i < len(t.intervals); i++ {
		iv := t.intervals[i]
		if iv.Start >= end {
			break
		}
		if n := len(out); n > 0 && minLength > 0 {
			group := &out[n-1]
			if group.Kind == iv.Kind && float64(iv.End-group.Start) < minLength {
				group.End = iv.End
				continue
			}
		}
		out = append(out, iv)
	}
	return out
}

// Builder accumulates intervals for one decode pass and enforces ordering.
// The first violation is kept and reported by Build; later appends are
// ignored.
type Builder struct {
	intervals []Interval
	err       error
}

// NewBuilder returns a builder with capacity hint n.
func NewBuilder(n int) *Builder {
	return &Builder{intervals: make([]Interval, 0, n)}
}

// Append adds iv after the current tail.
func (b *Builder) Append(iv Interval) {
	if b.err != nil {
		return
	}
	if iv.End <= iv.Start {
		b.err = fmt.Errorf("%w: %v", ErrEmptyInterval, iv)
		return
	}
	if n := len(b.intervals); n > 0 && iv.Start < b.intervals[n-1].End {
		b.err = fmt.Errorf("%w: %v after %v", ErrOutOfOrder, iv, b.intervals[n-1])
		return
	}
	b.intervals = append(b.intervals, iv)
}

// Tail reports the end of the last appended interval, or 0.
func (b *Builder) Tail() uint64 {
	if n := len(b.intervals); n > 0 {
		return b.intervals[n-1].End
	}
	return 0
}

// Len reports how many intervals have been accepted.
func (b *Builder) Len() int { return len(b.intervals) }

// Build seals the sequence into a Timeline with a fresh generation id.
func (b *Builder) Build() (*Timeline, error) {
	if b.err != nil {
		return nil, b.err
	}
	t := &Timeline{intervals: b.intervals, generation: uuid.New()}
	b.intervals = nil
	return t, nil
}
