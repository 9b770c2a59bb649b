package logic

// EdgePair records one transition: the sample index at which the channel
// changed and the level it changed to.
type EdgePair struct {
	Index uint64
	Value bool
}

// EdgeRun is the result of scanning one channel over [Start, End).
// Initial holds the level immediately before Start so a caller can resume a
// decode at Start without rescanning from zero. Edges are strictly increasing
// by Index.
type EdgeRun struct {
	Start   uint64
	End     uint64
	Initial bool
	Edges   []EdgePair
}

// LevelAt reports the channel level at sample i within the run.
func (r EdgeRun) LevelAt(i uint64) bool {
	level := r.Initial
	for _, e := range r.Edges {
		if e.Index > i {
			break
		}
		level = e.Value
	}
	return level
}

// Lane reads a single channel out of a Snapshot.
type Lane struct {
	snap    *Snapshot
	channel int
	offset  int
	mask    byte
}

// Channel reports the channel index this lane reads.
func (l Lane) Channel() int { return l.channel }

// Samples reports the length of the underlying snapshot.
func (l Lane) Samples() uint64 { return l.snap.samples }

// At returns the level of sample i. The caller keeps i below Samples().
func (l Lane) At(i uint64) bool {
	return l.snap.data[int(i)*l.snap.unitSize+l.offset]&l.mask != 0
}

// Edges collects every transition with index in [start, end). dst is
// truncated and reused. end is clamped to the sample count.
func (l Lane) Edges(start, end uint64, dst []EdgePair) EdgeRun {
	n := l.snap.samples
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	run := EdgeRun{Start: start, End: end, Edges: dst[:0]}

	prevIdx := start
	if start > 0 {
		prevIdx = start - 1
	}
	prev := l.At(prevIdx)
	run.Initial = prev

	first := start
	if first == 0 {
		first = 1
	}
	data := l.snap.data
	unit := l.snap.unitSize
	pos := int(first)*unit + l.offset
	for i := first; i < end; i++ {
		cur := data[pos]&l.mask != 0
		if cur != prev {
			run.Edges = append(run.Edges, EdgePair{Index: i, Value: cur})
			prev = cur
		}
		pos += unit
	}
	return run
}
