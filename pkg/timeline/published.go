package timeline

import "sync/atomic"

// Published holds the timeline most recently produced by a decode pass.
// Writers replace it wholesale with Store; readers get a consistent snapshot
// from Load without locking.
type Published struct {
	p atomic.Pointer[Timeline]
}

// Load returns the current timeline, or Empty before the first Store.
func (p *Published) Load() *Timeline {
	if t := p.p.Load(); t != nil {
		return t
	}
	return empty
}

// Store publishes t. A nil t publishes Empty.
func (p *Published) Store(t *Timeline) {
	if t == nil {
		t = empty
	}
	p.p.Store(t)
}
