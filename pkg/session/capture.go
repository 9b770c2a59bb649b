package session

import (
	"errors"
	"sync"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
)

var (
	// ErrNoCapture reports that no sample buffer has been loaded yet.
	ErrNoCapture = errors.New("session: no capture loaded")
	// ErrCaptureInProgress reports that the buffer is being overwritten by a
	// running acquisition.
	ErrCaptureInProgress = errors.New("session: capture in progress")
)

// Capture holds the most recent completed sample buffer. It implements
// decoder.Source.
type Capture struct {
	mu        sync.RWMutex
	snap      *logic.Snapshot
	capturing bool
}

// Snapshot implements decoder.Source.
func (c *Capture) Snapshot() (*logic.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.capturing {
		return nil, ErrCaptureInProgress
	}
	if c.snap == nil {
		return nil, ErrNoCapture
	}
	return c.snap, nil
}

// Loaded reports whether a completed buffer is available.
func (c *Capture) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.capturing && c.snap != nil
}

// Begin marks the buffer as being overwritten. The previous snapshot is
// released.
func (c *Capture) Begin() {
	c.mu.Lock()
	c.snap = nil
	c.capturing = true
	c.mu.Unlock()
}

// End publishes a completed buffer.
func (c *Capture) End(s *logic.Snapshot) {
	c.mu.Lock()
	c.snap = s
	c.capturing = false
	c.mu.Unlock()
}

// Abort stops an acquisition without publishing a buffer.
func (c *Capture) Abort() {
	c.mu.Lock()
	c.capturing = false
	c.mu.Unlock()
}
