package state

import (
	"sync"
	"sync/atomic"
)

// CaptureRegion is the screen-relative rectangle requested for sampling.
// Width and Height are targets; the sampled area may be smaller after clipping.
type CaptureRegion struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// Flag is a process-wide on/off switch shared between the capture loop and
// whatever toggles it (hotkey listener, tray menu).
type Flag struct {
	v atomic.Bool
}

// NewFlag returns a flag with the given initial value.
func NewFlag(initial bool) *Flag {
	f := &Flag{}
	f.v.Store(initial)
	return f
}

func (f *Flag) Get() bool { return f.v.Load() }

func (f *Flag) Set(on bool) { f.v.Store(on) }

// Toggle flips the flag and returns the new value.
func (f *Flag) Toggle() bool {
	for {
		old := f.v.Load()
		if f.v.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// RegionStore guards the live capture rectangle. Read returns a copy, so the
// loop never keeps a reference into the shared record.
type RegionStore struct {
	mu     sync.RWMutex
	region CaptureRegion
}

func NewRegionStore(initial CaptureRegion) *RegionStore {
	return &RegionStore{region: initial}
}

func (s *RegionStore) Read() CaptureRegion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.region
}

func (s *RegionStore) Write(r CaptureRegion) {
	s.mu.Lock()
	s.region = r
	s.mu.Unlock()
}
