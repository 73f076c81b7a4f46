package screenshot

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// Display is one enumerated monitor. Bounds are in virtual-screen coordinates.
type Display struct {
	Index  int
	Bounds image.Rectangle
}

// Source enumerates displays and produces full-frame snapshots on demand.
type Source interface {
	Displays() []Display
	Capture(d Display) (*image.RGBA, error)
}

// Screen is the Source backed by the OS screen capture APIs.
type Screen struct{}

func New() Screen { return Screen{} }

// Displays returns the active displays in OS enumeration order. An empty
// slice means no display is available right now; callers retry later.
func (Screen) Displays() []Display {
	n := screenshot.NumActiveDisplays()
	displays := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		displays = append(displays, Display{Index: i, Bounds: screenshot.GetDisplayBounds(i)})
	}
	return displays
}

// Capture grabs the whole display. The returned image starts at (0,0), so
// coordinates into it are display-relative.
func (Screen) Capture(d Display) (*image.RGBA, error) {
	if d.Bounds.Empty() {
		return nil, fmt.Errorf("display %d has empty bounds", d.Index)
	}
	img, err := screenshot.CaptureRect(d.Bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture display %d: %w", d.Index, err)
	}
	return img, nil
}

// Primary picks the display to sample. The first enumerated display stands in
// for the primary one; no OS attribute is consulted.
func Primary(displays []Display) (Display, bool) {
	if len(displays) == 0 {
		return Display{}, false
	}
	return displays[0], true
}
