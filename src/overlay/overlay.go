// Package overlay draws the capture box and a status line on top of the
// sampled display, and lets the user drag out a new capture box.
//
// Everything is in display-relative coordinates, the same space as
// state.CaptureRegion, so no translation happens between what is drawn and
// what the capture loop samples.
package overlay

import (
	"errors"
	"image"
	"time"

	"auto-shake/src/state"
)

const (
	DefaultInterval = 100 * time.Millisecond
	// BorderWidth is the frame thickness, drawn outside the box.
	BorderWidth = 2
	// MinSelectionSpan rejects accidental clicks in Select.
	MinSelectionSpan = 5
)

var (
	ErrUnsupported        = errors.New("overlay not implemented for this platform")
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// Config is read again on every refresh, so flag flips and config reloads show
// up without restarting the overlay. Display reports the bounds of the sampled
// display in virtual-screen coordinates.
type Config struct {
	Title    string
	ShowBox  *state.Flag
	Active   *state.Flag
	Region   func() state.CaptureRegion
	StatusAt func() image.Point
	Display  func() (image.Rectangle, bool)
	Interval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Title == "" {
		c.Title = "Auto Shake"
	}
	return c
}

// Scene is one repaint.
type Scene struct {
	Visible  bool
	Display  image.Rectangle
	Box      image.Rectangle
	Status   string
	StatusAt image.Point
}

// Compose snapshots cfg into a Scene. The scene is hidden while ShowBox is
// off or no display is known.
func Compose(cfg Config) Scene {
	var scene Scene
	if cfg.Display != nil {
		d, ok := cfg.Display()
		if !ok {
			return scene
		}
		scene.Display = d
	}
	if cfg.ShowBox == nil || !cfg.ShowBox.Get() || cfg.Region == nil {
		return scene
	}

	r := cfg.Region()
	scene.Visible = true
	scene.Box = image.Rect(int(r.X), int(r.Y), int(r.X)+int(r.Width), int(r.Y)+int(r.Height))
	scene.Status = StatusText(cfg.Title, cfg.Active != nil && cfg.Active.Get())
	if cfg.StatusAt != nil {
		scene.StatusAt = cfg.StatusAt()
	}
	return scene
}

func StatusText(title string, active bool) string {
	if active {
		return title + ": active"
	}
	return title + ": idle"
}

// Borders returns the four strips framing box, top, bottom, left and right.
// They surround the box without covering any sampled pixel, so the frame can
// never feed the detector.
func Borders(box image.Rectangle, width int) []image.Rectangle {
	if box.Empty() || width <= 0 {
		return nil
	}
	outer := box.Inset(-width)
	return []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, box.Min.Y),
		image.Rect(outer.Min.X, box.Max.Y, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, box.Min.Y, box.Min.X, box.Max.Y),
		image.Rect(box.Max.X, box.Min.Y, outer.Max.X, box.Max.Y),
	}
}

// Selection turns a drag from start to end into a capture region. Drags no
// wider or taller than minSpan are rejected.
func Selection(start, end image.Point, minSpan int) (state.CaptureRegion, bool) {
	r := image.Rectangle{Min: start, Max: end}.Canon()
	if r.Dx() <= minSpan || r.Dy() <= minSpan {
		return state.CaptureRegion{}, false
	}
	return state.CaptureRegion{
		X:      int32(r.Min.X),
		Y:      int32(r.Min.Y),
		Width:  uint32(r.Dx()),
		Height: uint32(r.Dy()),
	}, true
}
