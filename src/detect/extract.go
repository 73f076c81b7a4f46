package detect

import (
	"image"

	"auto-shake/src/state"
)

// Luma converts an RGB triple to perceived brightness using the fixed
// 0.299/0.587/0.114 weights, rounded to the nearest integer.
func Luma(r, g, b uint8) uint8 {
	v := (299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// Clip computes the part of region that lies inside a w x h snapshot. The
// result is relative to the snapshot origin and may be empty.
func Clip(region state.CaptureRegion, w, h int) image.Rectangle {
	cx, cy := int(region.X), int(region.Y)
	if cx < 0 {
		cx = 0
	}
	if cy < 0 {
		cy = 0
	}
	cx = min(cx, w)
	cy = min(cy, h)

	cw := min(int64(region.Width), int64(w-cx))
	ch := min(int64(region.Height), int64(h-cy))
	return image.Rect(cx, cy, cx+int(cw), cy+int(ch))
}

// Extract crops region out of snapshot and converts it to a luma image of
// exactly the clipped size. It reports false when nothing of the region is
// on the snapshot, which happens when the region is off-screen or the
// display resolution shrank.
func Extract(snapshot *image.RGBA, region state.CaptureRegion) (*image.Gray, bool) {
	if snapshot == nil {
		return nil, false
	}
	b := snapshot.Bounds()
	r := Clip(region, b.Dx(), b.Dy())
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, false
	}

	gray := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		src := snapshot.PixOffset(b.Min.X+r.Min.X, b.Min.Y+r.Min.Y+y)
		dst := gray.PixOffset(0, y)
		for x := 0; x < r.Dx(); x++ {
			p := snapshot.Pix[src : src+4 : src+4]
			gray.Pix[dst+x] = Luma(p[0], p[1], p[2])
			src += 4
		}
	}
	return gray, true
}
