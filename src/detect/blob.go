package detect

import "image"

const (
	// BrightThreshold is the minimum luma (inclusive) of a marker pixel.
	BrightThreshold = 240
	// MinSpan is the bounding-box span, in pixels, the marker must exceed on both axes.
	MinSpan = 40
)

// Bounds returns the bounding box of every pixel at or above BrightThreshold.
// Max is exclusive as usual for image.Rectangle. ok is false when no pixel
// qualifies.
func Bounds(gray *image.Gray) (r image.Rectangle, ok bool) {
	if gray == nil {
		return image.Rectangle{}, false
	}
	b := gray.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X, b.Min.Y

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y):]
		for i := 0; i < b.Dx(); i++ {
			if row[i] < BrightThreshold {
				continue
			}
			x := b.Min.X + i
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
			ok = true
		}
	}
	if !ok {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// MarkerPresent reports whether the bright pixels of gray span more than
// MinSpan on both axes. The span is the point-to-point distance max-min of the
// global bounding box, not the pixel count: a solid square must be 42 pixels
// wide to span 41. Far-apart specks count as one marker; there is no
// connected-component analysis.
func MarkerPresent(gray *image.Gray) bool {
	r, ok := Bounds(gray)
	if !ok {
		return false
	}
	w := r.Dx() - 1
	h := r.Dy() - 1
	return w > MinSpan && h > MinSpan
}
