package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

var (
	activeColor = color.RGBA{R: 0x2e, G: 0xb8, B: 0x5c, A: 0xff}
	idleColor   = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// iconPNG draws the 16x16 tray icon: a framed square standing for the capture
// box, filled green while sampling and gray while idle.
func iconPNG(active bool) []byte {
	fill := idleColor
	if active {
		fill = activeColor
	}
	frame := color.RGBA{A: 0xff}

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 1; y < 15; y++ {
		for x := 1; x < 15; x++ {
			c := fill
			if x == 1 || y == 1 || x == 14 || y == 14 {
				c = frame
			}
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
