//go:build darwin

package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

// Menu bar icons are rendered at init so the binary ships no assets: an
// open ring when idle (template, so macOS tints it) and a filled red dot
// inside the ring while recording.
var (
	iconIdle   []byte
	iconIdleHi []byte
	iconRecHi  []byte
)

func init() {
	red := color.RGBA{R: 255, G: 59, B: 48, A: 255}
	iconIdle = renderRing(22, nil)
	iconIdleHi = renderRing(44, nil)
	iconRecHi = renderRing(44, &red)
}

func renderRing(size int, dot *color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	center := float64(size) / 2
	outer := center - 1
	inner := outer - float64(size)/7
	dotR := float64(size) / 3.4

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)+0.5-center, float64(y)+0.5-center)
			switch {
			case dot != nil && d <= dotR:
				img.Set(x, y, dot)
			case d >= inner && d <= outer:
				img.Set(x, y, color.Black)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("tray icon: " + err.Error())
	}
	return buf.Bytes()
}
