package wheel

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Golden-angle hue stepping keeps neighbouring segments visually distinct
// for any segment count
const (
	goldenAngleDeg    = 137.50776405003785
	segmentSaturation = 0.62
	segmentValue      = 0.92
)

// SegmentColor returns the fill color for segment index i
func SegmentColor(i int) colorful.Color {
	hue := math.Mod(float64(i)*goldenAngleDeg, 360)
	return colorful.Hsv(hue, segmentSaturation, segmentValue)
}

// HighlightColor lightens a segment color for the winner banner and pointer cell
func HighlightColor(c colorful.Color) colorful.Color {
	return c.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, 0.45).Clamped()
}

// LabelColor picks black or white text for readability on c
func LabelColor(c colorful.Color) colorful.Color {
	_, _, l := c.Hcl()
	if l > 0.6 {
		return colorful.Color{R: 0, G: 0, B: 0}
	}
	return colorful.Color{R: 1, G: 1, B: 1}
}
