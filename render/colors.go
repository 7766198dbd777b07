package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// RGB color definitions for chrome around the wheel
var (
	RgbBackground  = tcell.NewRGBColor(26, 27, 38)    // Tokyo Night background
	RgbRim         = tcell.NewRGBColor(180, 180, 180) // Brighter gray
	RgbPlaceholder = tcell.NewRGBColor(70, 72, 90)    // Muted slate for the empty wheel
	RgbHub         = tcell.NewRGBColor(51, 51, 51)    // Center cap
	RgbPointer     = tcell.NewRGBColor(255, 165, 0)   // Orange
	RgbStatusText  = tcell.NewRGBColor(0, 0, 0)       // Dark text for status
	RgbStatusBg    = tcell.NewRGBColor(135, 206, 250) // Light sky blue
	RgbErrorBg     = tcell.NewRGBColor(200, 50, 50)   // Red for abort notifications
	RgbWinnerBg    = tcell.NewRGBColor(144, 238, 144) // Light grass green
	RgbDimText     = tcell.NewRGBColor(150, 150, 150)
)

// TcellColor converts a palette color to a terminal RGB color
func TcellColor(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
