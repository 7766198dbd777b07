package render

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/guild-wheel/vmath"
	"github.com/lixenwraith/guild-wheel/wheel"
)

const (
	// CellAspect is how many columns span the height of one row
	CellAspect = 2.0

	hubRadius       = 1.2
	labelRadiusFrac = 0.62
	pointerGlyph    = '◀'

	placeholderText = "Select quality and spin!"
)

// Rect is a screen region in cells
type Rect struct {
	X, Y, W, H int
}

// Geometry is where the wheel sits inside its region
type Geometry struct {
	CX, CY int
	Radius float64
}

// WheelGeometry fits the largest wheel into area, leaving room for the pointer
func WheelGeometry(area Rect) Geometry {
	cx := area.X + area.W/2
	cy := area.Y + area.H/2
	byHeight := float64(area.H)/2 - 1
	byWidth := (float64(area.W)/2-2)/CellAspect - 1
	return Geometry{CX: cx, CY: cy, Radius: math.Max(0, math.Min(byHeight, byWidth))}
}

// WheelRenderer draws a layout at a rotation into a fixed screen region
//
// It keeps no state between frames: every call repaints the whole region
// from its arguments. The pointer sits at screen angle 0 (three o'clock) and
// the wheel-local angle under it equals rotation, so a screen angle s shows
// local angle s + rotation.
type WheelRenderer struct {
	screen tcell.Screen
	area   Rect
}

// NewWheelRenderer creates a renderer for area of screen
func NewWheelRenderer(screen tcell.Screen, area Rect) *WheelRenderer {
	return &WheelRenderer{screen: screen, area: area}
}

// SetArea moves the wheel region, used on terminal resize
func (r *WheelRenderer) SetArea(area Rect) { r.area = area }

// Area returns the current wheel region
func (r *WheelRenderer) Area() Rect { return r.area }

// Render paints the wheel; highlight < 0 means no winner is shown
func (r *WheelRenderer) Render(layout wheel.Layout, rotation float64, highlight int) {
	bgStyle := tcell.StyleDefault.Background(RgbBackground)
	for y := r.area.Y; y < r.area.Y+r.area.H; y++ {
		FillRow(r.screen, r.area.X, y, r.area.W, bgStyle)
	}

	g := WheelGeometry(r.area)
	if g.Radius < 2 {
		DrawCentered(r.screen, g.CX, g.CY, "terminal too small", bgStyle.Foreground(RgbDimText), r.area.W)
		return
	}

	if layout.Empty() {
		r.drawDisc(g, func(float64) tcell.Color { return RgbPlaceholder })
		DrawCentered(r.screen, g.CX, g.CY, placeholderText,
			tcell.StyleDefault.Background(RgbPlaceholder).Foreground(RgbRim), int(g.Radius*CellAspect*1.6))
		return
	}

	fill := make([]tcell.Color, layout.Len())
	for i := range fill {
		c := layout.Segment(i).Color
		if i == highlight {
			c = wheel.HighlightColor(c)
		}
		fill[i] = TcellColor(c)
	}
	r.drawDisc(g, func(screenAngle float64) tcell.Color {
		return fill[layout.AngleToIndex(screenAngle+rotation)]
	})

	r.drawLabels(g, layout, rotation, highlight)
	r.drawHub(g)
	r.drawPointer(g, layout, rotation)
}

// drawDisc fills every cell inside the radius with the color for its screen angle
func (r *WheelRenderer) drawDisc(g Geometry, colorAt func(screenAngle float64) tcell.Color) {
	rim := tcell.StyleDefault.Background(RgbBackground).Foreground(RgbRim)
	for y := r.area.Y; y < r.area.Y+r.area.H; y++ {
		for x := r.area.X; x < r.area.X+r.area.W; x++ {
			angle, radius := vmath.GridToPolar(x-g.CX, y-g.CY, CellAspect)
			switch {
			case radius <= g.Radius:
				r.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault.Background(colorAt(angle)))
			case radius <= g.Radius+0.5:
				r.screen.SetContent(x, y, '·', nil, rim)
			}
		}
	}
}

func (r *WheelRenderer) drawLabels(g Geometry, layout wheel.Layout, rotation float64, highlight int) {
	labelRadius := g.Radius * labelRadiusFrac
	// Arc length at the label radius, in columns, bounds each label
	arc := layout.Width * labelRadius * CellAspect
	maxWidth := int(math.Max(3, math.Min(arc, g.Radius*CellAspect*0.7)))

	for i := 0; i < layout.Len(); i++ {
		seg := layout.Segment(i)
		screenAngle := layout.LabelAngle(i) - rotation
		dx, dy := vmath.PolarToGrid(screenAngle, labelRadius, CellAspect)

		bg := seg.Color
		if i == highlight {
			bg = wheel.HighlightColor(bg)
		}
		style := tcell.StyleDefault.Background(TcellColor(bg)).Foreground(TcellColor(wheel.LabelColor(bg)))
		if i == highlight {
			style = style.Bold(true)
		}

		DrawCentered(r.screen, g.CX+dx, g.CY+dy, seg.Candidate.DisplayLabel(), style, maxWidth)
	}
}

func (r *WheelRenderer) drawHub(g Geometry) {
	hub := tcell.StyleDefault.Background(RgbHub)
	for dy := -1; dy <= 1; dy++ {
		for dx := -3; dx <= 3; dx++ {
			_, radius := vmath.GridToPolar(dx, dy, CellAspect)
			if radius <= hubRadius {
				r.screen.SetContent(g.CX+dx, g.CY+dy, ' ', nil, hub)
			}
		}
	}
}

// drawPointer places the marker just outside the rim at three o'clock,
// tinted with the color of the segment currently under it
func (r *WheelRenderer) drawPointer(g Geometry, layout wheel.Layout, rotation float64) {
	idx := layout.AngleToIndex(rotation)
	x := g.CX + int(math.Round((g.Radius+1)*CellAspect))
	style := tcell.StyleDefault.Background(RgbBackground).Foreground(RgbPointer).Bold(true)
	if idx >= 0 {
		style = style.Foreground(TcellColor(wheel.HighlightColor(layout.Segment(idx).Color)))
	}
	r.screen.SetContent(x, g.CY, pointerGlyph, nil, style)
}
