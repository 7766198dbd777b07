package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// DrawText writes text at (x, y) honoring wide runes, clipped to maxWidth
// cells when maxWidth > 0; returns the number of cells used
func DrawText(screen tcell.Screen, x, y int, text string, style tcell.Style, maxWidth int) int {
	if maxWidth > 0 && runewidth.StringWidth(text) > maxWidth {
		text = runewidth.Truncate(text, maxWidth, "…")
	}
	col := x
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		screen.SetContent(col, y, r, nil, style)
		col += w
	}
	return col - x
}

// DrawCentered writes text centered on column cx
func DrawCentered(screen tcell.Screen, cx, y int, text string, style tcell.Style, maxWidth int) {
	w := runewidth.StringWidth(text)
	if maxWidth > 0 && w > maxWidth {
		w = maxWidth
	}
	DrawText(screen, cx-w/2, y, text, style, maxWidth)
}

// FillRow paints one row from x to x+width with style
func FillRow(screen tcell.Screen, x, y, width int, style tcell.Style) {
	for i := 0; i < width; i++ {
		screen.SetContent(x+i, y, ' ', nil, style)
	}
}

// DrawStatusBar paints a full-width status line with text on the given background
func DrawStatusBar(screen tcell.Screen, y int, text string, bg tcell.Color) {
	width, _ := screen.Size()
	style := tcell.StyleDefault.Background(bg).Foreground(RgbStatusText)
	FillRow(screen, 0, y, width, style)
	DrawText(screen, 1, y, text, style, width-2)
}
