package app

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/guild-wheel/constants"
	"github.com/lixenwraith/guild-wheel/render"
)

// wheelArea is the region between the title row and the footer
func (a *App) wheelArea() render.Rect {
	w, h := a.screen.Size()
	rows := h - constants.HeaderRows - constants.FooterRows
	if rows < 0 {
		rows = 0
	}
	return render.Rect{X: 0, Y: constants.HeaderRows, W: w, H: rows}
}

// drawChrome paints the title, the winner banner and the status bar
func (a *App) drawChrome(now time.Time) {
	w, h := a.screen.Size()
	if w <= 0 || h < constants.HeaderRows+constants.FooterRows {
		return
	}

	title := tcell.StyleDefault.Background(render.RgbBackground).Foreground(render.RgbPointer).Bold(true)
	render.FillRow(a.screen, 0, 0, w, title)
	used := render.DrawText(a.screen, 0, 0, constants.TitleText, title, w)
	dim := tcell.StyleDefault.Background(render.RgbBackground).Foreground(render.RgbDimText)
	render.DrawText(a.screen, used+1, 0, constants.KeyHints, dim, w-used-1)

	bannerY := h - 2
	banner := tcell.StyleDefault.Background(render.RgbBackground).Foreground(render.RgbWinnerBg).Bold(true)
	render.FillRow(a.screen, 0, bannerY, w, banner)
	if a.banner != "" {
		render.DrawCentered(a.screen, w/2, bannerY, a.banner, banner, w-2)
	}

	if a.notice != "" && now.After(a.noticeUntil) {
		a.notice = ""
	}
	if a.notice != "" {
		render.DrawStatusBar(a.screen, h-1, a.notice, a.noticeBg)
		return
	}
	render.DrawStatusBar(a.screen, h-1, a.idleStatus(), render.RgbStatusBg)
}

func (a *App) idleStatus() string {
	layout := a.ctrl.Layout()
	s := fmt.Sprintf("%s | %s | %d on wheel", a.criteria.Quality, a.ctrl.State(), layout.Len())
	if n := a.resolved.Load(); n > 0 {
		s += fmt.Sprintf(" | %d awarded", n)
	}
	if a.ctrl.HasPending() {
		s += " | update queued"
	}
	if a.refreshing {
		s += " | loading"
	}
	if a.sounds.Muted() {
		s += " | muted"
	}
	return s
}
