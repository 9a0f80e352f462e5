package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// rect is a screen area in cells.
type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return r.w > 0 && r.h > 0 && x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

func (r rect) shifted(dx int) rect {
	r.x += dx
	return r
}

// handleMouse feeds terminal mouse events into the gesture tracker. Cells are
// scaled to logical pixels so thresholds read the same as on a pointer device.
func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	px := float64(msg.X) * a.cellW
	py := float64(msg.Y) * a.cellH

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		head, ok := a.engine.Head()
		if !ok || !a.card.contains(msg.X, msg.Y) {
			return nil
		}
		if a.tracker.Begin(mousePointer, px, py) {
			a.gestureTarget = head.ID
		}
	case tea.MouseActionMotion:
		a.tracker.Update(mousePointer, px, py)
	case tea.MouseActionRelease:
		if !a.tracker.Active() {
			return nil
		}
		target := a.gestureTarget
		a.gestureTarget = ""
		if !a.card.shifted(a.offsetCells()).contains(msg.X, msg.Y) {
			a.tracker.Cancel(mousePointer)
			return nil
		}
		out, ok := a.tracker.End(mousePointer)
		if !ok || !out.Commit {
			return nil
		}
		return a.engine.Commit(target, out.Action)
	}
	return nil
}

func (a *App) cancelGesture() {
	if a.tracker.Active() {
		a.tracker.Cancel(a.tracker.Pointer())
	}
	a.gestureTarget = ""
}

// offsetCells converts the tracker offset back to whole cells for rendering.
func (a *App) offsetCells() int {
	if a.cellW <= 0 {
		return 0
	}
	return int(a.tracker.Offset() / a.cellW)
}
