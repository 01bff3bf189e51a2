package main

import (
	"fmt"
	"strings"
	"time"

	bct "github.com/bctron/bctron/pkg"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	refreshInterval = time.Second
	// how long the history panel survives after focus leaves the grid
	leaveTimeout = 5 * time.Second
)

type Viewer struct {
	app     *tview.Application
	table   *tview.Table
	info    *tview.TextView
	status  *tview.TextView
	palette *ordinalPalette
	base    string

	grid  bct.GridView
	heads map[string]bool // cell keys currently marked as heads

	leaveTimer *time.Timer
}

// LaunchViewer draws a running BCTron's grid in the terminal: cells are
// coloured by occupant, heads are marked, and selecting a cell shows
// its history.
func LaunchViewer(conf bct.Config, remote string) {
	v := &Viewer{
		app:     tview.NewApplication().EnableMouse(true),
		palette: newOrdinalPalette(),
		base:    publicBase(conf, remote),
		heads:   map[string]bool{},
	}
	v.buildMainView()

	go v.poll()

	if err := v.app.Run(); err != nil {
		panic(err)
	}
}

func (v *Viewer) buildMainView() {
	v.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, true).
		SetSelectedStyle(tcell.StyleDefault.Reverse(true))
	v.table.SetSelectionChangedFunc(func(row, column int) {
		v.showHistory(column, row)
	})
	v.table.SetFocusFunc(func() {
		if v.leaveTimer != nil {
			v.leaveTimer.Stop()
		}
	})
	v.table.SetBlurFunc(func() {
		v.leaveTimer = time.AfterFunc(leaveTimeout, func() {
			v.app.QueueUpdateDraw(func() {
				if !v.table.HasFocus() {
					v.info.Clear()
				}
			})
		})
	})

	v.info = tview.NewTextView().SetDynamicColors(true)
	v.info.SetBorder(true).SetTitle(" History ")

	v.status = tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText("🟦 BCTron Grid")

	body := tview.NewFlex().
		AddItem(v.table, 0, 3, true).
		AddItem(v.info, 40, 0, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.status, 1, 0, false).
		AddItem(body, 0, 1, true)

	v.app.SetRoot(root, true).SetFocus(v.table)
}

// poll refreshes the matrix and heads until the app stops.
func (v *Viewer) poll() {
	for {
		var grid bct.GridView
		var heads []bct.Cell
		err := v.fetch("/grid", &grid)
		if err == nil {
			err = v.fetch("/heads", &heads)
		}
		v.app.QueueUpdateDraw(func() {
			if err != nil {
				v.status.SetText(fmt.Sprintf("⚠️  %v", err))
				return
			}
			v.grid = grid
			v.heads = map[string]bool{}
			for _, h := range heads {
				v.heads[h.Key()] = true
			}
			v.status.SetText(fmt.Sprintf("🟦 BCTron Grid %dx%d  heads: %d", grid.DimX, grid.DimY, len(heads)))
			v.drawMatrix()
		})
		time.Sleep(refreshInterval)
	}
}

func (v *Viewer) drawMatrix() {
	for _, c := range v.grid.Cells {
		text := "  "
		if v.heads[c.Key()] {
			text = "<>"
		}
		v.table.SetCell(c.Y, c.X,
			tview.NewTableCell(text).
				SetTextColor(tcell.ColorBlack).
				SetBackgroundColor(v.palette.Color(c.OccupantID)))
	}
}

func (v *Viewer) showHistory(x, y int) {
	if v.leaveTimer != nil {
		v.leaveTimer.Stop()
	}
	go func() {
		var history []bct.Cell
		err := v.fetch(fmt.Sprintf("/cell/%d/%d/history", x, y), &history)
		v.app.QueueUpdateDraw(func() {
			if err != nil {
				v.info.SetText(fmt.Sprintf("[red]%v", err))
				return
			}
			v.info.SetText(formatHistory(x, y, history))
		})
	}()
}

func formatHistory(x, y int, history []bct.Cell) string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "(%d,%d)\n\n", x, y)
	for i := len(history) - 1; i >= 0; i-- {
		c := history[i]
		id := c.OccupantID
		if !c.Occupied() {
			id = "(empty)"
		}
		if i == len(history)-1 {
			fmt.Fprintf(&b, "[yellow]> %s[white]\n  %s\n", id, c.OccupantHash)
		} else {
			fmt.Fprintf(&b, "  %s\n  %s\n", id, c.OccupantHash)
		}
	}
	return b.String()
}

func (v *Viewer) fetch(path string, out interface{}) error {
	u, err := apiURL(v.base, path)
	if err != nil {
		return err
	}
	// no logging here, it would scribble over the terminal UI
	return getJSON(u, out)
}
