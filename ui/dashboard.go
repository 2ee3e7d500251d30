package ui

import (
	"context"
	"fmt"
	"log"
	"time"

	"replwatch/config"
	"replwatch/monitor"
)

const versionString = "v0.3"

// minRefresh guards against configs that would spin the render loop.
const minRefresh = 16 * time.Millisecond

// ExitAction tells main how the dashboard loop ended.
type ExitAction int

const (
	// ExitQuit requests a plain shutdown.
	ExitQuit ExitAction = iota
	// ExitTeardown requests shutdown followed by the destructive schema
	// cleanup the operator confirmed at the prompt.
	ExitTeardown
)

// Dashboard is the fixed-cadence orchestrator: each tick it tracks terminal
// size, lets the panes paint from the registry, runs the diff renderer, and
// dispatches pending input. All painting happens on this one goroutine.
type Dashboard struct {
	dev      Device
	fb       *FrameBuffer
	renderer *Renderer
	registry *monitor.Registry
	cfg      config.UIConfig
	dumpDir  string
	refresh  time.Duration

	header   *headerPane
	producer *producerPane
	targets  *targetsPane
	footer   *footerPane

	confirmTeardown bool
	notice          string
	noticeUntil     time.Time

	start time.Time
	now   func() time.Time
	lastW int
	lastH int
}

func NewDashboard(dev Device, registry *monitor.Registry, cfg config.UIConfig, dumpDir string) *Dashboard {
	refresh := time.Duration(cfg.RefreshMS) * time.Millisecond
	if refresh < minRefresh {
		log.Printf("UI: clamping refresh interval to %dms (requested %dms too low)",
			minRefresh/time.Millisecond, refresh/time.Millisecond)
		refresh = minRefresh
	}
	w, h := dev.Size()
	d := &Dashboard{
		dev:      dev,
		fb:       NewFrameBuffer(w, h),
		registry: registry,
		cfg:      cfg,
		dumpDir:  dumpDir,
		refresh:  refresh,
		header:   newHeaderPane(dev.Charset()),
		producer: &producerPane{},
		targets:  newTargetsPane(dev.Charset()),
		footer:   &footerPane{},
		now:      time.Now,
		lastW:    w,
		lastH:    h,
	}
	d.renderer = NewRenderer(dev)
	d.layout(w, h)
	return d
}

// layout recomputes every pane's region for the given terminal size.
func (d *Dashboard) layout(w, h int) {
	d.header.Layout(0, 0, w, 1)
	d.producer.Layout(0, 2, w, 2)
	d.targets.Layout(0, 5, w, h-6)
	d.footer.Layout(0, h-1, w, 1)
}

// Run loops until the context is cancelled or the operator quits. A tick that
// overruns its budget is logged and the next frame starts immediately; frames
// are never skipped.
func (d *Dashboard) Run(ctx context.Context) ExitAction {
	d.start = d.now()
	for {
		tickStart := d.now()
		if ctx.Err() != nil {
			return ExitQuit
		}

		w, h := d.dev.Size()
		if w != d.lastW || h != d.lastH {
			d.fb.Resize(w, h)
			d.renderer.ForceRedraw()
			d.layout(w, h)
			d.lastW, d.lastH = w, h
		}

		if w < d.cfg.MinWidth || h < d.cfg.MinHeight {
			d.paintTooSmall(w, h)
		} else {
			d.paint()
		}
		d.renderer.Render(d.fb)

		if action, done := d.handleInput(); done {
			return action
		}
		if !d.sleepRemainder(ctx, tickStart) {
			return ExitQuit
		}
	}
}

func (d *Dashboard) paint() {
	view := d.buildView()
	d.fb.Clear()
	d.header.Paint(d.fb, view)
	d.producer.Paint(d.fb, view)
	d.targets.Paint(d.fb, view)
	d.footer.Paint(d.fb, view)
}

// paintTooSmall replaces the panes with a centered hint until the terminal
// grows back past the minimum; exit keys keep working throughout.
func (d *Dashboard) paintTooSmall(w, h int) {
	d.fb.Clear()
	msg := fmt.Sprintf("terminal too small (%dx%d, need %dx%d)", w, h, d.cfg.MinWidth, d.cfg.MinHeight)
	x := (w - len(msg)) / 2
	if x < 0 {
		x = 0
	}
	d.fb.WriteString(x, h/2, msg, ColorBrightYellow, ColorDefault)
	hint := "[q] quit"
	hx := (w - len(hint)) / 2
	if hx < 0 {
		hx = 0
	}
	d.fb.WriteString(hx, h/2+1, hint, ColorGray, ColorDefault)
}

func (d *Dashboard) buildView() View {
	now := d.now().UTC()
	all := d.registry.GetAll()
	targets := make([]monitor.TargetSnapshot, 0, len(all))
	for _, snap := range all {
		targets = append(targets, snap)
	}
	sortTargets(targets)

	view := View{
		Now:            now,
		Uptime:         now.Sub(d.start.UTC()),
		Producer:       d.registry.Producer(),
		Targets:        targets,
		FramesRendered: d.renderer.FramesRendered(),
		CellsChanged:   d.renderer.CellsChanged(),
		RowsSkipped:    d.renderer.RowsSkipped(),
	}
	if d.confirmTeardown {
		view.ConfirmPrompt = " tear down probe schema on all stores? [y/N] "
	} else if d.notice != "" && now.Before(d.noticeUntil) {
		view.Notice = d.notice
	}
	return view
}

// handleInput drains everything the device decoded since the last tick.
// done=true ends the loop with the returned action.
func (d *Dashboard) handleInput() (ExitAction, bool) {
	for {
		select {
		case key := <-d.dev.Keys():
			if key.Interrupt {
				return ExitQuit, true
			}
			if d.confirmTeardown {
				if key.Rune == 'y' || key.Rune == 'Y' {
					return ExitTeardown, true
				}
				d.confirmTeardown = false
				continue
			}
			switch key.Rune {
			case 'q', 'Q':
				return ExitQuit, true
			case 'r', 'R':
				d.renderer.ForceRedraw()
			case 's', 'S':
				d.dumpStatus()
			case 'x', 'X':
				d.confirmTeardown = true
			}
		default:
			return ExitQuit, false
		}
	}
}

func (d *Dashboard) dumpStatus() {
	path, err := d.registry.DumpJSON(d.dumpDir)
	if err != nil {
		log.Printf("UI: status dump failed: %v", err)
		d.setNotice("status dump failed, see log")
		return
	}
	log.Printf("UI: status dumped to %s", path)
	d.setNotice("status dumped to " + path)
}

func (d *Dashboard) setNotice(msg string) {
	d.notice = msg
	d.noticeUntil = d.now().UTC().Add(3 * time.Second)
}

// sleepRemainder waits out the rest of the tick budget. Returns false when
// the context was cancelled during the wait.
func (d *Dashboard) sleepRemainder(ctx context.Context, tickStart time.Time) bool {
	elapsed := d.now().Sub(tickStart)
	remaining := d.refresh - elapsed
	if remaining <= 0 {
		log.Printf("UI: tick overran budget by %s", -remaining)
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(remaining):
		return true
	}
}
