package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"replwatch/monitor"
)

// View is the immutable per-frame input the panes paint from. The dashboard
// assembles it once per tick from the registry; entries for different targets
// may come from different monitor iterations.
type View struct {
	Now      time.Time
	Uptime   time.Duration
	Producer monitor.ProducerStats
	Targets  []monitor.TargetSnapshot

	FramesRendered uint64
	CellsChanged   uint64
	RowsSkipped    uint64
	ConfirmPrompt  string
	Notice         string
}

// Pane paints one region of the frame buffer. Layout is recomputed by the
// dashboard whenever the terminal size changes.
type Pane interface {
	Layout(x, y, w, h int)
	Paint(fb *FrameBuffer, v View)
}

type region struct {
	x, y, w, h int
}

func (r *region) Layout(x, y, w, h int) {
	r.x, r.y, r.w, r.h = x, y, w, h
}

// headerPane paints the title bar.
type headerPane struct {
	region
	box BoxGlyphs
}

func newHeaderPane(charset Charset) *headerPane {
	return &headerPane{box: charset.Box()}
}

func (p *headerPane) Paint(fb *FrameBuffer, v View) {
	if p.h <= 0 {
		return
	}
	for x := p.x; x < p.x+p.w; x++ {
		fb.SetCell(x, p.y, p.box.H, ColorGray, ColorDefault)
	}
	title := fmt.Sprintf(" replwatch %s up %s ", versionString, formatDuration(v.Uptime))
	fb.WriteString(p.x+2, p.y, title, ColorBrightWhite, ColorDefault)
}

// producerPane paints the probe writer's throughput line.
type producerPane struct {
	region
}

func (p *producerPane) Paint(fb *FrameBuffer, v View) {
	if p.h <= 0 {
		return
	}
	ps := v.Producer
	line := fmt.Sprintf("Producer  seq %s  written %s  rate %.1f/min",
		humanize.Comma(ps.LastSequence),
		humanize.Comma(int64(ps.TotalWritten)),
		ps.WritesPerMin)
	if !ps.LastWrite.IsZero() {
		line += "  last " + ps.LastWrite.Format("15:04:05")
	}
	fb.WriteString(p.x, p.y, line, ColorWhite, ColorDefault)
	if p.h > 1 && ps.Suspended {
		msg := truncate("writes suspended: "+ps.LastError, p.w)
		fb.WriteString(p.x, p.y+1, msg, ColorBrightRed, ColorDefault)
	}
}

// targetsPane paints one block per monitored replica.
type targetsPane struct {
	region
	box BoxGlyphs
}

const targetBlockRows = 4

func newTargetsPane(charset Charset) *targetsPane {
	return &targetsPane{box: charset.Box()}
}

func (p *targetsPane) Paint(fb *FrameBuffer, v View) {
	y := p.y
	for _, snap := range v.Targets {
		if y+targetBlockRows > p.y+p.h {
			fb.WriteString(p.x, p.y+p.h-1, fmt.Sprintf("... %d more target(s)", remaining(v.Targets, snap)), ColorGray, ColorDefault)
			return
		}
		p.paintTarget(fb, y, snap, v.Now)
		y += targetBlockRows
	}
}

func remaining(targets []monitor.TargetSnapshot, at monitor.TargetSnapshot) int {
	for i, t := range targets {
		if t.Name == at.Name {
			return len(targets) - i
		}
	}
	return 0
}

func (p *targetsPane) paintTarget(fb *FrameBuffer, y int, snap monitor.TargetSnapshot, now time.Time) {
	statusColor := colorForStatus(snap.Status)
	for x := p.x; x < p.x+p.w; x++ {
		fb.SetCell(x, y, p.box.H, ColorGray, ColorDefault)
	}
	head := fmt.Sprintf(" %s %c %s ", snap.Name, p.box.Bullet, snap.Status)
	fb.WriteString(p.x+1, y, head, statusColor, ColorDefault)

	lag := "lag --"
	if snap.HasLag {
		lag = fmt.Sprintf("time lag %s   record lag %s   sequence lag %s",
			formatDuration(snap.TimeLag),
			humanize.Comma(snap.RecordLag),
			humanize.Comma(snap.SequenceLag))
	}
	fb.WriteString(p.x+2, y+1, truncate(lag, p.w-2), ColorWhite, ColorDefault)

	fb.WriteString(p.x+2, y+2, truncate(missingLine(snap), p.w-2), missingColor(snap), ColorDefault)

	tail := fmt.Sprintf("errors %d", snap.ConsecutiveErrors)
	if !snap.LastSuccess.IsZero() {
		tail += "   last ok " + snap.LastSuccess.Format("15:04:05")
	}
	if snap.LastError != "" {
		tail += "   " + snap.LastError
	}
	tailColor := ColorGray
	if snap.ConsecutiveErrors > 0 {
		tailColor = ColorBrightRed
	}
	fb.WriteString(p.x+2, y+3, truncate(tail, p.w-2), tailColor, ColorDefault)
}

func missingLine(snap monitor.TargetSnapshot) string {
	switch {
	case snap.MissingCount == monitor.ScanFailed:
		return "gap scan failed"
	case snap.MissingCount == 0:
		return "no gaps in scan window"
	default:
		parts := make([]string, 0, len(snap.MissingSequences))
		for _, seq := range snap.MissingSequences {
			parts = append(parts, humanize.Comma(seq))
		}
		line := fmt.Sprintf("missing %d: %s", snap.MissingCount, strings.Join(parts, ", "))
		if snap.MissingCount > len(snap.MissingSequences) {
			line += ", ..."
		}
		return line
	}
}

func missingColor(snap monitor.TargetSnapshot) Color {
	switch {
	case snap.MissingCount == monitor.ScanFailed:
		return ColorYellow
	case snap.MissingCount > 0:
		return ColorBrightYellow
	default:
		return ColorGreen
	}
}

// footerPane paints the key help, render diagnostics, and any pending
// confirmation prompt.
type footerPane struct {
	region
}

func (p *footerPane) Paint(fb *FrameBuffer, v View) {
	if p.h <= 0 {
		return
	}
	if v.ConfirmPrompt != "" {
		fb.WriteString(p.x, p.y, truncate(v.ConfirmPrompt, p.w), ColorBrightWhite, ColorRed)
		return
	}
	if v.Notice != "" {
		fb.WriteString(p.x, p.y, truncate(v.Notice, p.w), ColorBrightGreen, ColorDefault)
		return
	}
	line := fmt.Sprintf("[q]uit  [r]edraw  [s]napshot  [x]teardown   frames %s  cells %s  skips %s",
		humanize.Comma(int64(v.FramesRendered)),
		humanize.Comma(int64(v.CellsChanged)),
		humanize.Comma(int64(v.RowsSkipped)))
	fb.WriteString(p.x, p.y, truncate(line, p.w), ColorGray, ColorDefault)
}

func colorForStatus(s monitor.TargetStatus) Color {
	switch s {
	case monitor.StatusConnected:
		return ColorBrightGreen
	case monitor.StatusDisconnected:
		return ColorBrightYellow
	case monitor.StatusError:
		return ColorBrightRed
	default:
		return ColorGray
	}
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	switch {
	case d >= time.Hour:
		return d.Truncate(time.Minute).String()
	case d >= time.Minute:
		return d.Truncate(time.Second).String()
	case d >= time.Second:
		return d.Truncate(100 * time.Millisecond).String()
	default:
		return d.Truncate(time.Millisecond).String()
	}
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// sortTargets orders snapshots by name for a stable display.
func sortTargets(targets []monitor.TargetSnapshot) {
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
}
