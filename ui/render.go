package ui

import (
	"encoding/binary"
	"strings"

	"github.com/zeebo/xxh3"
)

// Renderer diffs the frame buffer's current grid against its previous grid
// and emits the minimal set of positioned, color-batched runs to the device.
// Color state is tracked frame-wide: a run only emits a color change when it
// differs from the colors last sent, wherever in the frame that was.
type Renderer struct {
	dev Device

	fullRedraw bool
	lastFG     Color
	lastBG     Color
	colorKnown bool

	// Per-row digests of the last rendered state let an unchanged row be
	// skipped without a cell-by-cell scan. A digest is only recorded after
	// the row's previous cells were synced, so digest-equal implies
	// previous == current for that row.
	rowHashes []uint64
	rowKnown  []bool
	hashBuf   []byte
	lastGen   uint64

	framesRendered uint64
	cellsChanged   uint64
	rowsSkipped    uint64

	runBuf strings.Builder
}

func NewRenderer(dev Device) *Renderer {
	return &Renderer{dev: dev, fullRedraw: true}
}

// ForceRedraw makes the next Render clear the terminal and repaint everything.
func (r *Renderer) ForceRedraw() {
	r.fullRedraw = true
}

// Render pushes the difference between fb's current and previous grids to the
// device. When it returns (and no paint ran concurrently), previous equals
// current cell-for-cell and the physical terminal shows exactly current.
func (r *Renderer) Render(fb *FrameBuffer) {
	width, height := fb.Size()
	if len(r.rowHashes) != height {
		r.rowHashes = make([]uint64, height)
		r.rowKnown = make([]bool, height)
	}
	if r.lastGen != fb.generation {
		// The buffer was resized (possibly to the same dimensions); its
		// previous grid is all-invalid, so no digest may skip a row.
		for y := range r.rowKnown {
			r.rowKnown[y] = false
		}
		r.lastGen = fb.generation
	}
	if r.fullRedraw {
		r.dev.Clear()
		r.colorKnown = false
		for y := range r.rowKnown {
			r.rowKnown[y] = false
		}
		// The physical screen is blank now; the previous grid must not
		// claim otherwise.
		for i := range fb.previous {
			fb.previous[i] = invalidCell
		}
		r.fullRedraw = false
	}
	if width == 0 || height == 0 {
		r.dev.Flush()
		r.framesRendered++
		return
	}

	for y := 0; y < height; y++ {
		cur := fb.row(y)
		h := r.hashRow(cur)
		if r.rowKnown[y] && r.rowHashes[y] == h {
			r.rowsSkipped++
			continue
		}
		r.renderRow(fb, y, cur, fb.prevRow(y))
		r.rowHashes[y] = h
		r.rowKnown[y] = true
	}
	r.dev.Flush()
	r.framesRendered++
}

// renderRow scans one row left to right, accumulating runs of contiguous
// changed cells that share a style. A run ends on a style change, an
// unchanged cell, or the row end; each run costs one cursor move, at most one
// color change, and one batched write.
func (r *Renderer) renderRow(fb *FrameBuffer, y int, cur, prev []Cell) {
	runStart := -1
	var runFG, runBG Color
	r.runBuf.Reset()

	flush := func(endX int) {
		if runStart < 0 {
			return
		}
		r.dev.MoveTo(runStart, y)
		if !r.colorKnown || runFG != r.lastFG || runBG != r.lastBG {
			r.dev.SetColors(runFG, runBG)
			r.lastFG, r.lastBG = runFG, runBG
			r.colorKnown = true
		}
		r.dev.WriteRun(r.runBuf.String())
		for x := runStart; x < endX; x++ {
			prev[x] = cur[x]
			r.cellsChanged++
		}
		runStart = -1
		r.runBuf.Reset()
	}

	for x := 0; x < len(cur); x++ {
		c := cur[x]
		if c == prev[x] {
			flush(x)
			continue
		}
		if runStart >= 0 && (c.FG != runFG || c.BG != runBG) {
			flush(x)
		}
		if runStart < 0 {
			runStart = x
			runFG, runBG = c.FG, c.BG
		}
		r.runBuf.WriteRune(c.Glyph)
	}
	flush(len(cur))
}

func (r *Renderer) hashRow(cells []Cell) uint64 {
	need := len(cells) * 6
	if cap(r.hashBuf) < need {
		r.hashBuf = make([]byte, need)
	}
	buf := r.hashBuf[:need]
	for i, c := range cells {
		binary.LittleEndian.PutUint32(buf[i*6:], uint32(c.Glyph))
		buf[i*6+4] = byte(c.FG)
		buf[i*6+5] = byte(c.BG)
	}
	return xxh3.Hash(buf)
}

// FramesRendered, CellsChanged, and RowsSkipped are instrumentation only;
// they never influence what gets drawn.
func (r *Renderer) FramesRendered() uint64 { return r.framesRendered }
func (r *Renderer) CellsChanged() uint64   { return r.cellsChanged }
func (r *Renderer) RowsSkipped() uint64    { return r.rowsSkipped }
