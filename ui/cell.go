// Package ui renders the live status grid to a terminal. A double-buffered
// FrameBuffer holds what the next frame should look like; the Renderer diffs
// it against what is already on screen and emits the minimal set of batched
// writes through a Device. Painting is single-threaded (the dashboard loop),
// so the buffer itself carries no lock.
package ui

// Color is the closed set of colors the renderer understands. Devices map
// these onto whatever the terminal supports.
type Color uint8

const (
	ColorDefault Color = iota
	ColorBlack
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorGray
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightWhite
)

// Cell is one styled character position.
type Cell struct {
	Glyph rune
	FG    Color
	BG    Color
}

// invalidCell cannot be produced by any paint call (paints never write a
// negative rune), so a previous grid filled with it makes the next render
// treat every cell as changed.
var invalidCell = Cell{Glyph: -1}

var blankCell = Cell{Glyph: ' '}

// FrameBuffer holds two row-major grids of identical dimensions: current,
// mutated only by paint calls, and previous, mutated only by the Renderer and
// always mirroring what is physically on screen.
type FrameBuffer struct {
	width    int
	height   int
	current  []Cell
	previous []Cell

	// generation increments on every Resize so the Renderer drops its row
	// digests even when the new dimensions match the old ones.
	generation uint64
}

func NewFrameBuffer(width, height int) *FrameBuffer {
	fb := &FrameBuffer{}
	fb.Resize(width, height)
	return fb
}

// Resize reallocates both grids. The previous grid is filled with the invalid
// sentinel so the render that follows repaints the whole screen, which keeps
// the display correct across a terminal resize.
func (fb *FrameBuffer) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	fb.width = width
	fb.height = height
	fb.generation++
	n := width * height
	fb.current = make([]Cell, n)
	fb.previous = make([]Cell, n)
	for i := range fb.current {
		fb.current[i] = blankCell
		fb.previous[i] = invalidCell
	}
}

func (fb *FrameBuffer) Size() (int, int) {
	return fb.width, fb.height
}

// SetCell paints one cell. Out-of-bounds coordinates are ignored so panes can
// paint without re-checking clip edges.
func (fb *FrameBuffer) SetCell(x, y int, glyph rune, fg, bg Color) {
	if x < 0 || y < 0 || x >= fb.width || y >= fb.height {
		return
	}
	fb.current[y*fb.width+x] = Cell{Glyph: glyph, FG: fg, BG: bg}
}

// CellAt returns the current (painted, not necessarily rendered) cell.
func (fb *FrameBuffer) CellAt(x, y int) (Cell, bool) {
	if x < 0 || y < 0 || x >= fb.width || y >= fb.height {
		return Cell{}, false
	}
	return fb.current[y*fb.width+x], true
}

// WriteString paints text from (x, y), clipped at the right edge.
func (fb *FrameBuffer) WriteString(x, y int, text string, fg, bg Color) {
	for _, r := range text {
		if x >= fb.width {
			return
		}
		fb.SetCell(x, y, r, fg, bg)
		x++
	}
}

// FillRow paints a full row with glyph.
func (fb *FrameBuffer) FillRow(y int, glyph rune, fg, bg Color) {
	for x := 0; x < fb.width; x++ {
		fb.SetCell(x, y, glyph, fg, bg)
	}
}

// Clear repaints every current cell as a blank.
func (fb *FrameBuffer) Clear() {
	for i := range fb.current {
		fb.current[i] = blankCell
	}
}

// row returns the current cells of row y.
func (fb *FrameBuffer) row(y int) []Cell {
	return fb.current[y*fb.width : (y+1)*fb.width]
}

// prevRow returns the previous cells of row y.
func (fb *FrameBuffer) prevRow(y int) []Cell {
	return fb.previous[y*fb.width : (y+1)*fb.width]
}
