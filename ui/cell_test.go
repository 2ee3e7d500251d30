package ui

import "testing"

func TestFrameBufferResizeInvalidatesPrevious(t *testing.T) {
	fb := NewFrameBuffer(4, 2)
	fb.previous[0] = Cell{Glyph: 'x'}

	fb.Resize(3, 3)
	w, h := fb.Size()
	if w != 3 || h != 3 {
		t.Fatalf("expected 3x3, got %dx%d", w, h)
	}
	for i, c := range fb.previous {
		if c != invalidCell {
			t.Fatalf("previous[%d] = %+v, expected invalid sentinel", i, c)
		}
	}
	for i, c := range fb.current {
		if c != blankCell {
			t.Fatalf("current[%d] = %+v, expected blank", i, c)
		}
	}
}

func TestSetCellIgnoresOutOfBounds(t *testing.T) {
	fb := NewFrameBuffer(3, 2)
	fb.SetCell(-1, 0, 'x', ColorWhite, ColorDefault)
	fb.SetCell(3, 0, 'x', ColorWhite, ColorDefault)
	fb.SetCell(0, 2, 'x', ColorWhite, ColorDefault)
	for i, c := range fb.current {
		if c != blankCell {
			t.Fatalf("out-of-bounds paint landed at %d: %+v", i, c)
		}
	}
	if _, ok := fb.CellAt(3, 0); ok {
		t.Fatalf("CellAt accepted out-of-bounds coordinates")
	}
}

func TestWriteStringClipsAtRightEdge(t *testing.T) {
	fb := NewFrameBuffer(5, 1)
	fb.WriteString(3, 0, "abcdef", ColorWhite, ColorDefault)
	c, _ := fb.CellAt(3, 0)
	if c.Glyph != 'a' {
		t.Fatalf("expected 'a' at x=3, got %q", c.Glyph)
	}
	c, _ = fb.CellAt(4, 0)
	if c.Glyph != 'b' {
		t.Fatalf("expected 'b' at x=4, got %q", c.Glyph)
	}
}

func TestClearOnlyTouchesCurrent(t *testing.T) {
	fb := NewFrameBuffer(2, 1)
	fb.SetCell(0, 0, 'x', ColorRed, ColorDefault)
	fb.previous[1] = Cell{Glyph: 'y'}

	fb.Clear()
	c, _ := fb.CellAt(0, 0)
	if c != blankCell {
		t.Fatalf("Clear left current cell %+v", c)
	}
	if fb.previous[1].Glyph != 'y' {
		t.Fatalf("Clear must not touch the previous grid")
	}
}

func TestResizeNegativeDimensions(t *testing.T) {
	fb := NewFrameBuffer(-3, -1)
	w, h := fb.Size()
	if w != 0 || h != 0 {
		t.Fatalf("expected 0x0, got %dx%d", w, h)
	}
}
