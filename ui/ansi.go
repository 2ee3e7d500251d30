package ui

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

// ansiDevice drives the controlling terminal directly with ANSI escape
// sequences: raw mode plus the alternate screen on Start, one buffered write
// per frame, and a reader goroutine feeding decoded keystrokes.
type ansiDevice struct {
	out      *os.File
	in       *os.File
	charset  Charset
	color    bool
	buf      bytes.Buffer
	keys     chan Key
	oldState *term.State
	quit     chan struct{}
	stopOnce sync.Once
}

// NewANSIDevice probes the glyph tier once (from the locale unless the
// configured charset pins it) and returns an unstarted device.
func NewANSIDevice(charsetName string, color bool) (Device, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil, fmt.Errorf("ui: stdout is not a terminal")
	}
	charset, pinned := parseCharset(charsetName)
	if !pinned {
		charset = probeLocaleCharset(os.Getenv)
	}
	return &ansiDevice{
		out:     os.Stdout,
		in:      os.Stdin,
		charset: charset,
		color:   color,
		keys:    make(chan Key, 32),
		quit:    make(chan struct{}),
	}, nil
}

func (d *ansiDevice) Start() error {
	state, err := term.MakeRaw(int(d.in.Fd()))
	if err != nil {
		return fmt.Errorf("ui: raw mode: %w", err)
	}
	d.oldState = state
	// Alternate screen, hidden cursor, clean slate.
	fmt.Fprint(d.out, "\x1b[?1049h\x1b[?25l\x1b[2J\x1b[H")
	go d.readKeys()
	return nil
}

func (d *ansiDevice) Stop() {
	d.stopOnce.Do(func() {
		close(d.quit)
		fmt.Fprint(d.out, "\x1b[0m\x1b[?25h\x1b[?1049l")
		if d.oldState != nil {
			_ = term.Restore(int(d.in.Fd()), d.oldState)
		}
	})
}

func (d *ansiDevice) Size() (int, int) {
	w, h, err := term.GetSize(int(d.out.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return 0, 0
	}
	return w, h
}

func (d *ansiDevice) Keys() <-chan Key {
	return d.keys
}

func (d *ansiDevice) readKeys() {
	buf := make([]byte, 64)
	for {
		n, err := d.in.Read(buf)
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			var key Key
			switch {
			case b == 0x03:
				key = Key{Interrupt: true}
			case b == '\x1b':
				key = Key{Rune: '\x1b'}
			case b >= 0x20 && b < 0x7f:
				key = Key{Rune: rune(b)}
			default:
				continue
			}
			select {
			case d.keys <- key:
			case <-d.quit:
				return
			default:
				// Input pressure beyond the channel is dropped; the
				// dashboard drains every tick.
			}
		}
		select {
		case <-d.quit:
			return
		default:
		}
	}
}

func (d *ansiDevice) MoveTo(x, y int) {
	fmt.Fprintf(&d.buf, "\x1b[%d;%dH", y+1, x+1)
}

func (d *ansiDevice) SetColors(fg, bg Color) {
	if !d.color {
		return
	}
	fmt.Fprintf(&d.buf, "\x1b[%d;%dm", sgrForeground(fg), sgrBackground(bg))
}

func (d *ansiDevice) WriteRun(text string) {
	d.buf.WriteString(text)
}

func (d *ansiDevice) Clear() {
	d.buf.WriteString("\x1b[0m\x1b[2J\x1b[H")
}

func (d *ansiDevice) Flush() {
	if d.buf.Len() == 0 {
		return
	}
	_, _ = d.buf.WriteTo(d.out)
	d.buf.Reset()
}

func (d *ansiDevice) Charset() Charset {
	return d.charset
}

func sgrForeground(c Color) int {
	switch c {
	case ColorBlack:
		return 30
	case ColorRed:
		return 31
	case ColorGreen:
		return 32
	case ColorYellow:
		return 33
	case ColorBlue:
		return 34
	case ColorMagenta:
		return 35
	case ColorCyan:
		return 36
	case ColorWhite:
		return 37
	case ColorGray:
		return 90
	case ColorBrightRed:
		return 91
	case ColorBrightGreen:
		return 92
	case ColorBrightYellow:
		return 93
	case ColorBrightWhite:
		return 97
	default:
		return 39
	}
}

func sgrBackground(c Color) int {
	switch c {
	case ColorBlack:
		return 40
	case ColorRed:
		return 41
	case ColorGreen:
		return 42
	case ColorYellow:
		return 43
	case ColorBlue:
		return 44
	case ColorMagenta:
		return 45
	case ColorCyan:
		return 46
	case ColorWhite:
		return 47
	case ColorGray:
		return 100
	default:
		return 49
	}
}
