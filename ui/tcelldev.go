package ui

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// tcellDevice implements Device on a tcell screen. The renderer still owns
// the diffing; this backend just translates positioned runs into SetContent
// calls and lets tcell handle terminfo, input decoding, and capability
// probing.
type tcellDevice struct {
	screen      tcell.Screen
	charset     Charset
	charsetName string
	color       bool

	cursorX int
	cursorY int
	style   tcell.Style

	keys     chan Key
	quit     chan struct{}
	stopOnce sync.Once
}

// NewTcellDevice initializes a tcell screen and probes the glyph tier via
// CanDisplay unless the configured charset pins it.
func NewTcellDevice(charsetName string, color bool) (Device, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("ui: tcell screen: %w", err)
	}
	return &tcellDevice{
		screen:      screen,
		charsetName: charsetName,
		color:       color,
		style:       tcell.StyleDefault,
		keys:        make(chan Key, 32),
		quit:        make(chan struct{}),
	}, nil
}

func (d *tcellDevice) Start() error {
	if err := d.screen.Init(); err != nil {
		return fmt.Errorf("ui: tcell init: %w", err)
	}
	charset, pinned := parseCharset(d.charsetName)
	if !pinned {
		charset = d.probeCharset()
	}
	d.charset = charset
	go d.readEvents()
	return nil
}

func (d *tcellDevice) probeCharset() Charset {
	if d.screen.CanDisplay('─', true) && d.screen.CanDisplay('•', true) {
		return CharsetUnicode
	}
	if d.screen.CanDisplay('=', true) {
		return CharsetExtended
	}
	return CharsetASCII
}

func (d *tcellDevice) Stop() {
	d.stopOnce.Do(func() {
		close(d.quit)
		d.screen.Fini()
	})
}

func (d *tcellDevice) Size() (int, int) {
	return d.screen.Size()
}

func (d *tcellDevice) Keys() <-chan Key {
	return d.keys
}

func (d *tcellDevice) readEvents() {
	for {
		ev := d.screen.PollEvent()
		if ev == nil {
			return
		}
		var key Key
		switch tev := ev.(type) {
		case *tcell.EventKey:
			switch {
			case tev.Key() == tcell.KeyCtrlC:
				key = Key{Interrupt: true}
			case tev.Key() == tcell.KeyEscape:
				key = Key{Rune: '\x1b'}
			case tev.Key() == tcell.KeyRune:
				key = Key{Rune: tev.Rune()}
			default:
				continue
			}
		case *tcell.EventResize:
			// Size is polled every tick; nothing to forward.
			continue
		default:
			continue
		}
		select {
		case d.keys <- key:
		case <-d.quit:
			return
		default:
		}
	}
}

func (d *tcellDevice) MoveTo(x, y int) {
	d.cursorX, d.cursorY = x, y
}

func (d *tcellDevice) SetColors(fg, bg Color) {
	if !d.color {
		d.style = tcell.StyleDefault
		return
	}
	d.style = tcell.StyleDefault.Foreground(tcellColor(fg)).Background(tcellColor(bg))
}

func (d *tcellDevice) WriteRun(text string) {
	for _, r := range text {
		d.screen.SetContent(d.cursorX, d.cursorY, r, nil, d.style)
		d.cursorX++
	}
}

func (d *tcellDevice) Clear() {
	d.screen.Clear()
}

func (d *tcellDevice) Flush() {
	d.screen.Show()
}

func (d *tcellDevice) Charset() Charset {
	return d.charset
}

func tcellColor(c Color) tcell.Color {
	switch c {
	case ColorBlack:
		return tcell.ColorBlack
	case ColorRed:
		return tcell.ColorMaroon
	case ColorGreen:
		return tcell.ColorGreen
	case ColorYellow:
		return tcell.ColorOlive
	case ColorBlue:
		return tcell.ColorNavy
	case ColorMagenta:
		return tcell.ColorPurple
	case ColorCyan:
		return tcell.ColorTeal
	case ColorWhite:
		return tcell.ColorSilver
	case ColorGray:
		return tcell.ColorGray
	case ColorBrightRed:
		return tcell.ColorRed
	case ColorBrightGreen:
		return tcell.ColorLime
	case ColorBrightYellow:
		return tcell.ColorYellow
	case ColorBrightWhite:
		return tcell.ColorWhite
	default:
		return tcell.ColorDefault
	}
}
