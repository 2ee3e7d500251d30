package ui

import "strings"

// Key is one decoded keystroke.
type Key struct {
	Rune      rune
	Interrupt bool // Ctrl+C
}

// Device is the terminal the renderer writes to. MoveTo/SetColors/WriteRun
// accumulate into a frame batch that Flush pushes out in one write; Keys
// delivers raw keystrokes; Size is queried by the dashboard every tick.
type Device interface {
	Start() error
	Stop()
	Size() (width, height int)
	Keys() <-chan Key

	MoveTo(x, y int)
	SetColors(fg, bg Color)
	WriteRun(text string)
	Clear()
	Flush()

	// Charset reports the glyph tier selected by a one-time capability
	// probe; it is fixed for the process lifetime.
	Charset() Charset
}

// Charset is the border/separator glyph tier a terminal can display.
type Charset int

const (
	CharsetASCII Charset = iota
	CharsetExtended
	CharsetUnicode
)

func (c Charset) String() string {
	switch c {
	case CharsetUnicode:
		return "unicode"
	case CharsetExtended:
		return "extended"
	default:
		return "ascii"
	}
}

// BoxGlyphs are the characters panes use for borders and separators.
type BoxGlyphs struct {
	H      rune
	V      rune
	TL     rune
	TR     rune
	BL     rune
	BR     rune
	Bullet rune
}

func (c Charset) Box() BoxGlyphs {
	switch c {
	case CharsetUnicode:
		return BoxGlyphs{H: '─', V: '│', TL: '┌', TR: '┐', BL: '└', BR: '┘', Bullet: '•'}
	case CharsetExtended:
		return BoxGlyphs{H: '=', V: '|', TL: '+', TR: '+', BL: '+', BR: '+', Bullet: 'o'}
	default:
		return BoxGlyphs{H: '-', V: '|', TL: '+', TR: '+', BL: '+', BR: '+', Bullet: '*'}
	}
}

// parseCharset maps a configured charset name to a tier; "auto" falls back to
// the device probe.
func parseCharset(name string) (Charset, bool) {
	switch name {
	case "unicode":
		return CharsetUnicode, true
	case "extended":
		return CharsetExtended, true
	case "ascii":
		return CharsetASCII, true
	default:
		return CharsetASCII, false
	}
}

// probeLocaleCharset guesses the glyph tier from the locale environment, used
// by the raw ANSI device which has no display feedback channel.
func probeLocaleCharset(env func(string) string) Charset {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := strings.ToUpper(env(key))
		if strings.Contains(v, "UTF-8") || strings.Contains(v, "UTF8") {
			return CharsetUnicode
		}
	}
	term := strings.ToLower(env("TERM"))
	if strings.Contains(term, "linux") || strings.Contains(term, "vt100") || strings.Contains(term, "vt220") {
		return CharsetExtended
	}
	return CharsetASCII
}
