package ui

import "testing"

func TestParseCharset(t *testing.T) {
	cases := []struct {
		name string
		want Charset
		ok   bool
	}{
		{"unicode", CharsetUnicode, true},
		{"extended", CharsetExtended, true},
		{"ascii", CharsetASCII, true},
		{"auto", CharsetASCII, false},
		{"", CharsetASCII, false},
	}
	for _, c := range cases {
		got, ok := parseCharset(c.name)
		if got != c.want || ok != c.ok {
			t.Fatalf("parseCharset(%q) = %v,%v, want %v,%v", c.name, got, ok, c.want, c.ok)
		}
	}
}

func TestProbeLocaleCharset(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want Charset
	}{
		{map[string]string{"LANG": "en_US.UTF-8"}, CharsetUnicode},
		{map[string]string{"LC_ALL": "C.utf8"}, CharsetUnicode},
		{map[string]string{"TERM": "linux"}, CharsetExtended},
		{map[string]string{"TERM": "vt220"}, CharsetExtended},
		{map[string]string{"TERM": "dumb"}, CharsetASCII},
		{map[string]string{}, CharsetASCII},
	}
	for _, c := range cases {
		env := func(key string) string { return c.env[key] }
		if got := probeLocaleCharset(env); got != c.want {
			t.Fatalf("probeLocaleCharset(%v) = %v, want %v", c.env, got, c.want)
		}
	}
}

func TestCharsetBoxGlyphs(t *testing.T) {
	if b := CharsetUnicode.Box(); b.H != '─' || b.Bullet != '•' {
		t.Fatalf("unicode box glyphs: %+v", b)
	}
	if b := CharsetExtended.Box(); b.H != '=' || b.Bullet != 'o' {
		t.Fatalf("extended box glyphs: %+v", b)
	}
	if b := CharsetASCII.Box(); b.H != '-' || b.Bullet != '*' {
		t.Fatalf("ascii box glyphs: %+v", b)
	}
}
