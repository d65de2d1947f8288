package terminal

import (
	"unicode/utf8"

	"bokeh-viewer/internal/viewer"
)

const esc = 0x1b

// Decode splits raw terminal input into key presses. A lone ESC is the
// Escape key; ESC followed by a printable character is that character with
// Meta held (Alt on most terminals); CSI sequences map to arrow keys.
func Decode(buf []byte) []viewer.Key {
	var keys []viewer.Key
	for len(buf) > 0 {
		k, n := decodeOne(buf)
		keys = append(keys, k)
		buf = buf[n:]
	}
	return keys
}

func decodeOne(buf []byte) (viewer.Key, int) {
	b := buf[0]

	if b == esc {
		if len(buf) == 1 {
			return viewer.Key{Code: viewer.KeyEscape}, 1
		}
		if buf[1] == '[' || buf[1] == 'O' {
			return decodeCSI(buf)
		}
		if buf[1] == esc {
			return viewer.Key{Code: viewer.KeyEscape}, 1
		}
		k, n := decodeOne(buf[1:])
		k.Meta = true
		return k, n + 1
	}

	switch {
	case b == '\r' || b == '\n':
		return viewer.Key{Code: viewer.KeyEnter}, 1
	case b < 0x20:
		// Ctrl+A..Ctrl+Z arrive as 0x01..0x1a.
		return viewer.Key{Code: viewer.KeyRune, Rune: rune('a' + b - 1), Ctrl: true}, 1
	case b == 0x7f:
		return viewer.Key{Code: viewer.KeyUnknown}, 1
	}

	r, n := utf8.DecodeRune(buf)
	if r == utf8.RuneError {
		return viewer.Key{Code: viewer.KeyUnknown}, 1
	}
	return viewer.RuneKey(r), n
}

// decodeCSI parses ESC [ ... final and ESC O final sequences. Modifier
// parameters (ESC [ 1 ; 5 C) set Ctrl and Meta.
func decodeCSI(buf []byte) (viewer.Key, int) {
	param, mod := 0, 0
	sawSep := false
	for i := 2; i < len(buf); i++ {
		c := buf[i]
		switch {
		case c >= '0' && c <= '9':
			param = param*10 + int(c-'0')
		case c == ';':
			sawSep = true
			param = 0
		default:
			if sawSep {
				mod = param
			}
			k := viewer.Key{Code: csiCode(c)}
			if mod > 1 {
				bits := mod - 1
				k.Meta = bits&2 != 0 || bits&8 != 0
				k.Ctrl = bits&4 != 0
			}
			return k, i + 1
		}
	}
	return viewer.Key{Code: viewer.KeyUnknown}, len(buf)
}

func csiCode(final byte) viewer.KeyCode {
	switch final {
	case 'A':
		return viewer.KeyUp
	case 'B':
		return viewer.KeyDown
	case 'C':
		return viewer.KeyRight
	case 'D':
		return viewer.KeyLeft
	}
	return viewer.KeyUnknown
}
