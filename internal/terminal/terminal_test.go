package terminal

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bokeh-viewer/internal/viewer"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []viewer.Key
	}{
		{"escape", "\x1b", []viewer.Key{{Code: viewer.KeyEscape}}},
		{"right arrow", "\x1b[C", []viewer.Key{{Code: viewer.KeyRight}}},
		{"left arrow", "\x1b[D", []viewer.Key{{Code: viewer.KeyLeft}}},
		{"application mode arrow", "\x1bOC", []viewer.Key{{Code: viewer.KeyRight}}},
		{"ctrl right", "\x1b[1;5C", []viewer.Key{{Code: viewer.KeyRight, Ctrl: true}}},
		{"alt left", "\x1b[1;3D", []viewer.Key{{Code: viewer.KeyLeft, Meta: true}}},
		{"letters", "rl", []viewer.Key{viewer.RuneKey('r'), viewer.RuneKey('l')}},
		{"ctrl r", "\x12", []viewer.Key{{Code: viewer.KeyRune, Rune: 'r', Ctrl: true}}},
		{"alt r", "\x1br", []viewer.Key{{Code: viewer.KeyRune, Rune: 'r', Meta: true}}},
		{"enter", "\r", []viewer.Key{{Code: viewer.KeyEnter}}},
		{"utf8", "é", []viewer.Key{viewer.RuneKey('é')}},
		{"mixed", "+\x1b[C-", []viewer.Key{viewer.RuneKey('+'), {Code: viewer.KeyRight}, viewer.RuneKey('-')}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode([]byte(tt.in)))
		})
	}
}

func TestDecodedModifiersAreIgnoredByViewer(t *testing.T) {
	for _, k := range Decode([]byte("\x12\x1br\x1b[1;5C")) {
		assert.Equal(t, viewer.ActionNone, viewer.ActionFor(k), "%+v", k)
	}
}

func TestRenderImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(0, 1, color.NRGBA{G: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, RenderImage(&buf, img, 2, 5))
	out := buf.String()

	assert.Equal(t, 6, strings.Count(out, upperHalf), "3 columns × 2 text rows")
	assert.Contains(t, out, MoveTo(2, 5))
	assert.Contains(t, out, MoveTo(3, 5))
	assert.Contains(t, out, "\x1b[38;2;255;0;0m\x1b[48;2;0;255;0m")
	assert.Contains(t, out, "\x1b[49m", "odd last row has no background")

	cols, rows := CellSize(img)
	assert.Equal(t, 3, cols)
	assert.Equal(t, 2, rows)
}

func TestFrameText(t *testing.T) {
	f := NewFrame()
	f.Text(1, 1, 6, "img_0001.jpg")
	assert.Contains(t, f.String(), "img_0…")
	assert.True(t, strings.HasPrefix(f.String(), HideCursor))
}

func TestFrameStyledText(t *testing.T) {
	f := NewFrame()
	f.StyledText(2, 3, 4, Reverse, "selected")
	assert.Contains(t, f.String(), MoveTo(2, 3)+Reverse+"sel…"+ResetStyle)
}

func TestReadKeys(t *testing.T) {
	keys := ReadKeys(context.Background(), strings.NewReader("r\x1b[C"))

	var got []viewer.Key
	for k := range keys {
		got = append(got, k)
	}
	assert.Equal(t, []viewer.Key{viewer.RuneKey('r'), {Code: viewer.KeyRight}}, got)
}
