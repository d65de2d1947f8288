package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// markedImage is w×h blue with a red top-left pixel.
func markedImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{B: 255, A: 255})
		}
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	return img
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > 0xf000 && g < 0x1000 && b < 0x1000
}

func TestGetImageDimensions(t *testing.T) {
	dims, format, err := GetImageDimensions(encodePNG(t, markedImage(7, 3)))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 7, dims.Width)
	assert.Equal(t, 3, dims.Height)

	_, _, err = GetImageDimensions([]byte("not an image"))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	img, format, err := Decode(encodePNG(t, markedImage(5, 4)))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 5, 4), img.Bounds())

	_, _, err = Decode(nil)
	assert.Error(t, err)
}

func TestRotateIsClockwise(t *testing.T) {
	src := markedImage(3, 2)

	tests := []struct {
		degrees int
		w, h    int
		redX    int
		redY    int
	}{
		{0, 3, 2, 0, 0},
		{90, 2, 3, 1, 0},
		{180, 3, 2, 2, 1},
		{270, 2, 3, 0, 2},
		{-90, 2, 3, 0, 2},
		{360, 3, 2, 0, 0},
	}

	for _, tt := range tests {
		out := Rotate(src, tt.degrees)
		b := out.Bounds()
		assert.Equal(t, tt.w, b.Dx(), "width at %d", tt.degrees)
		assert.Equal(t, tt.h, b.Dy(), "height at %d", tt.degrees)
		assert.True(t, isRed(out.At(b.Min.X+tt.redX, b.Min.Y+tt.redY)), "marker position at %d", tt.degrees)
	}
}

func TestPreview(t *testing.T) {
	src := markedImage(400, 200)

	out := Preview(src, 90, 100, 100, 1)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 100, out.Bounds().Dy())

	out = Preview(src, 0, 100, 100, 2)
	assert.Equal(t, 200, out.Bounds().Dx(), "zoom widens the box")

	out = Preview(markedImage(10, 10), 0, 100, 100, 1)
	assert.Equal(t, 10, out.Bounds().Dx(), "small images are not enlarged")
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder(0, 3)
	assert.Equal(t, image.Rect(0, 0, 1, 3), img.Bounds())
}
