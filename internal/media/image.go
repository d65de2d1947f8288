package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support

	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/metrics"
	"bokeh-viewer/internal/photo"
)

const (
	// MaxImageDimension is the largest width or height kept after decoding.
	// Larger images are downscaled first.
	MaxImageDimension = 4096

	// MaxImagePixels is the largest decoded size accepted (~20MP).
	MaxImagePixels = 20_000_000
)

// ImageDimensions holds image width and height.
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns the dimensions and format without fully
// decoding the image.
func GetImageDimensions(data []byte) (*ImageDimensions, string, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return &ImageDimensions{Width: config.Width, Height: config.Height}, format, nil
}

// Decode decodes image bytes, refusing images above MaxImagePixels and
// downscaling ones wider or taller than MaxImageDimension.
func Decode(data []byte) (image.Image, string, error) {
	dims, format, err := GetImageDimensions(data)
	if err != nil {
		metrics.ImageDecodeByFormat.WithLabelValues("unknown").Inc()
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if dims.Width*dims.Height > MaxImagePixels {
		return nil, format, fmt.Errorf("decode image: %dx%d exceeds %d pixels", dims.Width, dims.Height, MaxImagePixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		metrics.ImageDecodeByFormat.WithLabelValues("unknown").Inc()
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	metrics.ImageDecodeByFormat.WithLabelValues(format).Inc()

	if dims.Width > MaxImageDimension || dims.Height > MaxImageDimension {
		logging.Debug("Constraining large image from %dx%d", dims.Width, dims.Height)
		img = imaging.Fit(img, MaxImageDimension, MaxImageDimension, imaging.Lanczos)
	}
	return img, format, nil
}

// Rotate turns img clockwise by a rotation in degrees. imaging rotates
// counter-clockwise, so a clockwise quarter turn is Rotate270.
func Rotate(img image.Image, degrees int) image.Image {
	switch photo.Normalize(degrees) {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return img
}

// Preview rotates img and scales it to fit maxWidth×maxHeight at zoom,
// never enlarging beyond the zoomed source size.
func Preview(img image.Image, degrees int, maxWidth, maxHeight int, zoom float64) image.Image {
	img = Rotate(img, degrees)
	if zoom <= 0 {
		zoom = 1
	}

	w := int(float64(maxWidth) * zoom)
	h := int(float64(maxHeight) * zoom)
	if w < 1 || h < 1 {
		return img
	}

	b := img.Bounds()
	if b.Dx() <= w && b.Dy() <= h {
		return img
	}
	return imaging.Fit(img, w, h, imaging.Box)
}

// Placeholder returns a flat grey image shown when a thumbnail cannot be
// loaded.
func Placeholder(width, height int) image.Image {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return imaging.New(width, height, color.NRGBA{R: 64, G: 64, B: 64, A: 255})
}
