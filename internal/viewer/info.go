package viewer

import (
	"fmt"
	"strings"

	"bokeh-viewer/internal/jobs"
	"bokeh-viewer/internal/photo"
)

// InfoField is one line of the info panel.
type InfoField struct {
	Label string
	Value string
}

// Info builds the info panel for p shown at rotation.
func Info(p photo.Record, rotation int) []InfoField {
	fields := []InfoField{
		{"Filename", p.Filename},
		{"Size", jobs.FormatBytes(p.FileSize)},
	}

	if p.Width > 0 && p.Height > 0 {
		w, h := p.DisplayDimensions(rotation)
		fields = append(fields, InfoField{"Dimensions", fmt.Sprintf("%d × %d", w, h)})
	}

	fields = append(fields, InfoField{"Date", formatDate(p)})

	camera := strings.TrimSpace(p.CameraMake + " " + p.CameraModel)
	if camera != "" {
		fields = append(fields, InfoField{"Camera", camera})
	}
	if p.MimeType != "" {
		fields = append(fields, InfoField{"Type", p.MimeType})
	}
	fields = append(fields, InfoField{"Rotation", fmt.Sprintf("%d°", rotation)})
	if p.IsFavorite {
		fields = append(fields, InfoField{"Favorite", "★ Yes"})
	}

	return fields
}

func formatDate(p photo.Record) string {
	t := p.EffectiveDate()
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("January 2, 2006 15:04")
}
