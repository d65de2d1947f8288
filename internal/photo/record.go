package photo

import (
	"path"
	"strings"
	"time"
)

// Record is the canonical client-side representation of a photo.
type Record struct {
	ID           int               `json:"id"`
	Filename     string            `json:"filename"`
	MimeType     string            `json:"mime_type"`
	FileSize     int64             `json:"file_size"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
	DateTaken    *Timestamp        `json:"date_taken,omitempty"`
	CreatedAt    Timestamp         `json:"created_at"`
	CameraMake   string            `json:"camera_make,omitempty"`
	CameraModel  string            `json:"camera_model,omitempty"`
	Rating       *int              `json:"rating,omitempty"`
	IsFavorite   bool              `json:"is_favorite"`
	FilePath     string            `json:"filepath,omitempty"`
	RelativePath string            `json:"relative_path,omitempty"`
	Thumbnails   map[string]string `json:"thumbnails,omitempty"`

	RotationVersion int `json:"rotation_version,omitempty"`
	FinalRotation   int `json:"final_rotation,omitempty"`
}

// EffectiveDate is the date used for ordering and bucketing: DateTaken when
// known, otherwise CreatedAt.
func (r Record) EffectiveDate() time.Time {
	if r.DateTaken != nil && !r.DateTaken.IsZero() {
		return r.DateTaken.Time
	}
	return r.CreatedAt.Time
}

// Rotation returns the persisted rotation, normalized.
func (r Record) Rotation() int {
	return Normalize(r.FinalRotation)
}

// RotationState returns the server-confirmed rotation fields.
func (r Record) RotationState() RotationState {
	return RotationState{Version: r.RotationVersion, FinalRotation: r.Rotation()}
}

// WithRotation returns a copy with the rotation fields replaced. Versions
// never move backwards; an older state leaves the record unchanged.
func (r Record) WithRotation(state RotationState) (Record, bool) {
	if state.Version < r.RotationVersion {
		return r, false
	}
	r.RotationVersion = state.Version
	r.FinalRotation = Normalize(state.FinalRotation)
	return r, true
}

// Folder is the directory portion of the photo's library path, using
// RelativePath when present and FilePath otherwise. Photos at the root
// return ".".
func (r Record) Folder() string {
	p := r.RelativePath
	if p == "" {
		p = r.FilePath
	}
	if p == "" {
		return "."
	}
	p = strings.ReplaceAll(p, "\\", "/")
	dir := path.Dir(p)
	if dir == "" || dir == "/" {
		return "."
	}
	return strings.TrimPrefix(dir, "/")
}

// DisplayDimensions returns width and height as seen after applying the
// given rotation.
func (r Record) DisplayDimensions(rotation int) (int, int) {
	if IsQuarterTurn(rotation) {
		return r.Height, r.Width
	}
	return r.Width, r.Height
}
