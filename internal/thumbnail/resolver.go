package thumbnail

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bokeh-viewer/internal/photo"
)

// Override carries session state that changes the URL of a photo.
// The zero value has no effect.
type Override struct {
	// ConfirmedVersion is the rotation_version returned by the last
	// successful rotation request in the current viewer session.
	ConfirmedVersion int

	// RegeneratedAt is the stamp captured when a regeneration request was
	// dispatched. Zero means no stamp.
	RegeneratedAt time.Time
}

// IsZero reports whether the override changes nothing.
func (o Override) IsZero() bool {
	return o.ConfirmedVersion <= 0 && o.RegeneratedAt.IsZero()
}

// Resolver maps photos to thumbnail URLs.
type Resolver struct {
	baseURL string
}

// NewResolver creates a resolver for the backend at apiURL
// (for example http://localhost:8000).
func NewResolver(apiURL string) *Resolver {
	return &Resolver{baseURL: strings.TrimRight(apiURL, "/")}
}

// BaseURL returns the unversioned URL for id at size.
func (r *Resolver) BaseURL(id int, size Size) string {
	return fmt.Sprintf("%s/api/v1/thumbnails/%d/%s", r.baseURL, id, size)
}

// Resolve returns the URL for p at size. The result depends only on its
// arguments: no clock reads, no I/O. Pass a nil override when the photo has
// no session state.
func (r *Resolver) Resolve(p photo.Record, size Size, o *Override) string {
	u := r.BaseURL(p.ID, size)

	version := p.RotationVersion
	if o != nil && o.ConfirmedVersion > 0 {
		version = o.ConfirmedVersion
	}

	sep := "?"
	if version > 0 {
		u += sep + "v=" + strconv.Itoa(version)
		sep = "&"
	}

	if o != nil && !o.RegeneratedAt.IsZero() {
		u += sep + "_t=" + strconv.FormatInt(o.RegeneratedAt.UnixMilli(), 10)
	}

	return u
}
