package rotation

import (
	"bokeh-viewer/internal/photo"
	"bokeh-viewer/internal/thumbnail"
)

// Override is the session state for one photo.
type Override struct {
	// Pending is the optimistic rotation shown until the server answers.
	Pending    int
	HasPending bool

	// Confirmed is the last state returned by a successful request.
	Confirmed    photo.RotationState
	HasConfirmed bool
}

// Display returns the rotation to render, or false when the override holds
// nothing and the gallery record decides.
func (o Override) Display() (int, bool) {
	if o.HasPending {
		return o.Pending, true
	}
	if o.HasConfirmed {
		return o.Confirmed.FinalRotation, true
	}
	return 0, false
}

// Thumbnail converts the override to the resolver's input.
func (o Override) Thumbnail() thumbnail.Override {
	if !o.HasConfirmed {
		return thumbnail.Override{}
	}
	return thumbnail.Override{ConfirmedVersion: o.Confirmed.Version}
}
