// Package regen schedules thumbnail regeneration for rotated photos.
//
// A confirmed rotation marks the photo dirty. Regeneration is requested when
// the user leaves the photo (navigation or closing the viewer), at most once
// per dirty mark. Requests are fire and forget: navigation never waits on
// them, failures are logged and counted, and the dirty flag is not restored.
package regen
