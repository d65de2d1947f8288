// Package rotation owns per-photo rotation edits during a viewer session.
//
// Rotate applies the new angle optimistically, persists it with a PATCH
// request and, on success, merges the confirmed version into the gallery
// and marks the photo dirty for thumbnail regeneration. Requests for the
// same photo never overlap: a press while one is outstanding is dropped and
// reported as ErrInFlight. Different photos rotate independently.
//
// Per photo the controller moves through
//
//	Clean -> Rotating -> Dirty -> Clean
//
// where the final transition happens when the regeneration scheduler
// dispatches the photo.
package rotation
