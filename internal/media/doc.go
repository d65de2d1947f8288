// Package media loads, decodes and prepares thumbnail images for display.
//
// Loader fetches image bytes by URL through the local image cache, retrying
// transient failures (404 while a thumbnail is being regenerated, 5xx,
// connection resets) with exponential backoff before giving up with
// ErrUnavailable. Decode and Preview turn the bytes into a rotated image
// scaled to the terminal.
package media
