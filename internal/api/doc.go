// Package api is a typed client for the photo library backend REST API.
//
// All endpoints live under /api/v1 of the configured base URL. Every request
// carries a fresh X-Request-ID header and passes through a client-side rate
// limiter before it is sent. Non-2xx responses are returned as *StatusError,
// which matches ErrNotFound and ErrServer through errors.Is.
//
// Basic usage:
//
//	client := api.New("http://localhost:8000", api.WithRateLimit(20, 10))
//	page, err := client.ListPhotos(ctx, api.ListOptions{Page: 1, PerPage: 100})
package api
