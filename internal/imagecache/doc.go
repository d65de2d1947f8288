// Package imagecache is a local SQLite store of image bytes keyed by URL.
//
// It plays the part of an HTTP cache for the viewer: a URL that was fetched
// once is served locally until evicted. Thumbnail URLs carry the rotation
// version and regeneration stamp, so a changed thumbnail is a different key
// and never collides with a stale entry.
//
// Entries are keyed by the BLAKE2b-256 digest of the URL and carry a digest
// of their bytes; an entry whose bytes no longer match is dropped on read.
// When the total stored size exceeds the configured maximum, the least
// recently used entries are evicted.
package imagecache
