// Package thumbnail builds cache-correct image URLs for photos.
//
// A URL is derived from the photo id and a size token. The rotation version
// is appended as ?v= so that every persisted rotation produces a new cache
// key, and a regeneration stamp is appended as _t= while a freshly requested
// regeneration is settling. Stamps are captured once per regeneration event
// and held by Stamps for a grace period, so repeated renders produce the same
// URL.
package thumbnail
