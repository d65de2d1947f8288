// Package photo defines the client-side photo model shared by every view:
// the record returned by the backend, rotation normalization, and the
// timestamp format the backend emits.
//
// A Record's Width and Height always describe the unrotated source image.
// FinalRotation is the persisted rotation and RotationVersion is the
// server-maintained counter used as a cache-busting key for derived images.
package photo
