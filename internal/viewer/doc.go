// Package viewer implements the full-screen photo viewer session.
//
// A Session walks a fixed list of photo ids. Rotation edits go through a
// rotation.Controller, leaving a photo fires the regeneration scheduler, and
// closing the session flushes outstanding regenerations, merges every
// confirmed rotation into the gallery and drops the session overrides.
//
// The keyboard surface is expressed with Key values so that any host (the
// raw-mode terminal, tests) can drive a session.
package viewer
