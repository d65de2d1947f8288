// Package terminal hosts the viewer in a raw-mode terminal.
//
// Screen switches the terminal to raw mode and back, Decode turns input
// bytes into viewer key presses, and RenderImage draws an image with
// half-block characters in 24-bit color, two pixel rows per text row.
package terminal
