package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/viewer"
)

// ErrNotTerminal is returned when stdin is not a terminal.
var ErrNotTerminal = errors.New("not a terminal")

// Screen is a terminal in raw mode.
type Screen struct {
	in    *os.File
	out   io.Writer
	state *term.State
}

// Open puts in into raw mode. Close must be called to restore it.
func Open(in *os.File, out io.Writer) (*Screen, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	if _, err := io.WriteString(out, HideCursor+ClearScreen+CursorHome); err != nil {
		logging.Warn("Failed to clear screen: %v", err)
	}
	return &Screen{in: in, out: out, state: state}, nil
}

// Close restores the terminal.
func (s *Screen) Close() error {
	_, _ = io.WriteString(s.out, ResetStyle+ClearScreen+CursorHome+ShowCursor)
	return term.Restore(int(s.in.Fd()), s.state)
}

// Size returns the terminal width and height in cells, falling back to
// 80×24 when it cannot be read.
func (s *Screen) Size() (int, int) {
	w, h, err := term.GetSize(int(s.in.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return 80, 24
	}
	return w, h
}

// Draw writes a frame.
func (s *Screen) Draw(f *Frame) error {
	_, err := f.WriteTo(s.out)
	return err
}

// Keys reads key presses until ctx is done or input ends. The channel is
// closed when reading stops. The reading goroutine stays blocked in Read
// until the next key after cancellation.
func (s *Screen) Keys(ctx context.Context) <-chan viewer.Key {
	return ReadKeys(ctx, s.in)
}

// ReadKeys decodes key presses from r.
func ReadKeys(ctx context.Context, r io.Reader) <-chan viewer.Key {
	out := make(chan viewer.Key, 16)
	go func() {
		defer close(out)
		buf := make([]byte, 64)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, k := range Decode(buf[:n]) {
					select {
					case out <- k:
					case <-ctx.Done():
						return
					}
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logging.Debug("Key reader stopped: %v", err)
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return out
}
