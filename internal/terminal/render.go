package terminal

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"
)

// ANSI control sequences.
const (
	ClearScreen = "\x1b[2J"
	CursorHome  = "\x1b[H"
	HideCursor  = "\x1b[?25l"
	ShowCursor  = "\x1b[?25h"
	ResetStyle  = "\x1b[0m"
	ClearLine   = "\x1b[2K"
	Bold        = "\x1b[1m"
	Dim         = "\x1b[2m"
	Reverse     = "\x1b[7m"
)

const upperHalf = "▀"

// MoveTo returns the sequence placing the cursor at 1-based row and col.
func MoveTo(row, col int) string {
	return fmt.Sprintf("\x1b[%d;%dH", row, col)
}

// CellSize returns how many text rows and columns img occupies.
func CellSize(img image.Image) (cols, rows int) {
	b := img.Bounds()
	return b.Dx(), (b.Dy() + 1) / 2
}

// RenderImage draws img at 1-based row and col. Each cell shows the upper
// pixel as foreground and the lower pixel as background of "▀". An odd last
// row uses the default background.
func RenderImage(w io.Writer, img image.Image, row, col int) error {
	bw := bufio.NewWriter(w)
	b := img.Bounds()

	line := 0
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if _, err := bw.WriteString(MoveTo(row+line, col)); err != nil {
			return err
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			tr, tg, tb := rgb(img.At(x, y))
			if y+1 < b.Max.Y {
				br, bg, bb := rgb(img.At(x, y+1))
				fmt.Fprintf(bw, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm%s", tr, tg, tb, br, bg, bb, upperHalf)
			} else {
				fmt.Fprintf(bw, "\x1b[38;2;%d;%d;%dm\x1b[49m%s", tr, tg, tb, upperHalf)
			}
		}
		if _, err := bw.WriteString(ResetStyle); err != nil {
			return err
		}
		line++
	}
	return bw.Flush()
}

func rgb(c color.Color) (uint8, uint8, uint8) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0 {
		return 0, 0, 0
	}
	return n.R, n.G, n.B
}

// Frame collects one screen update.
type Frame struct {
	b strings.Builder
}

// NewFrame starts a frame that clears the screen.
func NewFrame() *Frame {
	f := &Frame{}
	f.b.WriteString(HideCursor + ResetStyle + ClearScreen + CursorHome)
	return f
}

// Text writes s at row and col, cut to width columns when width > 0.
func (f *Frame) Text(row, col, width int, s string) {
	if width > 0 {
		s = truncate(s, width)
	}
	f.b.WriteString(MoveTo(row, col))
	f.b.WriteString(s)
}

// StyledText writes s like Text, wrapped in style and a reset.
func (f *Frame) StyledText(row, col, width int, style, s string) {
	if width > 0 {
		s = truncate(s, width)
	}
	f.b.WriteString(MoveTo(row, col))
	f.b.WriteString(style)
	f.b.WriteString(s)
	f.b.WriteString(ResetStyle)
}

// Image draws img at row and col.
func (f *Frame) Image(row, col int, img image.Image) {
	_ = RenderImage(&f.b, img, row, col)
}

// WriteTo flushes the frame to w.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, f.b.String())
	return int64(n), err
}

// String returns the frame contents.
func (f *Frame) String() string {
	return f.b.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
