package thumbnail

import (
	"fmt"
	"strings"
)

// Size is a thumbnail size token understood by the backend.
type Size string

const (
	SizeSmall  Size = "150"
	SizeMedium Size = "400"
	SizeLarge  Size = "1200"
	SizeFull   Size = "full"
)

// Sizes lists every size token, smallest first.
var Sizes = []Size{SizeSmall, SizeMedium, SizeLarge, SizeFull}

// ParseSize accepts a size token, also allowing the aliases small, medium
// and large.
func ParseSize(s string) (Size, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "150", "small":
		return SizeSmall, nil
	case "400", "medium":
		return SizeMedium, nil
	case "1200", "large":
		return SizeLarge, nil
	case "full", "original":
		return SizeFull, nil
	default:
		return "", fmt.Errorf("unknown thumbnail size %q", s)
	}
}

// Pixels returns the longest edge for the size, or 0 for full resolution.
func (s Size) Pixels() int {
	switch s {
	case SizeSmall:
		return 150
	case SizeMedium:
		return 400
	case SizeLarge:
		return 1200
	default:
		return 0
	}
}

// ForEdge picks the smallest size whose longest edge covers px pixels.
func ForEdge(px int) Size {
	for _, s := range Sizes {
		if p := s.Pixels(); p > 0 && px <= p {
			return s
		}
	}
	return SizeFull
}
