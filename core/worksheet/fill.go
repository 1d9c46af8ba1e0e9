package worksheet

import (
	"strings"

	"github.com/pkg/errors"
)

type FillMode string

const (
	FillOutline FillMode = "outline"
	FillFilled  FillMode = "filled"
)

func ParseFillMode(s string) (FillMode, error) {
	switch FillMode(strings.ToLower(strings.TrimSpace(s))) {
	case FillOutline:
		return FillOutline, nil
	case FillFilled:
		return FillFilled, nil
	}
	return "", errors.Errorf("invalid fill mode %q: must be %q or %q", s, FillOutline, FillFilled)
}

// palette is the fixed set of colours used when filling shapes back in.
var palette = [...]string{
	"#f87171", // red
	"#fbbf24", // amber
	"#34d399", // green
	"#60a5fa", // blue
	"#a78bfa", // violet
	"#f472b6", // pink
	"#fb923c", // orange
	"#a3e635", // lime
}

// PaletteColorFor returns the fill colour for the part at partIndex.
func PaletteColorFor(partIndex int) string {
	n := len(palette)
	return palette[((partIndex%n)+n)%n]
}

// PaletteSize is the number of distinct palette colours.
func PaletteSize() int { return len(palette) }
