// Package worksheet models a printable early-learning worksheet: primitive
// shapes, compound icons and text labels placed on a fixed-size canvas.
package worksheet

import "strings"

// NoFill is the only representation of "outline only" in a Style.
const NoFill = "none"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Kind is the drawable kind of a primitive Shape.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindTriangle  Kind = "triangle"
	KindLine      Kind = "line"
	KindPolygon   Kind = "polygon"
	KindPath      Kind = "path"
	KindText      Kind = "text"
)

var Kinds = []Kind{KindRectangle, KindCircle, KindTriangle, KindLine, KindPolygon, KindPath, KindText}

func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

type Style struct {
	Fill        string  `json:"fill" validate:"eq=none|hexcolor|rgb|rgba|hsl|hsla"`
	Stroke      string  `json:"stroke,omitempty" validate:"omitempty,hexcolor|rgb|rgba|hsl|hsla"`
	StrokeWidth float64 `json:"strokeWidth,omitempty" validate:"gte=0"`
}

func (s Style) Outlined() bool { return s.Fill == NoFill }

// NormalizeFill maps every legacy spelling of "no fill" onto NoFill.
func NormalizeFill(fill string) string {
	fill = strings.TrimSpace(fill)
	switch strings.ToLower(fill) {
	case "", NoFill, "transparent", "null":
		return NoFill
	}
	return fill
}

func (s Style) normalized() Style {
	s.Fill = NormalizeFill(s.Fill)
	s.Stroke = strings.TrimSpace(s.Stroke)
	return s
}
