package worksheet

import (
	"fmt"
	"strings"
)

// Shape is a single primitive drawable.
//
// Position is the top-left corner for rectangles, triangles and text, the
// centre for circles and the origin of Points for lines and polygons.
// Paths are drawn translated by Position.
type Shape struct {
	Kind       Kind    `json:"kind"`
	Position   Point   `json:"position"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	Radius     float64 `json:"radius,omitempty"`
	Points     []Point `json:"points,omitempty"`
	Path       string  `json:"path,omitempty"`
	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"`
	Style      Style   `json:"style"`
}

var _ Body = (*Shape)(nil) // interface compliance check

func (s *Shape) Type() ElementType { return TypeShape }

func (s *Shape) Origin() Point { return s.Position }

func (s *Shape) moveTo(p Point) { s.Position = p }

func (s *Shape) fill(mode FillMode) {
	if mode == FillOutline {
		s.Style.Fill = NoFill
		return
	}
	s.Style.Fill = PaletteColorFor(0)
}

func (s *Shape) normalize() { s.Style = s.Style.normalized() }

func (s *Shape) clone() Body {
	c := s.copy()
	return &c
}

func (s Shape) copy() Shape {
	if s.Points != nil {
		pts := make([]Point, len(s.Points))
		copy(pts, s.Points)
		s.Points = pts
	}
	return s
}

// geometryProblem returns a non-empty reason when the kind-dependent size
// fields are missing or invalid.
func (s Shape) geometryProblem() string {
	switch s.Kind {
	case KindRectangle, KindTriangle:
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Sprintf("%s requires positive width and height", s.Kind)
		}
	case KindCircle:
		if s.Radius <= 0 {
			return "circle requires a positive radius"
		}
	case KindLine:
		if len(s.Points) != 2 {
			return fmt.Sprintf("line requires exactly 2 points, got %d", len(s.Points))
		}
	case KindPolygon:
		if len(s.Points) < 3 {
			return fmt.Sprintf("polygon requires at least 3 points, got %d", len(s.Points))
		}
	case KindPath:
		if strings.TrimSpace(s.Path) == "" {
			return "path requires path data"
		}
	case KindText:
		if strings.TrimSpace(s.Text) == "" {
			return "text requires non-empty text"
		}
		if s.FontSize <= 0 {
			return "text requires a positive font size"
		}
	default:
		return fmt.Sprintf("unknown shape kind %q", s.Kind)
	}
	return ""
}
