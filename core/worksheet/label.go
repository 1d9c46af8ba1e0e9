package worksheet

import "strings"

// Label is a standalone block of text placed on the canvas.
type Label struct {
	Position   Point   `json:"position"`
	Text       string  `json:"text"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"`
	Style      Style   `json:"style"`
}

var _ Body = (*Label)(nil) // interface compliance check

func (l *Label) Type() ElementType { return TypeLabel }

func (l *Label) Origin() Point { return l.Position }

func (l *Label) moveTo(p Point) { l.Position = p }

func (l *Label) fill(mode FillMode) {
	if mode == FillOutline {
		l.Style.Fill = NoFill
		return
	}
	l.Style.Fill = PaletteColorFor(0)
}

func (l *Label) normalize() { l.Style = l.Style.normalized() }

func (l *Label) clone() Body {
	c := *l
	return &c
}

func (l Label) problem() string {
	if strings.TrimSpace(l.Text) == "" {
		return "label requires non-empty text"
	}
	if l.FontSize <= 0 {
		return "label requires a positive font size"
	}
	return ""
}

// AsShape returns the label as a text Shape, for painters that only know
// primitives.
func (l *Label) AsShape() Shape {
	return Shape{
		Kind:       KindText,
		Position:   l.Position,
		Text:       l.Text,
		FontSize:   l.FontSize,
		FontFamily: l.FontFamily,
		FontWeight: l.FontWeight,
		Style:      l.Style,
	}
}
