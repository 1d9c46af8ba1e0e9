package worksheet

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// SVGPainter renders a document as a standalone SVG image.
type SVGPainter struct {
	builder strings.Builder
	depth   int
}

var _ Painter = (*SVGPainter)(nil)

// RenderSVG returns the SVG image of the document.
func RenderSVG(d *Document) []byte {
	var p SVGPainter
	Render(d, &p)
	return []byte(p.String())
}

func (p *SVGPainter) String() string { return p.builder.String() }

func (p *SVGPainter) Begin(c Canvas) {
	p.builder.Reset()
	p.builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	p.builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatFloat(c.Width), formatFloat(c.Height), formatFloat(c.Width), formatFloat(c.Height)))
	p.builder.WriteString("\n")
	if c.Background != "" {
		p.line(fmt.Sprintf(`<rect width="100%%" height="100%%" fill="%s"/>`, attr(c.Background)))
	}
}

func (p *SVGPainter) BeginElement(el Element) {
	p.line(fmt.Sprintf(`<g id="%s" data-kind="%s">`, attr(el.ID), attr(el.Kind())))
	p.depth++
}

func (p *SVGPainter) EndElement(Element) {
	p.depth--
	p.line(`</g>`)
}

func (p *SVGPainter) End() {
	p.builder.WriteString(`</svg>`)
	p.builder.WriteString("\n")
}

func (p *SVGPainter) DrawShape(s Shape) {
	style := styleAttrs(s.Style)
	switch s.Kind {
	case KindRectangle:
		p.line(fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" %s/>`,
			formatFloat(s.Position.X), formatFloat(s.Position.Y), formatFloat(s.Width), formatFloat(s.Height), style))
	case KindCircle:
		p.line(fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s" %s/>`,
			formatFloat(s.Position.X), formatFloat(s.Position.Y), formatFloat(s.Radius), style))
	case KindTriangle:
		pts := []Point{
			{X: s.Position.X + s.Width/2, Y: s.Position.Y},
			{X: s.Position.X + s.Width, Y: s.Position.Y + s.Height},
			{X: s.Position.X, Y: s.Position.Y + s.Height},
		}
		p.line(fmt.Sprintf(`<polygon points="%s" %s/>`, formatPoints(pts), style))
	case KindLine:
		if len(s.Points) != 2 {
			return
		}
		a, b := s.Position.Add(s.Points[0]), s.Position.Add(s.Points[1])
		p.line(fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s" %s/>`,
			formatFloat(a.X), formatFloat(a.Y), formatFloat(b.X), formatFloat(b.Y), style))
	case KindPolygon:
		pts := make([]Point, len(s.Points))
		for i, pt := range s.Points {
			pts[i] = s.Position.Add(pt)
		}
		p.line(fmt.Sprintf(`<polygon points="%s" %s/>`, formatPoints(pts), style))
	case KindPath:
		p.line(fmt.Sprintf(`<path transform="translate(%s %s)" d="%s" %s/>`,
			formatFloat(s.Position.X), formatFloat(s.Position.Y), attr(s.Path), style))
	case KindText:
		p.text(s.Position, s.Text, s.FontSize, s.FontFamily, s.FontWeight, s.Style)
	}
}

func (p *SVGPainter) DrawLabel(l Label) {
	p.text(l.Position, l.Text, l.FontSize, l.FontFamily, l.FontWeight, l.Style)
}

// text positions the top of the text box at pos, like the other kinds.
func (p *SVGPainter) text(pos Point, s string, size float64, family, weight string, style Style) {
	attrs := []string{
		fmt.Sprintf(`x="%s" y="%s"`, formatFloat(pos.X), formatFloat(pos.Y)),
		`dominant-baseline="hanging"`,
		fmt.Sprintf(`font-size="%s"`, formatFloat(size)),
	}
	if family != "" {
		attrs = append(attrs, fmt.Sprintf(`font-family="%s"`, attr(family)))
	}
	if weight != "" {
		attrs = append(attrs, fmt.Sprintf(`font-weight="%s"`, attr(weight)))
	}
	attrs = append(attrs, styleAttrs(style))
	p.line(fmt.Sprintf(`<text %s>%s</text>`, strings.Join(attrs, " "), html.EscapeString(s)))
}

func (p *SVGPainter) line(s string) {
	p.builder.WriteString(strings.Repeat("  ", p.depth+1))
	p.builder.WriteString(s)
	p.builder.WriteString("\n")
}

func styleAttrs(s Style) string {
	parts := []string{fmt.Sprintf(`fill="%s"`, attr(NormalizeFill(s.Fill)))}
	if s.Stroke != "" {
		parts = append(parts, fmt.Sprintf(`stroke="%s"`, attr(s.Stroke)))
	}
	if s.StrokeWidth > 0 {
		parts = append(parts, fmt.Sprintf(`stroke-width="%s"`, formatFloat(s.StrokeWidth)))
	}
	return strings.Join(parts, " ")
}

func attr(s string) string { return html.EscapeString(s) }

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func formatPoints(pts []Point) string {
	out := make([]string, len(pts))
	for i, pt := range pts {
		out[i] = formatFloat(pt.X) + "," + formatFloat(pt.Y)
	}
	return strings.Join(out, " ")
}
