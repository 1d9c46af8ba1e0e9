package worksheet

// Painter is a drawing surface. Render calls BeginElement and EndElement
// around every top-level element; all parts of a compound are drawn between
// one such pair.
type Painter interface {
	Begin(canvas Canvas)
	BeginElement(el Element)
	DrawShape(s Shape)
	DrawLabel(l Label)
	EndElement(el Element)
	End()
}

// Render paints the document in zOrder.
func Render(d *Document, p Painter) {
	p.Begin(d.Canvas)
	for _, el := range d.elements {
		p.BeginElement(el)
		switch b := el.Body.(type) {
		case *Shape:
			p.DrawShape(b.copy())
		case *Compound:
			for _, part := range b.AbsoluteParts() {
				p.DrawShape(part)
			}
		case *Label:
			p.DrawLabel(*b)
		}
		p.EndElement(el)
	}
	p.End()
}
