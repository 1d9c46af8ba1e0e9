package worksheet

// Compound is a named group of shapes sharing one anchor. Part positions are
// relative to Anchor, so moving the anchor moves every part by the same delta.
//
// Compounds can only be translated. Scaling a placed compound is not
// supported: parts keep the geometry of their catalog entry.
type Compound struct {
	Name   string  `json:"name,omitempty"`
	Anchor Point   `json:"anchor"`
	Parts  []Shape `json:"parts"`
}

var _ Body = (*Compound)(nil) // interface compliance check

func (c *Compound) Type() ElementType { return TypeCompound }

func (c *Compound) Origin() Point { return c.Anchor }

func (c *Compound) moveTo(p Point) { c.Anchor = p }

// fill restores part i to PaletteColorFor(i) so that colouring a compound is
// deterministic for a given part order.
func (c *Compound) fill(mode FillMode) {
	for i := range c.Parts {
		if mode == FillOutline {
			c.Parts[i].Style.Fill = NoFill
		} else {
			c.Parts[i].Style.Fill = PaletteColorFor(i)
		}
	}
}

func (c *Compound) normalize() {
	for i := range c.Parts {
		c.Parts[i].normalize()
	}
}

func (c *Compound) clone() Body {
	cc := *c
	cc.Parts = make([]Shape, len(c.Parts))
	for i, p := range c.Parts {
		cc.Parts[i] = p.copy()
	}
	return &cc
}

// AbsoluteParts returns the parts translated to canvas coordinates.
func (c *Compound) AbsoluteParts() []Shape {
	parts := make([]Shape, len(c.Parts))
	for i, p := range c.Parts {
		p = p.copy()
		p.Position = c.Anchor.Add(p.Position)
		parts[i] = p
	}
	return parts
}
