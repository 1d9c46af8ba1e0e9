package worksheet

type ElementType string

const (
	TypeShape    ElementType = "shape"
	TypeCompound ElementType = "compound"
	TypeLabel    ElementType = "label"
)

// Body is the drawable content of an Element: *Shape, *Compound or *Label.
type Body interface {
	Type() ElementType
	// Origin is the position of a shape or label, or the anchor of a compound.
	Origin() Point

	moveTo(p Point)
	fill(mode FillMode)
	normalize()
	clone() Body
}

// Element is a placed drawable with a document-unique ID and a paint order.
type Element struct {
	ID     string
	ZOrder int
	Body   Body
}

func NewShapeElement(s Shape) Element       { return Element{Body: &s} }
func NewCompoundElement(c Compound) Element { return Element{Body: &c} }
func NewLabelElement(l Label) Element       { return Element{Body: &l} }

func (el Element) Type() ElementType {
	if el.Body == nil {
		return ""
	}
	return el.Body.Type()
}

// Kind is the serialized union tag: the primitive kind for shapes,
// "compound" or "label" otherwise.
func (el Element) Kind() string {
	switch b := el.Body.(type) {
	case *Shape:
		return string(b.Kind)
	case *Compound:
		return string(TypeCompound)
	case *Label:
		return string(TypeLabel)
	}
	return ""
}

func (el Element) Shape() (*Shape, bool) {
	s, ok := el.Body.(*Shape)
	return s, ok
}

func (el Element) Compound() (*Compound, bool) {
	c, ok := el.Body.(*Compound)
	return c, ok
}

func (el Element) Label() (*Label, bool) {
	l, ok := el.Body.(*Label)
	return l, ok
}

// Clone returns a deep copy; mutating the copy never affects the original.
func (el Element) Clone() Element {
	if el.Body != nil {
		el.Body = el.Body.clone()
	}
	return el
}

func (el Element) MarshalJSON() ([]byte, error) {
	rec, err := encodeElement(el)
	if err != nil {
		return nil, err
	}
	return jsonMarshal(rec)
}
