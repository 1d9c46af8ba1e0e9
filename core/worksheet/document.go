package worksheet

import "github.com/google/uuid"

func defaultNewID() string { return uuid.New().String() }

var newID = defaultNewID // mockable

type Canvas struct {
	Width      float64 `json:"width" validate:"gt=0"`
	Height     float64 `json:"height" validate:"gt=0"`
	Background string  `json:"backgroundColor" validate:"omitempty,eq=none|hexcolor|rgb|rgba|hsl|hsla"`
}

// Document is an ordered collection of placed elements on a canvas.
// Element order is paint order and always matches ascending ZOrder.
//
// A Document is owned by a single editor at a time; it is not safe for
// concurrent mutation.
type Document struct {
	Canvas Canvas
	// Outline makes Place create every new element as an outline.
	Outline bool

	elements []Element
	index    map[string]int
	nextZ    int
}

func New(canvas Canvas) *Document {
	return &Document{Canvas: canvas, index: make(map[string]int)}
}

func (d *Document) Len() int { return len(d.elements) }

// Elements returns a deep copy of the elements in paint order.
func (d *Document) Elements() []Element {
	els := make([]Element, len(d.elements))
	for i, el := range d.elements {
		els[i] = el.Clone()
	}
	return els
}

func (d *Document) Element(id string) (Element, bool) {
	i, ok := d.index[id]
	if !ok {
		return Element{}, false
	}
	return d.elements[i].Clone(), true
}

// Add appends el, giving it the next ZOrder. A fresh ID is assigned when el
// has none or its ID is already taken. The stored element is returned.
func (d *Document) Add(el Element) Element {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if el.Body == nil {
		el.Body = Placeholder(Point{}).Body
	}
	el = el.Clone()
	el.Body.normalize()
	if _, taken := d.index[el.ID]; el.ID == "" || taken {
		el.ID = newID()
	}
	el.ZOrder = d.nextZ
	d.nextZ++

	d.index[el.ID] = len(d.elements)
	d.elements = append(d.elements, el)
	return el.Clone()
}

// Place builds identifier from reg at the given position and adds it. When
// the document is in outline mode the element is outlined before insertion.
// On a registry miss the placeholder is added and the *RegistryMissError is
// returned with it.
func (d *Document) Place(reg *Registry, identifier string, at Point) (Element, error) {
	el, err := reg.Build(identifier, at)
	if d.Outline {
		el.Body.fill(FillOutline)
	}
	return d.Add(el), err
}

// Remove deletes the element with the given ID. Removing an absent ID is a no-op.
func (d *Document) Remove(id string) {
	i, ok := d.index[id]
	if !ok {
		return
	}
	d.elements = append(d.elements[:i], d.elements[i+1:]...)
	d.reindex()
}

// Clear removes every element; the canvas is left untouched.
func (d *Document) Clear() {
	d.elements = nil
	d.index = make(map[string]int)
}

// ToggleFill switches an element between outline and filled presentation.
// For a compound every part is switched, using PaletteColorFor(partIndex)
// when filling.
func (d *Document) ToggleFill(id string, mode FillMode) error {
	i, ok := d.index[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	d.elements[i].Body.fill(mode)
	return nil
}

// Move translates an element so that its origin (position or anchor) is at.
func (d *Document) Move(id string, at Point) error {
	i, ok := d.index[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	d.elements[i].Body.moveTo(at)
	return nil
}

func (d *Document) reindex() {
	d.index = make(map[string]int, len(d.elements))
	for i, el := range d.elements {
		d.index[el.ID] = i
	}
}
