package worksheet

import (
	"sync"

	"github.com/pkg/errors"
)

type Category string

const (
	CategoryShape Category = "shape"
	CategoryIcon  Category = "icon"
	CategoryText  Category = "text"
)

// Entry is one row of the element catalog. Exactly one of Shape, Parts or
// Label holds the geometry template; template positions are relative to the
// placement point.
type Entry struct {
	Identifier string
	Name       string
	Category   Category
	Shape      *Shape
	Parts      []Shape
	Label      *Label
}

// Build returns a new element placed at the given point. The element has no
// ID; Document.Add assigns one.
func (e Entry) Build(at Point) Element {
	switch {
	case e.Shape != nil:
		s := e.Shape.copy()
		s.Position = at.Add(s.Position)
		return NewShapeElement(s)
	case e.Label != nil:
		l := *e.Label
		l.Position = at.Add(l.Position)
		return NewLabelElement(l)
	default:
		c := Compound{Name: e.Identifier, Anchor: at, Parts: make([]Shape, len(e.Parts))}
		for i, p := range e.Parts {
			c.Parts[i] = p.copy()
		}
		return NewCompoundElement(c)
	}
}

func (e Entry) validate() error {
	set := 0
	if e.Shape != nil {
		set++
		if reason := e.Shape.geometryProblem(); reason != "" {
			return errors.Errorf("%s: %s", e.Identifier, reason)
		}
	}
	if e.Label != nil {
		set++
		if reason := e.Label.problem(); reason != "" {
			return errors.Errorf("%s: %s", e.Identifier, reason)
		}
	}
	if e.Parts != nil {
		set++
		if len(e.Parts) == 0 {
			return errors.Errorf("%s: compound has no parts", e.Identifier)
		}
		for i, p := range e.Parts {
			if reason := p.geometryProblem(); reason != "" {
				return errors.Errorf("%s: part %d: %s", e.Identifier, i, reason)
			}
		}
	}
	if set != 1 {
		return errors.Errorf("%s: exactly one of shape, parts or label must be set", e.Identifier)
	}
	return nil
}

// Registry maps catalog identifiers to entries. It is immutable once built
// and safe for concurrent use.
type Registry struct {
	entries map[string]Entry
	order   []string
}

func NewRegistry(entries ...Entry) (*Registry, error) {
	reg := &Registry{
		entries: make(map[string]Entry, len(entries)),
		order:   make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		if e.Identifier == "" {
			return nil, errors.New("catalog entry without identifier")
		}
		if _, dup := reg.entries[e.Identifier]; dup {
			return nil, errors.Errorf("duplicate catalog identifier %q", e.Identifier)
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		reg.entries[e.Identifier] = e
		reg.order = append(reg.order, e.Identifier)
	}
	return reg, nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry built from the static catalog.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		reg, err := NewRegistry(catalog...)
		if err != nil {
			panic(err)
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

func (r *Registry) Lookup(identifier string) (Entry, error) {
	e, ok := r.entries[identifier]
	if !ok {
		return Entry{}, &RegistryMissError{Identifier: identifier}
	}
	return e, nil
}

// Build constructs identifier at the given point. On a miss it returns the
// placeholder element together with a *RegistryMissError.
func (r *Registry) Build(identifier string, at Point) (Element, error) {
	e, err := r.Lookup(identifier)
	if err != nil {
		return Placeholder(at), err
	}
	return e.Build(at), nil
}

func (r *Registry) Identifiers() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Entries returns the catalog in table order.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.entries[id])
	}
	return entries
}

// Placeholder is the element substituted for an unknown identifier.
func Placeholder(at Point) Element {
	return NewShapeElement(Shape{
		Kind:     KindRectangle,
		Position: at,
		Width:    80,
		Height:   80,
		Style:    Style{Fill: NoFill, Stroke: "#9ca3af", StrokeWidth: 2},
	})
}
