package worksheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_entries(t *testing.T) {
	reg := DefaultRegistry()
	at := Point{X: 42, Y: 24}

	for _, e := range reg.Entries() {
		t.Run(e.Identifier, func(t *testing.T) {
			if e.Name == "" {
				t.Errorf("entry has no display name")
			}
			a := e.Build(at)
			b := e.Build(at)
			assert.Equal(t, a, b, "Build must be pure")
			assert.Empty(t, a.ID)
			assert.Equal(t, at, a.Body.Origin())

			switch e.Category {
			case CategoryIcon:
				c, ok := a.Compound()
				require.True(t, ok, "icons build compounds")
				assert.Equal(t, e.Identifier, c.Name)
				assert.NotEmpty(t, c.Parts)
			case CategoryText:
				_, ok := a.Label()
				assert.True(t, ok, "text entries build labels")
			case CategoryShape:
				_, ok := a.Shape()
				assert.True(t, ok, "shape entries build shapes")
			default:
				t.Errorf("unknown category %q", e.Category)
			}
		})
	}
}

func TestDefaultRegistry_buildDoesNotShareState(t *testing.T) {
	reg := DefaultRegistry()
	el, err := reg.Build("star", Point{})
	require.NoError(t, err)

	s, _ := el.Shape()
	s.Points[0] = Point{X: -1, Y: -1}

	again, err := reg.Build("star", Point{})
	require.NoError(t, err)
	s2, _ := again.Shape()
	assert.Equal(t, Point{X: 50, Y: 0}, s2.Points[0])
}

func TestDefaultRegistry_house(t *testing.T) {
	el, err := DefaultRegistry().Build("house", Point{X: 200, Y: 200})
	require.NoError(t, err)

	c, ok := el.Compound()
	require.True(t, ok)
	require.Len(t, c.Parts, 3)

	body, roof, door := c.Parts[0], c.Parts[1], c.Parts[2]
	assert.Equal(t, KindRectangle, body.Kind)
	assert.Equal(t, KindPolygon, roof.Kind)
	assert.Len(t, roof.Points, 3)
	assert.Equal(t, KindRectangle, door.Kind)
	assert.Less(t, door.Width, body.Width)
}

func TestRegistry_Lookup(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name     string
		id       string
		wantMiss bool
	}{
		{name: "primitive", id: "circle"},
		{name: "icon", id: "house"},
		{name: "text", id: "text_bold"},
		{name: "unknown", id: "dragon", wantMiss: true},
		{name: "empty", id: "", wantMiss: true},
		{name: "case sensitive", id: "House", wantMiss: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := reg.Lookup(tt.id)
			if tt.wantMiss {
				if !IsRegistryMiss(err) {
					t.Errorf("Lookup(%q) err = %v; want RegistryMissError", tt.id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) err = %v", tt.id, err)
			}
			if e.Identifier != tt.id {
				t.Errorf("Lookup(%q) = %q", tt.id, e.Identifier)
			}
		})
	}
}

func TestRegistry_Build_miss(t *testing.T) {
	el, err := DefaultRegistry().Build("dragon", Point{X: 3, Y: 4})
	var miss *RegistryMissError
	require.ErrorAs(t, err, &miss)
	assert.Equal(t, "dragon", miss.Identifier)
	assert.Equal(t, Placeholder(Point{X: 3, Y: 4}), el)
}

func TestNewRegistry_invalid(t *testing.T) {
	sq := rect(0, 0, 10, 10, "#ffffff")

	tests := []struct {
		name    string
		entries []Entry
	}{
		{name: "no identifier", entries: []Entry{{Shape: &sq}}},
		{name: "duplicate", entries: []Entry{{Identifier: "a", Shape: &sq}, {Identifier: "a", Shape: &sq}}},
		{name: "no geometry", entries: []Entry{{Identifier: "a"}}},
		{name: "two geometries", entries: []Entry{{Identifier: "a", Shape: &sq, Parts: []Shape{sq}}}},
		{name: "empty compound", entries: []Entry{{Identifier: "a", Parts: []Shape{}}}},
		{name: "bad part", entries: []Entry{{Identifier: "a", Parts: []Shape{{Kind: KindCircle}}}}},
		{name: "empty label", entries: []Entry{{Identifier: "a", Label: &Label{FontSize: 10}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.entries...); err == nil {
				t.Errorf("NewRegistry() err = nil; want error")
			}
		})
	}
}
