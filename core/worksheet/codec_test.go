package worksheet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_circle(t *testing.T) {
	d := New(testCanvas)
	added := d.Add(newTestCircle())

	data, err := Encode(d)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, testCanvas, got.Canvas)
	els := got.Elements()
	require.Len(t, els, 1)
	assert.Equal(t, "circle", els[0].Kind())
	assert.Equal(t, added.ID, els[0].ID)
	assert.Equal(t, added.ZOrder, els[0].ZOrder)

	s, ok := els[0].Shape()
	require.True(t, ok)
	assert.Equal(t, Shape{
		Kind:     KindCircle,
		Position: Point{X: 100, Y: 100},
		Radius:   40,
		Style:    Style{Fill: NoFill, Stroke: "#2563eb", StrokeWidth: 2},
	}, *s)
}

func TestEncodeDecode_wholeCatalog(t *testing.T) {
	reg := DefaultRegistry()
	d := New(testCanvas)
	d.Outline = true
	for i, id := range reg.Identifiers() {
		_, err := d.Place(reg, id, Point{X: float64(i * 7), Y: float64(i * 3)})
		require.NoError(t, err)
	}
	first := d.Elements()[0]
	d.Remove(first.ID)
	require.NoError(t, d.ToggleFill(d.Elements()[3].ID, FillFilled))

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var got Document
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, d.Canvas, got.Canvas)
	assert.Equal(t, d.Outline, got.Outline)
	assert.Equal(t, d.Elements(), got.Elements())

	next := got.Add(newTestCircle())
	last := d.Elements()[d.Len()-1]
	assert.Equal(t, last.ZOrder+1, next.ZOrder, "next zOrder must follow the decoded ones")
}

func TestDecode_unknownKind(t *testing.T) {
	blob := []byte(`{
		"version": 1,
		"canvas": {"width": 1200, "height": 800, "backgroundColor": "#ffffff"},
		"elements": [
			{"id": "a1", "zOrder": 0, "kind": "unknown_shape_xyz", "position": {"x": 1, "y": 2}, "style": {"fill": "none"}}
		]
	}`)

	d, err := Decode(blob)
	require.Error(t, err)
	assert.Nil(t, d)
	assert.True(t, IsCorrupt(err))

	var cerr *CorruptDocumentError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Problems, 1)
	assert.Equal(t, 0, cerr.Problems[0].Index)
	assert.Equal(t, "a1", cerr.Problems[0].ID)
	assert.Equal(t, "unknown_shape_xyz", cerr.Problems[0].Kind)

	empty, err := Decode([]byte(`{"version":1,"canvas":{"width":10,"height":10},"elements":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestDecode_corrupt(t *testing.T) {
	wrap := func(elements string) []byte {
		return []byte(`{"version":1,"canvas":{"width":100,"height":100},"elements":[` + elements + `]}`)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "invalid json", data: []byte(`{"version":`)},
		{name: "missing version", data: []byte(`{"canvas":{"width":100,"height":100},"elements":[]}`)},
		{name: "future version", data: []byte(`{"version":2,"canvas":{"width":100,"height":100},"elements":[]}`)},
		{name: "zero canvas", data: []byte(`{"version":1,"canvas":{"width":0,"height":100},"elements":[]}`)},
		{name: "bad background", data: []byte(`{"version":1,"canvas":{"width":10,"height":10,"backgroundColor":"nope"},"elements":[]}`)},
		{name: "missing id", data: wrap(`{"zOrder":0,"kind":"circle","radius":3,"style":{"fill":"none"}}`)},
		{name: "missing kind", data: wrap(`{"id":"a","zOrder":0,"radius":3,"style":{"fill":"none"}}`)},
		{name: "circle without radius", data: wrap(`{"id":"a","zOrder":0,"kind":"circle","style":{"fill":"none"}}`)},
		{name: "rectangle without height", data: wrap(`{"id":"a","zOrder":0,"kind":"rectangle","width":3,"style":{"fill":"none"}}`)},
		{name: "line with one point", data: wrap(`{"id":"a","zOrder":0,"kind":"line","points":[{"x":1,"y":1}],"style":{"fill":"none"}}`)},
		{name: "polygon with two points", data: wrap(`{"id":"a","zOrder":0,"kind":"polygon","points":[{"x":1,"y":1},{"x":2,"y":2}],"style":{"fill":"none"}}`)},
		{name: "path without data", data: wrap(`{"id":"a","zOrder":0,"kind":"path","style":{"fill":"none"}}`)},
		{name: "text without font size", data: wrap(`{"id":"a","zOrder":0,"kind":"text","text":"hi","style":{"fill":"none"}}`)},
		{name: "label without text", data: wrap(`{"id":"a","zOrder":0,"kind":"label","fontSize":12,"style":{"fill":"none"}}`)},
		{name: "compound without parts", data: wrap(`{"id":"a","zOrder":0,"kind":"compound","anchor":{"x":0,"y":0},"parts":[]}`)},
		{name: "compound with bad part", data: wrap(`{"id":"a","zOrder":0,"kind":"compound","parts":[{"kind":"blob","style":{"fill":"none"}}]}`)},
		{name: "bad fill colour", data: wrap(`{"id":"a","zOrder":0,"kind":"circle","radius":3,"style":{"fill":"not-a-colour"}}`)},
		{name: "duplicate ids", data: wrap(
			`{"id":"a","zOrder":0,"kind":"circle","radius":3,"style":{"fill":"none"}},` +
				`{"id":"a","zOrder":1,"kind":"circle","radius":3,"style":{"fill":"none"}}`)},
		{name: "zOrder out of order", data: wrap(
			`{"id":"a","zOrder":4,"kind":"circle","radius":3,"style":{"fill":"none"}},` +
				`{"id":"b","zOrder":2,"kind":"circle","radius":3,"style":{"fill":"none"}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decode(tt.data)
			if !IsCorrupt(err) {
				t.Fatalf("Decode() err = %v; want CorruptDocumentError", err)
			}
			if d != nil {
				t.Errorf("Decode() returned a document alongside the error")
			}
		})
	}
}

func TestDecode_skipCorrupt(t *testing.T) {
	blob := []byte(`{"version":1,"canvas":{"width":100,"height":100},"elements":[
		{"id":"a","zOrder":0,"kind":"circle","radius":3,"style":{"fill":"none"}},
		{"id":"b","zOrder":1,"kind":"hexapus","style":{"fill":"none"}},
		{"id":"c","zOrder":2,"kind":"label","text":"Count the apples","fontSize":18,"style":{"fill":"#111827"}}
	]}`)

	d, err := Decode(blob, SkipCorrupt())
	require.NotNil(t, d)
	require.Error(t, err)

	var cerr *CorruptDocumentError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1, cerr.Skipped())
	assert.Equal(t, 2, d.Len())

	ids := []string{}
	for _, el := range d.Elements() {
		ids = append(ids, el.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)
}

func TestDecode_normalizesLegacyFill(t *testing.T) {
	blob := []byte(`{"version":1,"canvas":{"width":100,"height":100},"elements":[
		{"id":"a","zOrder":0,"kind":"circle","radius":3,"style":{"fill":""}},
		{"id":"b","zOrder":1,"kind":"circle","radius":3,"style":{"fill":null}},
		{"id":"c","zOrder":2,"kind":"circle","radius":3,"style":{"fill":"transparent"}},
		{"id":"d","zOrder":3,"kind":"circle","radius":3,"style":{}}
	]}`)

	d, err := Decode(blob)
	require.NoError(t, err)
	for _, el := range d.Elements() {
		s, _ := el.Shape()
		if s.Style.Fill != NoFill {
			t.Errorf("element %s fill = %q; want %q", el.ID, s.Style.Fill, NoFill)
		}
	}
}

func TestElement_MarshalJSON(t *testing.T) {
	d := New(testCanvas)
	el, err := d.Place(DefaultRegistry(), "house", Point{X: 200, Y: 200})
	require.NoError(t, err)

	data, err := json.Marshal(el)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, el.ID, got["id"])
	assert.Equal(t, "compound", got["kind"])
	assert.Equal(t, "house", got["name"])
	assert.Len(t, got["parts"], 3)
}

func TestEncode_rejectsWhatDecodeRejects(t *testing.T) {
	circle := func(radius float64, style Style) Element {
		return NewShapeElement(Shape{Kind: KindCircle, Position: Point{X: 10, Y: 10}, Radius: radius, Style: style})
	}
	outlined := Style{Fill: NoFill, Stroke: "#111827", StrokeWidth: 2}

	tests := []struct {
		name   string
		canvas Canvas
		el     Element
	}{
		{name: "named fill", canvas: testCanvas, el: circle(40, Style{Fill: "red", Stroke: "black"})},
		{name: "named stroke", canvas: testCanvas, el: circle(40, Style{Fill: NoFill, Stroke: "black"})},
		{name: "zero radius", canvas: testCanvas, el: circle(0, outlined)},
		{name: "empty label", canvas: testCanvas, el: NewLabelElement(Label{Text: "  ", FontSize: 18, Style: Style{Fill: "#111827"}})},
		{name: "empty compound", canvas: testCanvas, el: NewCompoundElement(Compound{Name: "sun"})},
		{name: "bad compound part", canvas: testCanvas, el: NewCompoundElement(Compound{Name: "sun", Parts: []Shape{{Kind: KindCircle, Style: outlined}}})},
		{name: "zero canvas", canvas: Canvas{Height: 100}, el: circle(40, outlined)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.canvas)
			d.Add(tt.el)

			data, err := Encode(d)
			assert.Nil(t, data)
			assert.True(t, IsCorrupt(err), "Encode() err = %v; want CorruptDocumentError", err)
			assert.Error(t, Check(d))
		})
	}
}

func TestEncodeDecode_publicAPIRoundTrip(t *testing.T) {
	d := New(Canvas{Width: 300, Height: 200, Background: NoFill})
	d.Add(NewShapeElement(Shape{Kind: KindCircle, Radius: 5, Style: Style{Fill: "transparent", Stroke: " #2563eb "}}))
	d.Add(NewLabelElement(Label{Text: "Colour me", FontSize: 18, Style: Style{Fill: "rgb(17,24,39)"}}))
	require.NoError(t, Check(d))

	data, err := Encode(d)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, d.Canvas, got.Canvas)
	assert.Equal(t, d.Elements(), got.Elements())
}

func TestDecode_trailingData(t *testing.T) {
	valid := `{"version":1,"canvas":{"width":10,"height":10},"elements":[]}`

	_, err := Decode([]byte(valid + "garbage"))
	assert.True(t, IsCorrupt(err))
	_, err = Decode([]byte(valid + `{"version":1}`))
	assert.True(t, IsCorrupt(err))

	_, err = Decode([]byte(valid + "\n"))
	assert.NoError(t, err)
}
