package worksheet

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPainter struct {
	calls []string
}

func (p *recordingPainter) Begin(c Canvas)          { p.calls = append(p.calls, "begin") }
func (p *recordingPainter) BeginElement(el Element) { p.calls = append(p.calls, "<"+el.ID) }
func (p *recordingPainter) DrawShape(s Shape)       { p.calls = append(p.calls, string(s.Kind)) }
func (p *recordingPainter) DrawLabel(l Label)       { p.calls = append(p.calls, "label:"+l.Text) }
func (p *recordingPainter) EndElement(el Element)   { p.calls = append(p.calls, el.ID+">") }
func (p *recordingPainter) End()                    { p.calls = append(p.calls, "end") }

func TestRender_paintOrder(t *testing.T) {
	ids := []string{"e0", "e1", "e2"}
	i := 0
	newID = func() string { id := ids[i]; i++; return id }
	defer func() { newID = defaultNewID }()

	d := New(testCanvas)
	reg := DefaultRegistry()
	_, err := d.Place(reg, "circle", Point{})
	require.NoError(t, err)
	_, err = d.Place(reg, "house", Point{X: 100, Y: 100})
	require.NoError(t, err)
	_, err = d.Place(reg, "text", Point{X: 5, Y: 5})
	require.NoError(t, err)

	var p recordingPainter
	Render(d, &p)

	want := []string{
		"begin",
		"<e0", "circle", "e0>",
		"<e1", "rectangle", "polygon", "rectangle", "e1>",
		"<e2", "label:Text", "e2>",
		"end",
	}
	assert.Equal(t, want, p.calls)
}

func TestRenderSVG(t *testing.T) {
	d := New(testCanvas)
	d.Add(newTestCircle())
	house, err := d.Place(DefaultRegistry(), "house", Point{X: 200, Y: 200})
	require.NoError(t, err)
	label := d.Add(NewLabelElement(Label{Text: "Colour <me>", FontSize: 20, Style: Style{Fill: "#111827"}}))

	svg := string(RenderSVG(d))

	assert.True(t, strings.HasPrefix(svg, `<?xml`))
	assert.Contains(t, svg, `<svg xmlns="http://www.w3.org/2000/svg" width="1200" height="800" viewBox="0 0 1200 800">`)
	assert.Contains(t, svg, `<rect width="100%" height="100%" fill="#ffffff"/>`)
	assert.Contains(t, svg, `<circle cx="100" cy="100" r="40" fill="none" stroke="#2563eb" stroke-width="2"/>`)
	assert.Contains(t, svg, fmt.Sprintf(`<g id="%s" data-kind="compound">`, house.ID))
	// house body at anchor (200,200) + (0,40)
	assert.Contains(t, svg, `<rect x="200" y="240" width="100" height="80"`)
	assert.Contains(t, svg, `<polygon points="190,240 250,200 310,240"`)
	assert.Contains(t, svg, "Colour &lt;me&gt;</text>")
	assert.Less(t, strings.Index(svg, house.ID), strings.Index(svg, label.ID))
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
}
