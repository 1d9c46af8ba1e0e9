package worksheet

const (
	ink       = "#1f2937"
	inkWidth  = 2
	labelFont = "Andika, Arial, sans-serif"
)

func stroke(fill string) Style { return Style{Fill: fill, Stroke: ink, StrokeWidth: inkWidth} }

func rect(x, y, w, h float64, fill string) Shape {
	return Shape{Kind: KindRectangle, Position: Point{X: x, Y: y}, Width: w, Height: h, Style: stroke(fill)}
}

func circle(cx, cy, r float64, fill string) Shape {
	return Shape{Kind: KindCircle, Position: Point{X: cx, Y: cy}, Radius: r, Style: stroke(fill)}
}

func triangle(x, y, w, h float64, fill string) Shape {
	return Shape{Kind: KindTriangle, Position: Point{X: x, Y: y}, Width: w, Height: h, Style: stroke(fill)}
}

func line(x1, y1, x2, y2 float64) Shape {
	return Shape{
		Kind:     KindLine,
		Position: Point{X: x1, Y: y1},
		Points:   []Point{{X: 0, Y: 0}, {X: x2 - x1, Y: y2 - y1}},
		Style:    stroke(NoFill),
	}
}

func polygon(x, y float64, fill string, pts ...Point) Shape {
	return Shape{Kind: KindPolygon, Position: Point{X: x, Y: y}, Points: pts, Style: stroke(fill)}
}

func path(x, y float64, d, fill string) Shape {
	return Shape{Kind: KindPath, Position: Point{X: x, Y: y}, Path: d, Style: stroke(fill)}
}

func text(x, y float64, s string, size float64) Shape {
	return Shape{
		Kind:       KindText,
		Position:   Point{X: x, Y: y},
		Text:       s,
		FontSize:   size,
		FontFamily: labelFont,
		Style:      Style{Fill: ink},
	}
}

func single(s Shape) *Shape { return &s }

// catalog is the static element table behind DefaultRegistry. Compound part
// geometry is relative to the compound anchor (its top-left corner).
var catalog = []Entry{
	// primitives
	{Identifier: "rectangle", Name: "Rectangle", Category: CategoryShape, Shape: single(rect(0, 0, 120, 80, "#93c5fd"))},
	{Identifier: "square", Name: "Square", Category: CategoryShape, Shape: single(rect(0, 0, 100, 100, "#fca5a5"))},
	{Identifier: "circle", Name: "Circle", Category: CategoryShape, Shape: single(circle(0, 0, 50, "#fde68a"))},
	{Identifier: "triangle", Name: "Triangle", Category: CategoryShape, Shape: single(triangle(0, 0, 100, 90, "#86efac"))},
	{Identifier: "line", Name: "Line", Category: CategoryShape, Shape: single(line(0, 0, 150, 0))},
	{Identifier: "pentagon", Name: "Pentagon", Category: CategoryShape, Shape: single(polygon(0, 0, "#c4b5fd",
		Point{X: 50, Y: 0}, Point{X: 100, Y: 36}, Point{X: 81, Y: 95}, Point{X: 19, Y: 95}, Point{X: 0, Y: 36}))},
	{Identifier: "hexagon", Name: "Hexagon", Category: CategoryShape, Shape: single(polygon(0, 0, "#fdba74",
		Point{X: 25, Y: 0}, Point{X: 75, Y: 0}, Point{X: 100, Y: 43}, Point{X: 75, Y: 87}, Point{X: 25, Y: 87}, Point{X: 0, Y: 43}))},
	{Identifier: "star", Name: "Star", Category: CategoryShape, Shape: single(polygon(0, 0, "#facc15",
		Point{X: 50, Y: 0}, Point{X: 62, Y: 35}, Point{X: 98, Y: 35}, Point{X: 69, Y: 57}, Point{X: 79, Y: 91},
		Point{X: 50, Y: 70}, Point{X: 21, Y: 91}, Point{X: 31, Y: 57}, Point{X: 2, Y: 35}, Point{X: 38, Y: 35}))},
	{Identifier: "heart", Name: "Heart", Category: CategoryShape, Shape: single(path(0, 0,
		"M50 90 C20 65 0 45 0 25 C0 10 12 0 27 0 C38 0 46 7 50 15 C54 7 62 0 73 0 C88 0 100 10 100 25 C100 45 80 65 50 90 Z", "#fb7185"))},
	{Identifier: "arrow", Name: "Arrow", Category: CategoryShape, Shape: single(path(0, 0,
		"M0 20 L90 20 L90 0 L130 35 L90 70 L90 50 L0 50 Z", "#67e8f9"))},

	// text
	{Identifier: "text", Name: "Text", Category: CategoryText, Label: &Label{
		Text: "Text", FontSize: 24, FontFamily: labelFont, Style: Style{Fill: ink}}},
	{Identifier: "text_bold", Name: "Bold text", Category: CategoryText, Label: &Label{
		Text: "Bold text", FontSize: 24, FontFamily: labelFont, FontWeight: "bold", Style: Style{Fill: ink}}},
	{Identifier: "text_title", Name: "Title", Category: CategoryText, Label: &Label{
		Text: "Title", FontSize: 40, FontFamily: labelFont, FontWeight: "bold", Style: Style{Fill: ink}}},
	{Identifier: "text_trace", Name: "Tracing letters", Category: CategoryText, Label: &Label{
		Text: "abc", FontSize: 64, FontFamily: labelFont, Style: Style{Fill: NoFill, Stroke: "#9ca3af", StrokeWidth: 1}}},

	// icons
	{Identifier: "house", Name: "House", Category: CategoryIcon, Parts: []Shape{
		rect(0, 40, 100, 80, "#fca5a5"), // body
		polygon(0, 0, "#b91c1c", Point{X: -10, Y: 40}, Point{X: 50, Y: 0}, Point{X: 110, Y: 40}), // roof
		rect(40, 80, 20, 40, "#92400e"), // door
	}},
	{Identifier: "car", Name: "Car", Category: CategoryIcon, Parts: []Shape{
		rect(0, 25, 140, 40, "#60a5fa"),
		polygon(0, 0, "#bfdbfe", Point{X: 30, Y: 25}, Point{X: 45, Y: 0}, Point{X: 95, Y: 0}, Point{X: 110, Y: 25}),
		circle(32, 65, 14, "#374151"),
		circle(108, 65, 14, "#374151"),
	}},
	{Identifier: "sun", Name: "Sun", Category: CategoryIcon, Parts: []Shape{
		circle(60, 60, 30, "#facc15"),
		line(60, 0, 60, 20),
		line(60, 100, 60, 120),
		line(0, 60, 20, 60),
		line(100, 60, 120, 60),
		line(18, 18, 32, 32),
		line(88, 88, 102, 102),
		line(18, 102, 32, 88),
		line(88, 32, 102, 18),
	}},
	{Identifier: "tree", Name: "Tree", Category: CategoryIcon, Parts: []Shape{
		rect(40, 70, 20, 50, "#92400e"),
		circle(50, 45, 40, "#22c55e"),
	}},
	{Identifier: "flower", Name: "Flower", Category: CategoryIcon, Parts: []Shape{
		line(50, 60, 50, 130),
		circle(50, 25, 18, "#f472b6"),
		circle(75, 50, 18, "#f472b6"),
		circle(50, 75, 18, "#f472b6"),
		circle(25, 50, 18, "#f472b6"),
		circle(50, 50, 14, "#facc15"),
	}},
	{Identifier: "apple", Name: "Apple", Category: CategoryIcon, Parts: []Shape{
		circle(45, 55, 40, "#ef4444"),
		line(45, 15, 50, 0),
		path(50, 0, "M0 8 C10 -4 28 -2 32 6 C22 14 8 14 0 8 Z", "#22c55e"),
	}},
	{Identifier: "fish", Name: "Fish", Category: CategoryIcon, Parts: []Shape{
		path(0, 0, "M0 40 C30 0 90 0 110 40 C90 80 30 80 0 40 Z", "#38bdf8"),
		polygon(0, 0, "#0ea5e9", Point{X: 108, Y: 40}, Point{X: 140, Y: 15}, Point{X: 140, Y: 65}),
		circle(30, 35, 5, "#111827"),
	}},
	{Identifier: "boat", Name: "Boat", Category: CategoryIcon, Parts: []Shape{
		polygon(0, 0, "#a16207", Point{X: 0, Y: 90}, Point{X: 140, Y: 90}, Point{X: 115, Y: 120}, Point{X: 25, Y: 120}),
		line(70, 0, 70, 90),
		polygon(0, 0, "#fef3c7", Point{X: 74, Y: 5}, Point{X: 125, Y: 80}, Point{X: 74, Y: 80}),
	}},
	{Identifier: "balloon", Name: "Balloon", Category: CategoryIcon, Parts: []Shape{
		circle(40, 45, 40, "#f43f5e"),
		triangle(33, 85, 14, 10, "#f43f5e"),
		path(40, 95, "M0 0 C10 15 -10 30 0 45 C10 60 -5 70 0 80", NoFill),
	}},
	{Identifier: "cloud", Name: "Cloud", Category: CategoryIcon, Parts: []Shape{
		circle(35, 45, 25, "#e0f2fe"),
		circle(70, 32, 32, "#e0f2fe"),
		circle(105, 45, 25, "#e0f2fe"),
		rect(35, 45, 70, 25, "#e0f2fe"),
	}},
	{Identifier: "smiley", Name: "Smiley face", Category: CategoryIcon, Parts: []Shape{
		circle(50, 50, 48, "#fde047"),
		circle(33, 38, 6, "#111827"),
		circle(67, 38, 6, "#111827"),
		path(28, 62, "M0 0 Q22 24 44 0", NoFill),
	}},
	{Identifier: "umbrella", Name: "Umbrella", Category: CategoryIcon, Parts: []Shape{
		path(0, 0, "M0 50 C0 10 120 10 120 50 C105 40 90 40 80 50 C70 40 50 40 40 50 C30 40 15 40 0 50 Z", "#8b5cf6"),
		line(60, 28, 60, 115),
		path(60, 115, "M0 0 C0 12 -16 12 -16 2", NoFill),
	}},
	{Identifier: "butterfly", Name: "Butterfly", Category: CategoryIcon, Parts: []Shape{
		circle(30, 30, 26, "#f9a8d4"),
		circle(90, 30, 26, "#f9a8d4"),
		circle(36, 75, 18, "#c4b5fd"),
		circle(84, 75, 18, "#c4b5fd"),
		rect(55, 15, 10, 80, "#4b5563"),
	}},
	{Identifier: "moon", Name: "Moon", Category: CategoryIcon, Parts: []Shape{
		path(0, 0, "M60 0 C20 10 10 80 60 100 C0 100 -15 20 60 0 Z", "#fef08a"),
	}},
	{Identifier: "clock", Name: "Clock", Category: CategoryIcon, Parts: []Shape{
		circle(60, 60, 55, "#ffffff"),
		line(60, 60, 60, 22),
		line(60, 60, 88, 60),
		circle(60, 60, 4, ink),
		text(52, 20, "12", 14),
		text(98, 65, "3", 14),
		text(56, 110, "6", 14),
		text(14, 65, "9", 14),
	}},
	{Identifier: "caterpillar", Name: "Caterpillar", Category: CategoryIcon, Parts: []Shape{
		circle(20, 50, 18, "#84cc16"),
		circle(52, 50, 18, "#a3e635"),
		circle(84, 50, 18, "#84cc16"),
		circle(116, 50, 18, "#a3e635"),
		circle(150, 42, 22, "#65a30d"),
	}},
	{Identifier: "kite", Name: "Kite", Category: CategoryIcon, Parts: []Shape{
		polygon(0, 0, "#f97316", Point{X: 50, Y: 0}, Point{X: 100, Y: 50}, Point{X: 50, Y: 120}, Point{X: 0, Y: 50}),
		line(50, 0, 50, 120),
		line(0, 50, 100, 50),
		path(50, 120, "M0 0 C15 20 -15 40 0 60 C15 80 -15 100 0 120", NoFill),
	}},
}
