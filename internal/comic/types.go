package comic

// BoundingBox is a rectangle in source-image pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CenterX returns the horizontal center of the box.
func (b BoundingBox) CenterX() float64 {
	return float64(b.X) + float64(b.Width)/2
}

// CenterY returns the vertical center of the box.
func (b BoundingBox) CenterY() float64 {
	return float64(b.Y) + float64(b.Height)/2
}

// Expand grows the box by margin pixels on every side, clamped to the
// image bounds given by imgWidth and imgHeight.
func (b BoundingBox) Expand(margin, imgWidth, imgHeight int) BoundingBox {
	x0 := b.X - margin
	y0 := b.Y - margin
	x1 := b.X + b.Width + margin
	y1 := b.Y + b.Height + margin

	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if imgWidth > 0 && x1 > imgWidth {
		x1 = imgWidth
	}
	if imgHeight > 0 && y1 > imgHeight {
		y1 = imgHeight
	}

	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Unit is one detected text region (speech bubble) on a page. Units are
// ephemeral: they live for the duration of one page's processing and are
// never persisted.
type Unit struct {
	BoundingBox BoundingBox
	Confidence  float64

	// ReadingIndex is 1-based and assigned by OrderUnits. It defines both
	// the processing order and the order entries enter the context window.
	ReadingIndex int

	SourceText     string
	TranslatedText string
}

// Page is one page image of a job's document, decoded onto disk.
type Page struct {
	Number int // 1-based
	Path   string
	Width  int
	Height int
}

// ContextEntry records one successfully translated unit for use as
// translation context by subsequent units.
type ContextEntry struct {
	ReadingIndex   int
	SourceText     string
	TranslatedText string
}
