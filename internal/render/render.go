package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/MimeLyc/contextual-comic-translator/internal/comic"
)

// Layout factors for fitting text into a bubble. Line width is estimated
// from an average character width rather than measured per glyph, so the
// same text always wraps the same way regardless of font file.
const (
	avgCharWidthFactor = 0.6
	usableWidthFactor  = 0.8
	lineHeightFactor   = 1.2
	maxHeightFactor    = 0.8

	outlineWidth = 2
)

// ErrDoesNotFit is returned when the text cannot be fitted into the target
// region even at the minimum font size.
var ErrDoesNotFit = errors.New("text does not fit in target region")

// Config holds the configuration for the bubble renderer
//
// FontPath: Path to a TTF font file; empty uses the embedded Go Regular
// MaxFontSize: Largest candidate font size in points
// MinFontSize: Smallest candidate font size in points
// FontStep: Decrement between candidate sizes
// EllipsePadding: Scale factor applied to the ellipse inscribed in the box
type Config struct {
	FontPath       string
	MaxFontSize    int
	MinFontSize    int
	FontStep       int
	EllipsePadding float64
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MinFontSize < 1 {
		return fmt.Errorf("min font size must be greater than 0")
	}
	if c.MaxFontSize < c.MinFontSize {
		return fmt.Errorf("max font size must be at least min font size")
	}
	if c.FontStep < 1 {
		return fmt.Errorf("font step must be greater than 0")
	}
	if c.EllipsePadding <= 0 || c.EllipsePadding > 1 {
		return fmt.Errorf("ellipse padding must be in (0, 1]")
	}
	return nil
}

// Renderer paints translated text into speech bubble regions. It clears
// the bubble with a white ellipse, then draws the text centered with a
// white outline so it stays readable over busy artwork.
type Renderer struct {
	config Config
	font   *opentype.Font
}

// NewRenderer creates a renderer with the given configuration, loading the
// font from Config.FontPath or falling back to the embedded Go Regular.
func NewRenderer(config Config) (*Renderer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	data := goregular.TTF
	if config.FontPath != "" {
		fileData, err := os.ReadFile(config.FontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		data = fileData
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	return &Renderer{config: config, font: parsed}, nil
}

// Render paints text into the box region of canvas. The canvas is modified
// in place. Returns ErrDoesNotFit when no candidate font size can hold the
// text inside the box.
func (r *Renderer) Render(canvas *image.RGBA, box comic.BoundingBox, text string) error {
	size, lines := r.fit(text, box)
	if size == 0 {
		return fmt.Errorf("%w: %d chars in %dx%d box", ErrDoesNotFit, utf8.RuneCountInString(text), box.Width, box.Height)
	}

	dc := gg.NewContextForRGBA(canvas)

	cx := box.CenterX()
	cy := box.CenterY()
	rx := float64(box.Width) / 2 * r.config.EllipsePadding
	ry := float64(box.Height) / 2 * r.config.EllipsePadding

	dc.DrawEllipse(cx, cy, rx, ry)
	dc.SetColor(color.White)
	dc.FillPreserve()
	dc.SetColor(color.Black)
	dc.SetLineWidth(outlineWidth)
	dc.Stroke()

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()
	dc.SetFontFace(face)

	lineHeight := lineHeightFactor * float64(size)
	startY := cy - lineHeight*float64(len(lines))/2 + lineHeight/2

	for i, line := range lines {
		y := startY + float64(i)*lineHeight

		dc.SetColor(color.White)
		for dy := -outlineWidth; dy <= outlineWidth; dy += outlineWidth {
			for dx := -outlineWidth; dx <= outlineWidth; dx += outlineWidth {
				if dx == 0 && dy == 0 {
					continue
				}
				dc.DrawStringAnchored(line, cx+float64(dx), y+float64(dy), 0.5, 0.5)
			}
		}

		dc.SetColor(color.Black)
		dc.DrawStringAnchored(line, cx, y, 0.5, 0.5)
	}

	return nil
}

// fit picks the largest candidate font size whose wrapped lines fit inside
// the box, returning the size and the wrapped lines. Returns size 0 when
// nothing fits.
func (r *Renderer) fit(text string, box comic.BoundingBox) (int, []string) {
	usableWidth := usableWidthFactor * float64(box.Width)
	maxHeight := maxHeightFactor * float64(box.Height)

	for size := r.config.MaxFontSize; size >= r.config.MinFontSize; size -= r.config.FontStep {
		maxChars := int(usableWidth / (avgCharWidthFactor * float64(size)))
		if maxChars < 1 {
			maxChars = 1
		}

		lines := wrapText(text, maxChars)
		height := lineHeightFactor * float64(size) * float64(len(lines))
		if height <= maxHeight {
			return size, lines
		}
	}

	return 0, nil
}

// wrapText packs words greedily into lines of at most maxChars characters.
// Words longer than a full line are split mid-word so every text wraps at
// every size; only the height check can reject a candidate size.
func wrapText(text string, maxChars int) []string {
	var lines []string
	var current string
	currentLen := 0

	flush := func() {
		if current != "" {
			lines = append(lines, current)
			current = ""
			currentLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > maxChars {
			flush()
			lines = append(lines, string(runes[:maxChars]))
			runes = runes[maxChars:]
		}
		if len(runes) == 0 {
			continue
		}

		wordLen := len(runes)
		switch {
		case current == "":
			current = string(runes)
			currentLen = wordLen
		case currentLen+1+wordLen <= maxChars:
			current += " " + string(runes)
			currentLen += 1 + wordLen
		default:
			flush()
			current = string(runes)
			currentLen = wordLen
		}
	}
	flush()

	return lines
}
