package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/MimeLyc/contextual-comic-translator/internal/comic"
	"github.com/MimeLyc/contextual-comic-translator/internal/translate"
	"github.com/MimeLyc/contextual-comic-translator/pkg/log"
)

// Detector finds text regions on a page image.
type Detector interface {
	Detect(ctx context.Context, image []byte, filename string) ([]comic.Unit, error)
}

// UnitTranslator runs the extract-translate-render step for one unit.
type UnitTranslator interface {
	Process(ctx context.Context, canvas *image.RGBA, unit comic.Unit, snapshot []comic.ContextEntry) (translate.Result, error)
}

// pageProcessor translates the units of single pages in reading order,
// feeding every completed unit into the job's context window.
type pageProcessor struct {
	detector     Detector
	translator   UnitTranslator
	bandFraction float64
}

func newPageProcessor(detector Detector, translator UnitTranslator, bandFraction float64) *pageProcessor {
	return &pageProcessor{
		detector:     detector,
		translator:   translator,
		bandFraction: bandFraction,
	}
}

// ProcessPage detects text units on the page, orders them and
// translates each in turn, painting results onto the returned canvas.
// onUnit reports per-unit progress as (done, total).
//
// Any unit failure aborts the whole page. A page with no detected
// units succeeds with an untouched canvas.
func (p *pageProcessor) ProcessPage(ctx context.Context, page comic.Page, window *comic.ContextWindow, onUnit func(done, total int)) (*image.RGBA, error) {
	raw, err := os.ReadFile(page.Path)
	if err != nil {
		return nil, comic.NewErrorWithCause(comic.ErrDetection, "failed to read page image", err).
			WithContext("page", page.Number)
	}

	canvas, err := loadCanvas(raw)
	if err != nil {
		return nil, comic.NewErrorWithCause(comic.ErrDetection, "failed to decode page image", err).
			WithContext("page", page.Number)
	}

	units, err := p.detector.Detect(ctx, raw, filepath.Base(page.Path))
	if err != nil {
		return nil, comic.NewErrorWithCause(comic.ErrDetection, "bubble detection failed", err).
			WithContext("page", page.Number)
	}

	ordered := comic.OrderUnits(units, p.bandFraction)
	if len(ordered) == 0 {
		log.Info("Page %d: no text units detected", page.Number)
		return canvas, nil
	}

	onUnit(0, len(ordered))
	for i, unit := range ordered {
		result, err := p.translator.Process(ctx, canvas, unit, window.Snapshot())
		if err != nil {
			return nil, withPage(err, page.Number)
		}

		window.Append(comic.ContextEntry{
			ReadingIndex:   unit.ReadingIndex,
			SourceText:     result.SourceText,
			TranslatedText: result.TranslatedText,
		})
		onUnit(i+1, len(ordered))
	}

	log.Info("Page %d: translated %d text units", page.Number, len(ordered))
	return canvas, nil
}

// withPage attaches the page number to pipeline errors that carry
// positional context.
func withPage(err error, pageNumber int) error {
	if terr, ok := err.(*comic.TranslationError); ok {
		return terr.WithContext("page", pageNumber)
	}
	return fmt.Errorf("page %d: %w", pageNumber, err)
}

// loadCanvas decodes a page image into a mutable RGBA canvas.
func loadCanvas(raw []byte) (*image.RGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Src)
	return canvas, nil
}
