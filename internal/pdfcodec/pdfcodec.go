// Package pdfcodec splits PDF documents into per-page images and
// reassembles rendered page images into a single output PDF.
package pdfcodec

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/go-pdf/fpdf"

	"github.com/MimeLyc/contextual-comic-translator/internal/comic"
)

// DefaultDPI is the raster resolution used when none is configured.
const DefaultDPI = 300

// IsPDF reports whether the path names a PDF document by extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Decompose renders every page of the PDF at path into a PNG image under
// workDir, named page_001.png onward. Returns the page records in document
// order.
func Decompose(ctx context.Context, path, workDir string, dpi float64) ([]comic.Page, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	pages := make([]comic.Page, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(pageNum, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", pageNum+1, err)
		}

		outputPath := filepath.Join(workDir, fmt.Sprintf("page_%03d.png", pageNum+1))
		if err := savePNG(outputPath, img); err != nil {
			return nil, fmt.Errorf("failed to save page %d: %w", pageNum+1, err)
		}

		bounds := img.Bounds()
		pages = append(pages, comic.Page{
			Number: pageNum + 1,
			Path:   outputPath,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
	}

	return pages, nil
}

// Assemble builds a PDF at outPath from the page images, one page per
// image, sized so that each image at the given DPI fills its page exactly.
func Assemble(imagePaths []string, outPath string, dpi float64) error {
	if len(imagePaths) == 0 {
		return fmt.Errorf("no pages to assemble")
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt"})

	for i, imagePath := range imagePaths {
		width, height, err := imageSize(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read page image %d: %w", i+1, err)
		}

		// Pixels at the raster DPI back to PDF points.
		widthPt := float64(width) * 72 / dpi
		heightPt := float64(height) * 72 / dpi

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: widthPt, Ht: heightPt})
		pdf.ImageOptions(imagePath, 0, 0, widthPt, heightPt, false, fpdf.ImageOptions{}, 0, "")
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
