package pdfcodec

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSolidPNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("comic.pdf"))
	assert.True(t, IsPDF("/tmp/COMIC.PDF"))
	assert.False(t, IsPDF("page.png"))
	assert.False(t, IsPDF("archive.pdf.zip"))
}

func TestAssemble_NoPages(t *testing.T) {
	err := Assemble(nil, filepath.Join(t.TempDir(), "out.pdf"), DefaultDPI)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no pages")
}

func TestAssembleDecomposeRoundTrip(t *testing.T) {
	dir := t.TempDir()

	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	page1 := filepath.Join(dir, "p1.png")
	page2 := filepath.Join(dir, "p2.png")
	writeSolidPNG(t, page1, 100, 150, red)
	writeSolidPNG(t, page2, 150, 100, blue)

	pdfPath := filepath.Join(dir, "out.pdf")
	require.NoError(t, Assemble([]string{page1, page2}, pdfPath, DefaultDPI))

	info, err := os.Stat(pdfPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	workDir := filepath.Join(dir, "work")
	pages, err := Decompose(context.Background(), pdfPath, workDir, DefaultDPI)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, filepath.Join(workDir, "page_001.png"), pages[0].Path)
	assert.Equal(t, filepath.Join(workDir, "page_002.png"), pages[1].Path)

	// Rendered back at the same DPI the page should keep its pixel size.
	assert.InDelta(t, 100, pages[0].Width, 1)
	assert.InDelta(t, 150, pages[0].Height, 1)
	assert.InDelta(t, 150, pages[1].Width, 1)
	assert.InDelta(t, 100, pages[1].Height, 1)

	f, err := os.Open(pages[0].Path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	r, g, b, _ := img.At(img.Bounds().Dx()/2, img.Bounds().Dy()/2).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Less(t, g>>8, uint32(60))
	assert.Less(t, b>>8, uint32(60))
}

func TestDecompose_MissingFile(t *testing.T) {
	_, err := Decompose(context.Background(), "nope.pdf", t.TempDir(), DefaultDPI)
	assert.Error(t, err)
}

func TestDecompose_Cancelled(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "p.png")
	writeSolidPNG(t, page, 50, 50, color.RGBA{G: 255, A: 255})

	pdfPath := filepath.Join(dir, "out.pdf")
	require.NoError(t, Assemble([]string{page}, pdfPath, DefaultDPI))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Decompose(ctx, pdfPath, filepath.Join(dir, "work"), DefaultDPI)
	assert.ErrorIs(t, err, context.Canceled)
}
