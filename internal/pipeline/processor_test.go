package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/contextual-comic-translator/internal/comic"
	"github.com/MimeLyc/contextual-comic-translator/internal/translate"
)

func writeTestPage(t *testing.T, width, height int) comic.Page {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page_001.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, width, height), 0o644))
	return comic.Page{Number: 1, Path: path, Width: width, Height: height}
}

func newPageEnv(detector *fakeDetector, renderer *fakeRenderer, chat *fakeChat) *pageProcessor {
	adapter := translate.NewAdapter(chat, renderer, "ja", "en", 4)
	return newPageProcessor(detector, adapter, 0)
}

func TestProcessPageFollowsReadingOrder(t *testing.T) {
	t.Parallel()

	// Detection order is right bubble first; reading order must flip it.
	detector := &fakeDetector{units: []comic.Unit{
		{BoundingBox: comic.BoundingBox{X: 120, Y: 12, Width: 60, Height: 40}, Confidence: 0.9},
		{BoundingBox: comic.BoundingBox{X: 10, Y: 10, Width: 60, Height: 40}, Confidence: 0.9},
	}}
	renderer := &fakeRenderer{}
	chat := &fakeChat{replies: []string{
		"SOURCE: 左\nTRANSLATION: left",
		"SOURCE: 右\nTRANSLATION: right",
	}}
	processor := newPageEnv(detector, renderer, chat)

	window := comic.NewContextWindow(8)
	canvas, err := processor.ProcessPage(context.Background(), writeTestPage(t, 200, 100), window, func(int, int) {})
	require.NoError(t, err)
	require.NotNil(t, canvas)

	require.Len(t, renderer.boxes, 2)
	assert.Equal(t, 10, renderer.boxes[0].X)
	assert.Equal(t, 120, renderer.boxes[1].X)
	assert.Equal(t, []string{"left", "right"}, renderer.texts)

	entries := window.Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].ReadingIndex)
	assert.Equal(t, "左", entries[0].SourceText)
	assert.Equal(t, 2, entries[1].ReadingIndex)
}

func TestProcessPageReportsUnitProgress(t *testing.T) {
	t.Parallel()

	detector := &fakeDetector{units: []comic.Unit{
		{BoundingBox: comic.BoundingBox{X: 10, Y: 10, Width: 60, Height: 40}, Confidence: 0.9},
		{BoundingBox: comic.BoundingBox{X: 120, Y: 10, Width: 60, Height: 40}, Confidence: 0.9},
	}}
	chat := &fakeChat{replies: []string{"SOURCE: あ\nTRANSLATION: Ah"}}
	processor := newPageEnv(detector, &fakeRenderer{}, chat)

	type step struct{ done, total int }
	var steps []step
	_, err := processor.ProcessPage(context.Background(), writeTestPage(t, 200, 100), comic.NewContextWindow(8), func(done, total int) {
		steps = append(steps, step{done, total})
	})
	require.NoError(t, err)

	assert.Equal(t, []step{{0, 2}, {1, 2}, {2, 2}}, steps)
}

func TestProcessPageWithNoUnitsLeavesCanvasUntouched(t *testing.T) {
	t.Parallel()

	detector := &fakeDetector{}
	chat := &fakeChat{}
	processor := newPageEnv(detector, &fakeRenderer{}, chat)

	calls := 0
	canvas, err := processor.ProcessPage(context.Background(), writeTestPage(t, 60, 40), comic.NewContextWindow(8), func(int, int) {
		calls++
	})
	require.NoError(t, err)
	require.NotNil(t, canvas)
	assert.Zero(t, calls)
	assert.Zero(t, chat.promptCount())

	bounds := canvas.Bounds()
	assert.Equal(t, 60, bounds.Dx())
	assert.Equal(t, 40, bounds.Dy())
	r, g, b, _ := canvas.At(30, 20).RGBA()
	assert.Equal(t, uint32(255), r>>8)
	assert.Equal(t, uint32(255), g>>8)
	assert.Equal(t, uint32(255), b>>8)
}

func TestProcessPageMissingImage(t *testing.T) {
	t.Parallel()

	processor := newPageEnv(&fakeDetector{}, &fakeRenderer{}, &fakeChat{})
	page := comic.Page{Number: 3, Path: filepath.Join(t.TempDir(), "gone.png")}

	_, err := processor.ProcessPage(context.Background(), page, comic.NewContextWindow(8), func(int, int) {})
	require.Error(t, err)
	assert.True(t, comic.IsErrorType(err, comic.ErrDetection))
	assert.Contains(t, err.Error(), "page=3")
}

func TestProcessPageRenderFailureAbortsPage(t *testing.T) {
	t.Parallel()

	detector := &fakeDetector{units: []comic.Unit{
		{BoundingBox: comic.BoundingBox{X: 10, Y: 10, Width: 40, Height: 30}, Confidence: 0.9},
	}}
	renderer := &fakeRenderer{err: assert.AnError}
	chat := &fakeChat{replies: []string{"SOURCE: あ\nTRANSLATION: Ah"}}
	processor := newPageEnv(detector, renderer, chat)

	window := comic.NewContextWindow(8)
	_, err := processor.ProcessPage(context.Background(), writeTestPage(t, 100, 60), window, func(int, int) {})
	require.Error(t, err)
	assert.True(t, comic.IsErrorType(err, comic.ErrRender))
	assert.Zero(t, window.Len(), "failed units must not enter the context window")
}
