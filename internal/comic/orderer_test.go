package comic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x, y, w, h int) BoundingBox {
	return BoundingBox{X: x, Y: y, Width: w, Height: h}
}

func sourceTexts(units []Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.SourceText
	}
	return out
}

func TestOrderUnits_EmptyInput(t *testing.T) {
	assert.Empty(t, OrderUnits(nil, DefaultBandFraction))
	assert.Empty(t, OrderUnits([]Unit{}, DefaultBandFraction))
}

func TestOrderUnits_RowsTopToBottomThenLeftToRight(t *testing.T) {
	// Detection order deliberately scrambled; the two top boxes are
	// vertically misaligned by less than the band tolerance.
	units := []Unit{
		{SourceText: "D", BoundingBox: box(130, 310, 80, 40)},
		{SourceText: "A", BoundingBox: box(10, 100, 80, 40)},
		{SourceText: "C", BoundingBox: box(15, 300, 80, 40)},
		{SourceText: "B", BoundingBox: box(120, 95, 80, 50)},
	}

	ordered := OrderUnits(units, DefaultBandFraction)

	require.Len(t, ordered, 4)
	assert.Equal(t, []string{"A", "B", "C", "D"}, sourceTexts(ordered))
	for i, u := range ordered {
		assert.Equal(t, i+1, u.ReadingIndex)
	}
}

func TestOrderUnits_TightToleranceSplitsMisalignedRow(t *testing.T) {
	// Vertical centers differ by 15px: 105 vs 120.
	units := []Unit{
		{SourceText: "right", BoundingBox: box(120, 80, 80, 50)},
		{SourceText: "left", BoundingBox: box(10, 100, 80, 40)},
	}

	// Median height 45, default tolerance 22.5: one row, left to right.
	wide := OrderUnits(units, DefaultBandFraction)
	assert.Equal(t, []string{"left", "right"}, sourceTexts(wide))

	// Tolerance 4.5: separate rows, strictly top to bottom.
	narrow := OrderUnits(units, 0.1)
	assert.Equal(t, []string{"right", "left"}, sourceTexts(narrow))
}

func TestOrderUnits_IdenticalBoxesPreserveDetectionOrder(t *testing.T) {
	units := []Unit{
		{SourceText: "first", BoundingBox: box(50, 50, 100, 60)},
		{SourceText: "second", BoundingBox: box(50, 50, 100, 60)},
	}

	ordered := OrderUnits(units, DefaultBandFraction)

	assert.Equal(t, []string{"first", "second"}, sourceTexts(ordered))
}

func TestOrderUnits_Deterministic(t *testing.T) {
	units := []Unit{
		{SourceText: "a", BoundingBox: box(300, 40, 90, 50)},
		{SourceText: "b", BoundingBox: box(20, 45, 90, 50)},
		{SourceText: "c", BoundingBox: box(160, 42, 90, 50)},
		{SourceText: "d", BoundingBox: box(40, 400, 90, 50)},
		{SourceText: "e", BoundingBox: box(200, 390, 90, 50)},
	}

	first := OrderUnits(units, DefaultBandFraction)
	for range 10 {
		again := OrderUnits(units, DefaultBandFraction)
		require.Equal(t, first, again)
	}
}

func TestOrderUnits_DoesNotMutateInput(t *testing.T) {
	units := []Unit{
		{SourceText: "low", BoundingBox: box(0, 500, 50, 50)},
		{SourceText: "high", BoundingBox: box(0, 0, 50, 50)},
	}

	_ = OrderUnits(units, DefaultBandFraction)

	assert.Equal(t, "low", units[0].SourceText)
	assert.Zero(t, units[0].ReadingIndex)
	assert.Zero(t, units[1].ReadingIndex)
}

func TestOrderUnits_SingleUnit(t *testing.T) {
	ordered := OrderUnits([]Unit{{SourceText: "only", BoundingBox: box(5, 5, 10, 10)}}, 0)

	require.Len(t, ordered, 1)
	assert.Equal(t, 1, ordered[0].ReadingIndex)
}
