package comic

import "sort"

// DefaultBandFraction is the fraction of the median box height used as the
// vertical tolerance when grouping boxes into one reading row.
const DefaultBandFraction = 0.5

// OrderUnits assigns reading order to detected units: rows top to bottom,
// boxes left to right within a row. Boxes whose vertical centers lie within
// bandFraction x median(box height) of a row's first box belong to that row,
// which absorbs the slight vertical misalignment of bubbles meant to be read
// together. The result is deterministic for a given input; ties preserve
// detection order. ReadingIndex is assigned 1-based.
//
// An empty input returns an empty sequence, not an error.
func OrderUnits(units []Unit, bandFraction float64) []Unit {
	if len(units) == 0 {
		return nil
	}
	if bandFraction <= 0 {
		bandFraction = DefaultBandFraction
	}

	tolerance := bandFraction * medianHeight(units)

	byCenter := make([]Unit, len(units))
	copy(byCenter, units)
	sort.SliceStable(byCenter, func(i, j int) bool {
		return byCenter[i].BoundingBox.CenterY() < byCenter[j].BoundingBox.CenterY()
	})

	// Each band is anchored at the vertical center of its first box.
	var bands [][]Unit
	for _, u := range byCenter {
		n := len(bands)
		if n > 0 {
			anchor := bands[n-1][0].BoundingBox.CenterY()
			if u.BoundingBox.CenterY()-anchor <= tolerance {
				bands[n-1] = append(bands[n-1], u)
				continue
			}
		}
		bands = append(bands, []Unit{u})
	}

	ordered := make([]Unit, 0, len(units))
	for _, band := range bands {
		sort.SliceStable(band, func(i, j int) bool {
			return band[i].BoundingBox.X < band[j].BoundingBox.X
		})
		ordered = append(ordered, band...)
	}

	for i := range ordered {
		ordered[i].ReadingIndex = i + 1
	}
	return ordered
}

func medianHeight(units []Unit) float64 {
	heights := make([]float64, len(units))
	for i, u := range units {
		heights[i] = float64(u.BoundingBox.Height)
	}
	sort.Float64s(heights)

	mid := len(heights) / 2
	if len(heights)%2 == 0 {
		return (heights[mid-1] + heights[mid]) / 2
	}
	return heights[mid]
}
