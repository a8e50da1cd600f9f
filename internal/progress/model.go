// Package progress derives the user-visible progress of a translation job
// from its position in the pipeline. The mapping is pure so it can be tested
// without running any translation work.
package progress

import (
	"fmt"
	"math"
)

// Phase names a weighted stage of job processing.
type Phase int

const (
	PhaseQueued Phase = iota
	PhaseSetup
	PhaseTranslating
	PhaseFinalizing
	PhaseDone
)

// Weighting calibration: 15% for setup and page decomposition, 80% spread
// across translation work, 5% for assembling the output artifact.
const (
	setupShare       = 15.0
	translationShare = 80.0
	finalizeShare    = 5.0
)

// Snapshot is one computed progress point.
type Snapshot struct {
	Percent int
	Message string
}

// Compute maps a pipeline position to a progress percentage and message.
//
// The translation share is apportioned per page (80/totalPages points each)
// because unit counts are only known after each page's detection runs;
// within a page the share is spread evenly over that page's units. Results
// are clamped to [0, 100]. pageIndex is 1-based.
func Compute(phase Phase, pageIndex, totalPages, unitsDone, totalUnits int) Snapshot {
	switch phase {
	case PhaseQueued:
		return Snapshot{Percent: 0, Message: "Waiting in queue..."}
	case PhaseSetup:
		return Snapshot{Percent: clamp(setupShare), Message: "Preparing document pages..."}
	case PhaseTranslating:
		return translating(pageIndex, totalPages, unitsDone, totalUnits)
	case PhaseFinalizing:
		return Snapshot{Percent: clamp(100 - finalizeShare), Message: "Applying translated text..."}
	case PhaseDone:
		return Snapshot{Percent: 100, Message: "Translation complete"}
	default:
		return Snapshot{Percent: 0, Message: "Waiting in queue..."}
	}
}

func translating(pageIndex, totalPages, unitsDone, totalUnits int) Snapshot {
	if totalPages < 1 {
		totalPages = 1
	}
	if pageIndex < 1 {
		pageIndex = 1
	}
	if pageIndex > totalPages {
		pageIndex = totalPages
	}
	if unitsDone < 0 {
		unitsDone = 0
	}

	pageShare := translationShare / float64(totalPages)
	done := setupShare + pageShare*float64(pageIndex-1)

	var msg string
	switch {
	case totalUnits <= 0:
		// Page started, detection not finished yet.
		msg = fmt.Sprintf("Detecting speech bubbles on page %d of %d...", pageIndex, totalPages)
	case unitsDone >= totalUnits:
		done += pageShare
		msg = fmt.Sprintf("Translated page %d of %d", pageIndex, totalPages)
	default:
		done += pageShare * float64(unitsDone) / float64(totalUnits)
		msg = fmt.Sprintf("Translating page %d of %d (bubble %d of %d)...",
			pageIndex, totalPages, unitsDone+1, totalUnits)
	}

	return Snapshot{Percent: clamp(done), Message: msg}
}

func clamp(v float64) int {
	p := int(math.Round(v))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Tracker floors reported progress at its running maximum so a job's visible
// progress never decreases, whatever order phases report in.
type Tracker struct {
	last int
}

// Apply returns the snapshot with its percentage floored at the highest
// value seen so far.
func (t *Tracker) Apply(s Snapshot) Snapshot {
	if s.Percent < t.last {
		s.Percent = t.last
	} else {
		t.last = s.Percent
	}
	return s
}

// Last reports the highest percentage applied so far.
func (t *Tracker) Last() int {
	return t.last
}
