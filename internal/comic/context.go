package comic

import (
	"fmt"
	"strings"
)

// DefaultContextSize is the maximum number of previous translations kept as
// prompt context.
const DefaultContextSize = 8

// ContextWindow holds a job's most recent successful translations, oldest
// first. The window deliberately spans page boundaries so character names and
// tone stay consistent across a whole document; it is reset only when a new
// job starts. The owning job goroutine is the sole writer, so the window
// carries no locking of its own.
type ContextWindow struct {
	capacity int
	entries  []ContextEntry
}

// NewContextWindow returns a window keeping at most capacity entries.
// A non-positive capacity falls back to DefaultContextSize.
func NewContextWindow(capacity int) *ContextWindow {
	if capacity <= 0 {
		capacity = DefaultContextSize
	}
	return &ContextWindow{capacity: capacity}
}

// Append records a completed translation, evicting the oldest entry once the
// window exceeds its capacity.
func (w *ContextWindow) Append(entry ContextEntry) {
	w.entries = append(w.entries, entry)
	if len(w.entries) > w.capacity {
		w.entries = w.entries[len(w.entries)-w.capacity:]
	}
}

// Snapshot returns a copy of the window contents, oldest first.
func (w *ContextWindow) Snapshot() []ContextEntry {
	out := make([]ContextEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Len reports the number of entries currently held.
func (w *ContextWindow) Len() int {
	return len(w.entries)
}

// Capacity reports the maximum number of entries the window retains.
func (w *ContextWindow) Capacity() int {
	return w.capacity
}

// Reset discards all entries. Called once per job, never between pages.
func (w *ContextWindow) Reset() {
	w.entries = nil
}

// FormatContext renders context entries as the dialogue-history block the
// translation prompt injects. An empty snapshot renders to an empty string,
// letting the prompt builder omit the section entirely.
func FormatContext(entries []ContextEntry) string {
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== RECENT DIALOGUE (oldest first) ===\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "Bubble %d: %q -> %q\n", e.ReadingIndex, e.SourceText, e.TranslatedText)
	}
	return b.String()
}
