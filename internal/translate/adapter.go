// Package translate wraps the vision model and the renderer into the
// per-unit translation step of the pipeline.
package translate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/MimeLyc/contextual-comic-translator/internal/comic"
	"github.com/MimeLyc/contextual-comic-translator/internal/language"
	"github.com/MimeLyc/contextual-comic-translator/pkg/log"
)

// Reply sentinels and labels the model is instructed to use.
const (
	emptySentinel    = "EMPTY"
	errorSentinel    = "ERROR"
	sourceLabel      = "SOURCE:"
	translationLabel = "TRANSLATION:"
)

// Chatter is the vision model surface the adapter depends on.
type Chatter interface {
	VisionChat(ctx context.Context, prompt string, image []byte, mimeType string, systemPrompt string) (string, error)
}

// Renderer paints translated text into a bubble region of the canvas.
type Renderer interface {
	Render(canvas *image.RGBA, box comic.BoundingBox, text string) error
}

// Result is the outcome of one successfully processed unit. The rendered
// region is painted directly onto the canvas passed to Process.
type Result struct {
	SourceText     string
	TranslatedText string
}

// Adapter performs the extract-translate-render step for single units.
// When the job requested automatic source detection the adapter pins the
// source language from the first successfully extracted text.
//
// An Adapter belongs to one job and is driven by that job's goroutine; it
// is not safe for concurrent use.
type Adapter struct {
	chat        Chatter
	renderer    Renderer
	cropPadding int

	sourceLang  string
	targetLang  string
	autoPending bool
}

// NewAdapter creates an adapter translating from sourceLang to targetLang.
// sourceLang may be language.Auto.
func NewAdapter(chat Chatter, renderer Renderer, sourceLang, targetLang string, cropPadding int) *Adapter {
	return &Adapter{
		chat:        chat,
		renderer:    renderer,
		cropPadding: cropPadding,
		sourceLang:  sourceLang,
		targetLang:  targetLang,
		autoPending: sourceLang == language.Auto,
	}
}

// SourceLang returns the current source language code, or language.Auto
// while automatic detection is still pending.
func (a *Adapter) SourceLang() string {
	return a.sourceLang
}

// Process crops the unit region from canvas, asks the vision model to
// extract and translate the bubble text with the given context snapshot,
// and renders the translation back onto the canvas.
//
// The context snapshot is read-only; appending to the context window on
// success is the caller's responsibility.
func (a *Adapter) Process(ctx context.Context, canvas *image.RGBA, unit comic.Unit, snapshot []comic.ContextEntry) (Result, error) {
	crop, err := cropRegion(canvas, unit.BoundingBox, a.cropPadding)
	if err != nil {
		return Result{}, comic.NewErrorWithCause(comic.ErrExtraction, "failed to crop unit region", err).
			WithContext("unit", unit.ReadingIndex)
	}

	reply, err := a.chat.VisionChat(ctx, a.buildPrompt(snapshot), crop, "image/png", "")
	if err != nil {
		return Result{}, comic.NewErrorWithCause(comic.ErrTranslation, "vision model call failed", err).
			WithContext("unit", unit.ReadingIndex)
	}

	reply = strings.TrimSpace(reply)
	switch reply {
	case emptySentinel:
		return Result{}, comic.NewError(comic.ErrExtraction, "no readable text in unit region").
			WithContext("unit", unit.ReadingIndex)
	case errorSentinel:
		return Result{}, comic.NewError(comic.ErrTranslation, "model could not process the unit").
			WithContext("unit", unit.ReadingIndex)
	}

	source, translated, err := parseReply(reply)
	if err != nil {
		return Result{}, comic.NewErrorWithCause(comic.ErrTranslation, "malformed model response", err).
			WithContext("unit", unit.ReadingIndex)
	}

	a.resolveSource(source)

	if err := a.renderer.Render(canvas, unit.BoundingBox, translated); err != nil {
		return Result{}, comic.NewErrorWithCause(comic.ErrRender, "failed to render translated text", err).
			WithContext("unit", unit.ReadingIndex)
	}

	return Result{SourceText: source, TranslatedText: translated}, nil
}

// resolveSource pins the source language once detection yields a catalog
// language. Until then prompts keep asking the model to detect it.
func (a *Adapter) resolveSource(sourceText string) {
	if !a.autoPending {
		return
	}
	if code, ok := language.DetectCode(sourceText); ok {
		a.sourceLang = code
		a.autoPending = false
		log.Info("Auto-detected source language: %s", code)
	}
}

func (a *Adapter) buildPrompt(snapshot []comic.ContextEntry) string {
	source := "the original language (detect it yourself)"
	if !a.autoPending {
		source = language.DisplayName(a.sourceLang)
	}
	target := language.DisplayName(a.targetLang)

	var prompt strings.Builder

	prompt.WriteString("You are a professional comic translation expert. Extract the text written in the speech bubble shown in the image and translate it from " + source + " to " + target + ".\n\n")

	if block := comic.FormatContext(snapshot); block != "" {
		prompt.WriteString(block)
		prompt.WriteString("\n")
	}

	prompt.WriteString("=== TRANSLATION GUIDELINES ===\n")
	prompt.WriteString("1. Keep character names and recurring terms consistent with the recent dialogue\n")
	prompt.WriteString("2. Preserve the tone: shouts stay shouts, whispers stay whispers\n")
	prompt.WriteString("3. Prefer short, natural phrasing that fits inside a speech bubble\n")
	prompt.WriteString("4. Render sound effects and onomatopoeia naturally in " + target + "\n")

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Reply with exactly two lines:\n")
	prompt.WriteString(sourceLabel + " <the text exactly as written in the bubble>\n")
	prompt.WriteString(translationLabel + " <the translation>\n")
	prompt.WriteString("If the bubble contains no readable text, reply with the single word " + emptySentinel + ".\n")
	prompt.WriteString("If you cannot process the image, reply with the single word " + errorSentinel + ".\n")
	prompt.WriteString("Do not include any explanations, notes, or additional text.\n")

	return prompt.String()
}

// parseReply splits a model reply into extracted source text and its
// translation. The source section may span multiple lines up to the
// translation label.
func parseReply(reply string) (string, string, error) {
	si := strings.Index(reply, sourceLabel)
	ti := strings.Index(reply, translationLabel)
	if si < 0 || ti < 0 || ti < si {
		return "", "", fmt.Errorf("missing %s/%s labels", sourceLabel, translationLabel)
	}

	source := strings.TrimSpace(reply[si+len(sourceLabel) : ti])
	translated := strings.TrimSpace(reply[ti+len(translationLabel):])
	if source == "" {
		return "", "", fmt.Errorf("empty source text")
	}
	if translated == "" {
		return "", "", fmt.Errorf("empty translation")
	}

	return source, translated, nil
}

// cropRegion encodes the unit's region of the canvas, expanded by padding
// and clamped to the canvas bounds, as a PNG.
func cropRegion(canvas *image.RGBA, box comic.BoundingBox, padding int) ([]byte, error) {
	bounds := canvas.Bounds()
	expanded := box.Expand(padding, bounds.Dx(), bounds.Dy())

	rect := image.Rect(
		expanded.X,
		expanded.Y,
		expanded.X+expanded.Width,
		expanded.Y+expanded.Height,
	)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("failed to encode unit region: %w", err)
	}
	return buf.Bytes(), nil
}
