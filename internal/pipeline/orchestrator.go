// Package pipeline drives translation jobs end to end: page
// decomposition, bubble detection, contextual translation, rendering
// and output assembly. Each submitted job runs on its own goroutine
// and reports progress through the job store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/MimeLyc/contextual-comic-translator/internal/artifact"
	"github.com/MimeLyc/contextual-comic-translator/internal/comic"
	"github.com/MimeLyc/contextual-comic-translator/internal/jobs"
	"github.com/MimeLyc/contextual-comic-translator/internal/language"
	"github.com/MimeLyc/contextual-comic-translator/internal/pdfcodec"
	"github.com/MimeLyc/contextual-comic-translator/internal/progress"
	"github.com/MimeLyc/contextual-comic-translator/internal/translate"
	"github.com/MimeLyc/contextual-comic-translator/pkg/log"
)

// Config tunes the translation pipeline. Zero values fall back to the
// defaults below.
type Config struct {
	// DPI used when rasterizing PDF pages and assembling them back.
	DPI float64
	// CropPadding is the margin in pixels added around a bubble before
	// the region is sent to the vision model.
	CropPadding int
	// ContextSize caps the number of previous translations kept as
	// prompt context.
	ContextSize int
	// BandFraction tunes reading-order row grouping.
	BandFraction float64
	// JPEGQuality applies when the output artifact is a JPEG.
	JPEGQuality int
}

const (
	defaultCropPadding = 10
	defaultJPEGQuality = 90
)

// ErrInvalidRequest marks submission errors caused by the request
// itself (bad language code, unsupported file type) rather than by the
// service.
var ErrInvalidRequest = errors.New("invalid request")

func (c Config) withDefaults() Config {
	if c.DPI <= 0 {
		c.DPI = pdfcodec.DefaultDPI
	}
	if c.CropPadding <= 0 {
		c.CropPadding = defaultCropPadding
	}
	if c.ContextSize <= 0 {
		c.ContextSize = comic.DefaultContextSize
	}
	if c.BandFraction <= 0 {
		c.BandFraction = comic.DefaultBandFraction
	}
	if c.JPEGQuality <= 0 {
		c.JPEGQuality = defaultJPEGQuality
	}
	return c
}

// Orchestrator owns job submission and execution. One goroutine is
// spawned per submitted job; there is no queue and no cancellation,
// jobs always run to a terminal status.
type Orchestrator struct {
	cfg      Config
	store    *jobs.Store
	files    *artifact.Store
	detector Detector
	chat     translate.Chatter
	renderer translate.Renderer
}

func NewOrchestrator(cfg Config, store *jobs.Store, files *artifact.Store, detector Detector, chat translate.Chatter, renderer translate.Renderer) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg.withDefaults(),
		store:    store,
		files:    files,
		detector: detector,
		chat:     chat,
		renderer: renderer,
	}
}

// Submit validates the request, stores the upload and starts the job
// goroutine. The returned snapshot already has status queued; callers
// poll the store for everything after that.
func (o *Orchestrator) Submit(upload io.Reader, originalName, sourceLang, targetLang string) (*jobs.Job, error) {
	source := sourceLang
	if source == "" {
		source = language.Auto
	}
	if source != language.Auto {
		normalized, err := language.Normalize(source)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid source language: %v", ErrInvalidRequest, err)
		}
		source = normalized
	}

	target, err := language.Normalize(targetLang)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid target language: %v", ErrInvalidRequest, err)
	}

	if !artifact.AllowedExtension(originalName) {
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrInvalidRequest, filepath.Ext(originalName))
	}

	job := jobs.NewJob(originalName, "", source, target)
	inputPath, err := o.files.SaveUpload(job.ID, originalName, upload)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	job.InputPath = inputPath

	snapshot := o.store.Create(job)
	log.Info("Job %s submitted: %s (%s -> %s)", job.ID, originalName, source, target)

	go o.run(job.ID)
	return snapshot, nil
}

// run executes one job to a terminal status. Panics inside the
// pipeline surface as failed jobs instead of crashing the process.
func (o *Orchestrator) run(jobID string) {
	job, ok := o.store.Get(jobID)
	if !ok {
		log.Error("Job %s vanished before processing started", jobID)
		return
	}

	err := comic.SafeExecute(func() error {
		return o.process(context.Background(), job)
	})
	if err != nil {
		o.failJob(jobID, err)
		o.files.RemoveWorkDir(jobID)
	}
}

func (o *Orchestrator) process(ctx context.Context, job *jobs.Job) error {
	tracker := &progress.Tracker{}
	o.update(job.ID, func(j *jobs.Job) {
		j.Status = jobs.StatusProcessing
		j.StartedAt = time.Now()
		applySnapshot(j, tracker, progress.Compute(progress.PhaseSetup, 0, 0, 0, 0))
	})

	workDir, err := o.files.WorkDir(job.ID)
	if err != nil {
		return comic.NewErrorWithCause(comic.ErrDecomposition, "failed to prepare work directory", err)
	}

	pages, err := o.preparePages(ctx, job, workDir)
	if err != nil {
		return err
	}
	o.update(job.ID, func(j *jobs.Job) {
		j.TotalPages = len(pages)
	})

	window := comic.NewContextWindow(o.cfg.ContextSize)
	adapter := translate.NewAdapter(o.chat, o.renderer, job.SourceLang, job.TargetLang, o.cfg.CropPadding)
	processor := newPageProcessor(o.detector, adapter, o.cfg.BandFraction)

	rendered := make([]string, 0, len(pages))
	for i, page := range pages {
		pageNumber := i + 1
		o.update(job.ID, func(j *jobs.Job) {
			j.CurrentPage = pageNumber
			applySnapshot(j, tracker, progress.Compute(progress.PhaseTranslating, pageNumber, len(pages), 0, 0))
		})

		canvas, err := processor.ProcessPage(ctx, page, window, func(done, total int) {
			o.update(job.ID, func(j *jobs.Job) {
				applySnapshot(j, tracker, progress.Compute(progress.PhaseTranslating, pageNumber, len(pages), done, total))
			})
		})
		if err != nil {
			return err
		}

		path, err := saveRenderedPage(workDir, pageNumber, canvas)
		if err != nil {
			return comic.NewErrorWithCause(comic.ErrRender, "failed to save rendered page", err).
				WithContext("page", pageNumber)
		}
		rendered = append(rendered, path)

		o.update(job.ID, func(j *jobs.Job) {
			if j.SourceLang == language.Auto {
				j.SourceLang = adapter.SourceLang()
			}
			applySnapshot(j, tracker, progress.Compute(progress.PhaseTranslating, pageNumber, len(pages), 1, 1))
		})
	}

	o.update(job.ID, func(j *jobs.Job) {
		applySnapshot(j, tracker, progress.Compute(progress.PhaseFinalizing, 0, 0, 0, 0))
	})

	resultPath, err := o.assembleResult(job, rendered)
	if err != nil {
		return err
	}
	o.files.RemoveWorkDir(job.ID)

	o.update(job.ID, func(j *jobs.Job) {
		j.Status = jobs.StatusCompleted
		j.ResultPath = resultPath
		j.FinishedAt = time.Now()
		applySnapshot(j, tracker, progress.Compute(progress.PhaseDone, 0, 0, 0, 0))
	})
	log.Info("Job %s completed: %s", job.ID, resultPath)
	return nil
}

// preparePages turns the uploaded document into page images. PDFs are
// rasterized into the work directory; a plain image is its own single
// page.
func (o *Orchestrator) preparePages(ctx context.Context, job *jobs.Job, workDir string) ([]comic.Page, error) {
	if pdfcodec.IsPDF(job.InputPath) {
		pages, err := pdfcodec.Decompose(ctx, job.InputPath, workDir, o.cfg.DPI)
		if err != nil {
			return nil, comic.NewErrorWithCause(comic.ErrDecomposition, "failed to split document into pages", err)
		}
		return pages, nil
	}

	width, height, err := imageSize(job.InputPath)
	if err != nil {
		return nil, comic.NewErrorWithCause(comic.ErrDecomposition, "unreadable image file", err)
	}
	return []comic.Page{{Number: 1, Path: job.InputPath, Width: width, Height: height}}, nil
}

// assembleResult writes the final artifact: rendered pages back into a
// PDF, or a single re-encoded image.
func (o *Orchestrator) assembleResult(job *jobs.Job, rendered []string) (string, error) {
	outPath, err := o.files.OutputPath(job.ID, job.OriginalName)
	if err != nil {
		return "", comic.NewErrorWithCause(comic.ErrRender, "failed to prepare output location", err)
	}

	if pdfcodec.IsPDF(job.InputPath) {
		if err := pdfcodec.Assemble(rendered, outPath, o.cfg.DPI); err != nil {
			return "", comic.NewErrorWithCause(comic.ErrRender, "failed to assemble output document", err)
		}
		return outPath, nil
	}

	img, err := loadImageFile(rendered[0])
	if err != nil {
		return "", comic.NewErrorWithCause(comic.ErrRender, "failed to reload rendered page", err)
	}
	if err := artifact.SaveImage(outPath, img, o.cfg.JPEGQuality); err != nil {
		return "", comic.NewErrorWithCause(comic.ErrRender, "failed to write output image", err)
	}
	return outPath, nil
}

func (o *Orchestrator) failJob(jobID string, cause error) {
	log.Error("Job %s failed: %v", jobID, cause)
	o.store.Update(jobID, func(j *jobs.Job) {
		j.Status = jobs.StatusFailed
		j.Error = cause.Error()
		j.Message = "Translation failed"
		j.FinishedAt = time.Now()
	})
}

func (o *Orchestrator) update(jobID string, mutate func(*jobs.Job)) {
	o.store.Update(jobID, mutate)
}

// applySnapshot writes a progress snapshot onto the job, floored at
// the tracker's running maximum so progress never moves backwards.
func applySnapshot(j *jobs.Job, tracker *progress.Tracker, s progress.Snapshot) {
	s = tracker.Apply(s)
	j.Progress = s.Percent
	j.Message = s.Message
}

func saveRenderedPage(workDir string, pageNumber int, canvas *image.RGBA) (string, error) {
	path := filepath.Join(workDir, fmt.Sprintf("rendered_%03d.png", pageNumber))
	if err := artifact.SaveImage(path, canvas, 0); err != nil {
		return "", err
	}
	return path, nil
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

func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
