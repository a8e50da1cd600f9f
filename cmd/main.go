package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/contextual-comic-translator/internal/artifact"
	"github.com/MimeLyc/contextual-comic-translator/internal/config"
	"github.com/MimeLyc/contextual-comic-translator/internal/detector"
	"github.com/MimeLyc/contextual-comic-translator/internal/httpapi"
	"github.com/MimeLyc/contextual-comic-translator/internal/jobs"
	"github.com/MimeLyc/contextual-comic-translator/internal/llm"
	"github.com/MimeLyc/contextual-comic-translator/internal/persistence"
	"github.com/MimeLyc/contextual-comic-translator/internal/pipeline"
	"github.com/MimeLyc/contextual-comic-translator/internal/render"
	"github.com/MimeLyc/contextual-comic-translator/internal/service"
	"github.com/MimeLyc/contextual-comic-translator/pkg/log"
)

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()
	log.InitLogger(log.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	persister, err := persistence.NewSQLiteStore(cfg.Paths.DBPath)
	if err != nil {
		log.Fatal("Failed to open job database: %v", err)
	}
	defer persister.Close()

	store := jobs.NewStore(persister)

	files, err := artifact.NewStore(cfg.Paths.UploadDir, cfg.Paths.WorkDir, cfg.Paths.OutputDir)
	if err != nil {
		log.Fatal("Failed to prepare artifact directories: %v", err)
	}

	det, err := detector.NewClient(&detector.Config{
		BaseURL:             cfg.Detector.BaseURL,
		Timeout:             cfg.Detector.Timeout,
		ConfidenceThreshold: cfg.Detector.ConfidenceThreshold,
	})
	if err != nil {
		log.Fatal("Failed to create detector client: %v", err)
	}

	llmClient, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		SiteURL:     cfg.LLM.SiteURL,
		AppName:     cfg.LLM.AppName,
	})
	if err != nil {
		log.Fatal("Failed to create LLM client: %v", err)
	}

	renderer, err := render.NewRenderer(render.Config{
		FontPath:       cfg.Paths.FontPath,
		MaxFontSize:    cfg.Render.MaxFontSize,
		MinFontSize:    cfg.Render.MinFontSize,
		FontStep:       cfg.Render.FontStep,
		EllipsePadding: cfg.Render.EllipsePadding,
	})
	if err != nil {
		log.Fatal("Failed to create text renderer: %v", err)
	}

	orchestrator := pipeline.NewOrchestrator(
		pipeline.Config{
			DPI:          float64(cfg.Pipeline.PDFDPI),
			CropPadding:  cfg.Pipeline.CropPadding,
			ContextSize:  cfg.Pipeline.ContextSize,
			BandFraction: cfg.Pipeline.BandFraction,
			JPEGQuality:  cfg.Render.JPEGQuality,
		},
		store,
		files,
		det,
		llmClient,
		renderer,
	)

	server := httpapi.NewServer(
		orchestrator,
		store,
		httpapi.WithUI(cfg.Server.StaticDir, cfg.Server.UIEnabled),
		httpapi.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
	)

	cronRunner := cron.New()
	retention := service.NewRunnableRetentionService(cfg.Retention, cronRunner, store, files)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runWithComponents(ctx, cfg, retention, cronRunner, server); err != nil {
		log.Error("Service exited with error: %v", err)
		os.Exit(1)
	}
}

// runWithComponents wires the scheduler, cron engine and HTTP server
// together and blocks until the context is cancelled or the server
// stops on its own.
func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	sched scheduler,
	cronRunner cronEngine,
	srv httpServer,
) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
