package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/contextual-comic-translator/internal/artifact"
	"github.com/MimeLyc/contextual-comic-translator/internal/config"
	"github.com/MimeLyc/contextual-comic-translator/internal/jobs"
)

type seedPersister struct {
	seed    []*jobs.Job
	deleted []string
}

func (p *seedPersister) LoadJobs(_ context.Context) ([]*jobs.Job, error) { return p.seed, nil }

func (p *seedPersister) UpsertJob(_ context.Context, _ *jobs.Job) error { return nil }

func (p *seedPersister) DeleteJob(_ context.Context, id string) error {
	p.deleted = append(p.deleted, id)
	return nil
}

func newRetentionEnv(t *testing.T, persister jobs.Persister, maxAgeHours int) (retentionService, *jobs.Store, string) {
	t.Helper()
	base := t.TempDir()
	files, err := artifact.NewStore(
		filepath.Join(base, "uploads"),
		filepath.Join(base, "work"),
		filepath.Join(base, "outputs"),
	)
	require.NoError(t, err)

	store := jobs.NewStore(persister)
	svc := NewRunnableRetentionService(
		config.RetentionConfig{CronExpr: "@hourly", MaxAgeHours: maxAgeHours},
		cron.New(),
		store,
		files,
	)
	return svc, store, base
}

func seedJob(t *testing.T, base, name string, updatedAt time.Time) *jobs.Job {
	t.Helper()
	job := jobs.NewJob(name, "", "ja", "en")
	job.Status = jobs.StatusCompleted
	job.UpdatedAt = updatedAt

	uploadPath := filepath.Join(base, "uploads", job.ID+".png")
	require.NoError(t, os.WriteFile(uploadPath, []byte("img"), 0o644))
	job.InputPath = uploadPath

	outputDir := filepath.Join(base, "outputs", job.ID)
	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	resultPath := filepath.Join(outputDir, "translated_"+name)
	require.NoError(t, os.WriteFile(resultPath, []byte("result"), 0o644))
	job.ResultPath = resultPath

	return job
}

func TestRetentionSweepRemovesExpiredJobs(t *testing.T) {
	persister := &seedPersister{}
	svc, store, base := newRetentionEnv(t, persister, 72)

	old := seedJob(t, base, "old.png", time.Now().Add(-100*time.Hour))
	fresh := seedJob(t, base, "fresh.png", time.Now())
	persister.seed = []*jobs.Job{old, fresh}

	// Rebuild the store so it hydrates the seeded jobs.
	store = jobs.NewStore(persister)
	svc.store = store

	// A stray work file from a job the registry no longer knows about.
	orphanDir := filepath.Join(base, "work", "orphan")
	require.NoError(t, os.MkdirAll(orphanDir, 0o755))
	orphanFile := filepath.Join(orphanDir, "rendered_001.png")
	require.NoError(t, os.WriteFile(orphanFile, []byte("x"), 0o644))
	stale := time.Now().Add(-100 * time.Hour)
	require.NoError(t, os.Chtimes(orphanFile, stale, stale))

	svc.run(context.Background())

	_, ok := store.Get(old.ID)
	assert.False(t, ok, "expired job should be pruned from the registry")
	_, ok = store.Get(fresh.ID)
	assert.True(t, ok, "recent job should survive the sweep")
	assert.Contains(t, persister.deleted, old.ID)

	assert.NoFileExists(t, old.InputPath)
	assert.NoFileExists(t, old.ResultPath)
	assert.NoDirExists(t, filepath.Join(base, "outputs", old.ID))

	assert.NoFileExists(t, orphanFile)
	assert.NoDirExists(t, orphanDir)

	assert.FileExists(t, fresh.InputPath)
	assert.FileExists(t, fresh.ResultPath)
}

func TestScheduleRegistersCronJob(t *testing.T) {
	svc, _, _ := newRetentionEnv(t, nil, 72)
	svc.cronExpr = "@every 1h"

	require.NoError(t, svc.Schedule(context.Background()))
	assert.Len(t, svc.cron.Entries(), 1)
}

func TestScheduleRejectsInvalidCronExpr(t *testing.T) {
	svc, _, _ := newRetentionEnv(t, nil, 72)
	svc.cronExpr = "not a cron"

	assert.Error(t, svc.Schedule(context.Background()))
}

func TestMaxAgeFallsBackToDefault(t *testing.T) {
	svc, _, _ := newRetentionEnv(t, nil, 0)
	assert.Equal(t, defaultMaxAge, svc.maxAge())

	svc.cfg.MaxAgeHours = 10
	assert.Equal(t, 10*time.Hour, svc.maxAge())
}
