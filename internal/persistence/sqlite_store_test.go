package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/contextual-comic-translator/internal/jobs"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_JobsRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	job := &jobs.Job{
		ID:           "11111111-2222-3333-4444-555555555555",
		OriginalName: "comic.pdf",
		InputPath:    "/uploads/comic.pdf",
		SourceLang:   "ja",
		TargetLang:   "en",
		Status:       jobs.StatusQueued,
		Progress:     0,
		Message:      "Waiting in queue...",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, store.UpsertJob(ctx, job))

	all, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, job.ID, all[0].ID)
	assert.Equal(t, job.OriginalName, all[0].OriginalName)
	assert.Equal(t, job.InputPath, all[0].InputPath)
	assert.Equal(t, jobs.StatusQueued, all[0].Status)
	assert.Equal(t, "Waiting in queue...", all[0].Message)
	assert.True(t, all[0].StartedAt.IsZero(), "queued job has no start time")
	assert.True(t, all[0].FinishedAt.IsZero())
}

func TestSQLiteStore_UpsertReplacesRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	job := &jobs.Job{
		ID:        "job-a",
		Status:    jobs.StatusProcessing,
		Progress:  35,
		Message:   "Translating page 1 of 2 (bubble 2 of 4)...",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.UpsertJob(ctx, job))

	job.Status = jobs.StatusCompleted
	job.Progress = 100
	job.Message = "Translation complete"
	job.ResultPath = "/outputs/job-a/comic.pdf"
	job.StartedAt = now.Add(time.Second)
	job.FinishedAt = now.Add(time.Minute)
	job.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, store.UpsertJob(ctx, job))

	all, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, jobs.StatusCompleted, all[0].Status)
	assert.Equal(t, 100, all[0].Progress)
	assert.Equal(t, "/outputs/job-a/comic.pdf", all[0].ResultPath)
	assert.False(t, all[0].StartedAt.IsZero())
	assert.False(t, all[0].FinishedAt.IsZero())
}

func TestSQLiteStore_DeleteJob(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.UpsertJob(ctx, &jobs.Job{ID: "a", Status: jobs.StatusFailed, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, store.UpsertJob(ctx, &jobs.Job{ID: "b", Status: jobs.StatusCompleted, CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, store.DeleteJob(ctx, "a"))

	all, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ID)

	// Deleting an unknown id is a no-op.
	require.NoError(t, store.DeleteJob(ctx, "missing"))
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, store.UpsertJob(ctx, &jobs.Job{ID: "a", Status: jobs.StatusProcessing, Progress: 60, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	all, err := reopened.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, jobs.StatusProcessing, all[0].Status)
	assert.Equal(t, 60, all[0].Progress)
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewSQLiteStore("  ")
	assert.Error(t, err)
}

func TestMigrationVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("012_add_index.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}
