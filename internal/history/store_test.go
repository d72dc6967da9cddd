package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/pitufo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{
			name:   "creates database successfully",
			dbPath: filepath.Join(t.TempDir(), "test.db"),
		},
		{
			name:   "handles in-memory database",
			dbPath: ":memory:",
		},
		{
			name:   "creates parent directories if needed",
			dbPath: filepath.Join(t.TempDir(), "nested", "dir", "test.db"),
		},
		{
			name:    "returns error when parent is a file",
			dbPath:  filepath.Join(blocker, "test.db"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, store)
			defer store.Close()

			version, err := store.GetLatestVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, len(migrations), version)
			assert.Equal(t, tt.dbPath, store.Path())
		})
	}
}

func TestApplyMigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	first, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.ApplyMigrations(ctx))
	require.NoError(t, first.Close())

	second, err := NewStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.ApplyMigrations(ctx))

	var count int
	require.NoError(t, second.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version`).Scan(&count))
	assert.Equal(t, len(migrations), count)

	version, err := second.GetLatestVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, version)
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings := RunSettings{Minify: true, StripBOM: true, MaxDepth: 3}
	recorder, err := store.BeginRun(ctx, "/data", settings)
	require.NoError(t, err)

	_, err = uuid.Parse(recorder.RunID())
	require.NoError(t, err, "run ID should be a UUID")

	run, err := store.GetRun(ctx, recorder.RunID())
	require.NoError(t, err)
	assert.Equal(t, "/data", run.Root)
	assert.Equal(t, settings, run.Settings)
	assert.Nil(t, run.FinishedAt)
	assert.WithinDuration(t, time.Now(), run.StartedAt, time.Minute)

	ok := models.FileOutcome{
		Path: "/data/a.json", Changed: true, BytesIn: 30, BytesOut: 20,
		DigestBefore: "before", DigestAfter: "after", Duration: 5 * time.Millisecond,
	}
	bad := models.Failure("/data/b.json", models.KindParse, errors.New("invalid character 'x'"))

	require.NoError(t, recorder.RecordOutcome(ctx, ok))
	require.NoError(t, recorder.RecordOutcome(ctx, bad))

	summary := models.RunSummary{Duration: 2 * time.Second}
	summary.Add(ok)
	summary.Add(bad)
	require.NoError(t, recorder.Finish(ctx, summary))

	run, err = store.GetRun(ctx, recorder.RunID())
	require.NoError(t, err)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 2, run.Candidates)
	assert.Equal(t, 1, run.Rewritten)
	assert.Equal(t, 0, run.Unchanged)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, int64(30), run.BytesIn)
	assert.Equal(t, int64(20), run.BytesOut)
	assert.Equal(t, 2*time.Second, run.Duration)

	outcomes, err := store.RunOutcomes(ctx, recorder.RunID())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "/data/a.json", outcomes[0].Path)
	assert.Equal(t, models.StatusRewritten, outcomes[0].Status)
	assert.Equal(t, "before", outcomes[0].DigestBefore)
	assert.Equal(t, "after", outcomes[0].DigestAfter)
	assert.Equal(t, 5*time.Millisecond, outcomes[0].Duration)
	assert.Empty(t, outcomes[0].ErrorKind)

	assert.Equal(t, "/data/b.json", outcomes[1].Path)
	assert.Equal(t, models.StatusFailed, outcomes[1].Status)
	assert.Equal(t, "parse", outcomes[1].ErrorKind)
	assert.Equal(t, "invalid character 'x'", outcomes[1].ErrorMessage)
	assert.Empty(t, outcomes[1].DigestAfter)
}

func TestFinishRunUnknownID(t *testing.T) {
	store := newTestStore(t)
	err := store.FinishRun(context.Background(), uuid.NewString(), models.RunSummary{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestGetRunUnknownID(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRecentRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := store.BeginRun(ctx, "/root", RunSettings{})
		require.NoError(t, err)
		ids = append(ids, rec.RunID())
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	all, err := store.RecentRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunOutcomesEmpty(t *testing.T) {
	store := newTestStore(t)
	outcomes, err := store.RunOutcomes(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestConcurrentRecordOutcome(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.BeginRun(ctx, "/root", RunSettings{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- rec.RecordOutcome(ctx, models.FileOutcome{Path: "/root/x.json"})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	outcomes, err := store.RunOutcomes(ctx, rec.RunID())
	require.NoError(t, err)
	assert.Len(t, outcomes, 20)
}
