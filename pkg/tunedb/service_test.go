package tunedb

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tunedb/tunedb/pkg/models"
)

// setupTestService creates a test service backed by a temporary database.
func setupTestService(t *testing.T) Service {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_tunedb.sqlite3")

	svc, err := NewService(WithDBPath(dbPath))
	if err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}

	t.Cleanup(func() {
		svc.Close()
	})

	return svc
}

func writeTuneFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing tune file %s: %v", name, err)
	}
	return path
}

// sameSongVariant is byte-identical in both fixture files, so it ingests as
// one instance shared by two collections. It canonicizes identically to
// rollingWave (the comment line is instance-only), so the two form one song.
const rollingWave = `X:1
T:Rolling Wave
K:D
ABC DEF|

`

const sameSongVariant = `X:2
T:Rolling Wave
% copied from a second source
K:D
ABC DEF|

`

const muddyCreek = `X:7
T:Muddy Creek
K:G
GFE DCB|

`

func TestIngestAndStats(t *testing.T) {
	svc := setupTestService(t)
	dir := t.TempDir()
	ctx := context.Background()

	first := writeTuneFile(t, dir, "first.abc", rollingWave+sameSongVariant)
	second := writeTuneFile(t, dir, "second.abc", sameSongVariant+muddyCreek)

	report, err := svc.IngestFile(ctx, first)
	if err != nil {
		t.Fatalf("IngestFile(first) failed: %v", err)
	}
	if !report.NewCollection || report.TunesTotal != 2 || report.NewInstances != 2 {
		t.Errorf("unexpected first report: %+v", report)
	}

	report, err = svc.IngestFile(ctx, second)
	if err != nil {
		t.Fatalf("IngestFile(second) failed: %v", err)
	}
	if report.NewInstances != 1 || report.ExistingInstances != 1 {
		t.Errorf("second file should add one instance and find one: %+v", report)
	}

	res, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if res.Instances != 3 {
		t.Errorf("instances = %d, want 3", res.Instances)
	}
	if res.Songs != 2 {
		t.Errorf("songs = %d, want 2", res.Songs)
	}
	if res.Titles != 2 {
		t.Errorf("titles = %d, want 2", res.Titles)
	}
	if res.Collections != 2 {
		t.Errorf("collections = %d, want 2", res.Collections)
	}
	if res.CollectionInstances != 3 {
		t.Errorf("collection instances = %d, want 3", res.CollectionInstances)
	}
	if res.InstToSongDedup != 33 {
		t.Errorf("inst_to_song_dedup = %d, want 33", res.InstToSongDedup)
	}
	if res.CollToInstDedup != 0 {
		t.Errorf("coll_to_inst_dedup = %d, want 0", res.CollToInstDedup)
	}

	wantInstPerSong := []models.Bin{{Count: 1, Frequency: 1}, {Count: 2, Frequency: 1}}
	if !reflect.DeepEqual(res.InstPerSongHisto, wantInstPerSong) {
		t.Errorf("inst_per_song_histo = %v, want %v", res.InstPerSongHisto, wantInstPerSong)
	}
	wantCollPerInst := []models.Bin{{Count: 1, Frequency: 2}, {Count: 2, Frequency: 1}}
	if !reflect.DeepEqual(res.CollPerInstHisto, wantCollPerInst) {
		t.Errorf("coll_per_inst_histo = %v, want %v", res.CollPerInstHisto, wantCollPerInst)
	}
}

func TestIngestIdempotent(t *testing.T) {
	svc := setupTestService(t)
	dir := t.TempDir()
	ctx := context.Background()

	path := writeTuneFile(t, dir, "tunes.abc", rollingWave+muddyCreek)

	if _, err := svc.IngestFile(ctx, path); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	report, err := svc.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if report.NewCollection {
		t.Error("re-ingesting should find the existing collection")
	}
	if report.NewInstances != 0 || report.ExistingInstances != 2 {
		t.Errorf("re-ingesting should add nothing: %+v", report)
	}

	res, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if res.Instances != 2 || res.Collections != 1 {
		t.Errorf("store changed across re-ingest: %+v", res)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	svc := setupTestService(t)

	res, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed on empty store: %v", err)
	}
	if res.Songs != 0 || res.Instances != 0 || res.Titles != 0 ||
		res.Collections != 0 || res.CollectionInstances != 0 ||
		res.InstToSongDedup != 0 || res.CollToInstDedup != 0 {
		t.Errorf("expected all zeros on an empty store: %+v", res)
	}
	if len(res.InstPerSongHisto) != 0 || len(res.CollPerInstHisto) != 0 {
		t.Errorf("expected empty histograms: %+v", res)
	}
}

func TestNewServiceFromEnv(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "env_tunedb.sqlite3")

	oldPath := os.Getenv("TUNEDB_DB_PATH")
	os.Setenv("TUNEDB_DB_PATH", envPath)
	t.Cleanup(func() {
		if oldPath == "" {
			os.Unsetenv("TUNEDB_DB_PATH")
		} else {
			os.Setenv("TUNEDB_DB_PATH", oldPath)
		}
	})

	svc, err := NewService()
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	svc.Close()

	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", envPath)
	}

	// An explicit path still wins over the environment.
	optPath := filepath.Join(t.TempDir(), "opt_tunedb.sqlite3")
	svc, err = NewService(WithDBPath(optPath))
	if err != nil {
		t.Fatalf("NewService with explicit path failed: %v", err)
	}
	svc.Close()

	if _, err := os.Stat(optPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", optPath)
	}
}

func TestStatsRecomputationIdentical(t *testing.T) {
	svc := setupTestService(t)
	dir := t.TempDir()
	ctx := context.Background()

	path := writeTuneFile(t, dir, "tunes.abc", rollingWave+sameSongVariant+muddyCreek)
	if _, err := svc.IngestFile(ctx, path); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	first, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("first Stats failed: %v", err)
	}
	second, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("second Stats failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("recomputed stats differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestCustomOracle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "oracle_tunedb.sqlite3")

	// An oracle that joins everything produces a single song.
	svc, err := NewService(
		WithDBPath(dbPath),
		WithOracle(models.OracleFunc(func(a, b models.Instance) bool { return true })),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer svc.Close()

	dir := t.TempDir()
	ctx := context.Background()
	path := writeTuneFile(t, dir, "tunes.abc", rollingWave+muddyCreek)
	if _, err := svc.IngestFile(ctx, path); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	res, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if res.Songs != 1 {
		t.Errorf("songs = %d, want 1 under the join-all oracle", res.Songs)
	}
	if res.Instances != 2 {
		t.Errorf("instances = %d, want 2", res.Instances)
	}
}

func TestListCollections(t *testing.T) {
	svc := setupTestService(t)
	dir := t.TempDir()
	ctx := context.Background()

	empty, err := svc.ListCollections()
	if err != nil {
		t.Fatalf("ListCollections failed on empty store: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no collections, got %v", empty)
	}

	path := writeTuneFile(t, dir, "tunes.abc", rollingWave+muddyCreek)
	if _, err := svc.IngestFile(ctx, path); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	collections, err := svc.ListCollections()
	if err != nil {
		t.Fatalf("ListCollections failed: %v", err)
	}
	if len(collections) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(collections))
	}
	if collections[0].URL != path || collections[0].Instances != 2 {
		t.Errorf("unexpected collection info: %+v", collections[0])
	}
}

func TestIngestMissingFile(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "nope.abc"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestIngestCancelledContext(t *testing.T) {
	svc := setupTestService(t)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeTuneFile(t, dir, "tunes.abc", rollingWave)
	if _, err := svc.IngestFile(ctx, path); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}
