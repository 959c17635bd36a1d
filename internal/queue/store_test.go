package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewItemAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.NewItem(ctx, "/media/episode01.mkv")
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if item.Status != StatusPending {
		t.Fatalf("expected pending, got %s", item.Status)
	}
	if item.Title != "episode01" {
		t.Fatalf("unexpected title: %q", item.Title)
	}

	found, err := store.GetBySourcePath(ctx, "/media/episode01.mkv")
	if err != nil {
		t.Fatalf("get by source: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("lookup mismatch: %+v", found)
	}

	missing, err := store.GetByID(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing item, got %+v", missing)
	}
}

func TestNewItemRejectsDuplicateSource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.NewItem(ctx, "/media/dup.mkv"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := store.NewItem(ctx, "/media/dup.mkv"); err == nil {
		t.Fatal("expected unique constraint error on duplicate source path")
	}
}

func TestUpdatePersistsFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.NewItem(ctx, "/media/a.mkv")
	if err != nil {
		t.Fatalf("new item: %v", err)
	}

	item.Status = StatusTranscribed
	item.MergedFile = "/work/BG_a.srt"
	item.SetProgress("transcribe", "all passes complete", 100)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusTranscribed || got.MergedFile != "/work/BG_a.srt" {
		t.Fatalf("update lost: %+v", got)
	}
	if got.ProgressStage != "transcribe" || got.ProgressPercent != 100 {
		t.Fatalf("progress lost: %+v", got)
	}
}

func TestNextForStatusesOrdersByCreation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.NewItem(ctx, "/media/first.mkv")
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	if _, err := store.NewItem(ctx, "/media/second.mkv"); err != nil {
		t.Fatalf("new item: %v", err)
	}

	next, err := store.NextForStatuses(ctx, StatusPending)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending item, got %+v", next)
	}

	none, err := store.NextForStatuses(ctx, StatusZipping)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no zipping items, got %+v", none)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, _ := store.NewItem(ctx, "/media/a.mkv")
	b, _ := store.NewItem(ctx, "/media/b.mkv")
	b.Status = StatusCompleted
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("update: %v", err)
	}

	pending, err := store.List(ctx, StatusPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("unexpected pending list: %+v", pending)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}
}

func TestResetStuckProcessingRollsBackToStageBoundary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, _ := store.NewItem(ctx, "/media/stuck.mkv")
	item.Status = StatusReconciling
	stale := time.Now().UTC().Add(-time.Hour)
	item.LastHeartbeat = &stale
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	live, _ := store.NewItem(ctx, "/media/live.mkv")
	live.Status = StatusTranscribing
	now := time.Now().UTC()
	live.LastHeartbeat = &now
	if err := store.Update(ctx, live); err != nil {
		t.Fatalf("update: %v", err)
	}

	reset, err := store.ResetStuckProcessing(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("reset stuck: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset, got %d", reset)
	}

	got, _ := store.GetByID(ctx, item.ID)
	if got.Status != StatusTranscribed {
		t.Fatalf("expected rollback to transcribed, got %s", got.Status)
	}
	untouched, _ := store.GetByID(ctx, live.ID)
	if untouched.Status != StatusTranscribing {
		t.Fatalf("live item must not be reset, got %s", untouched.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, _ := store.NewItem(ctx, "/media/bad.mkv")
	item.SetFailed("engine exploded")
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	requeued, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if requeued != 1 {
		t.Fatalf("expected 1 requeued, got %d", requeued)
	}

	got, _ := store.GetByID(ctx, item.ID)
	if got.Status != StatusPending || got.ErrorMessage != "" {
		t.Fatalf("retry did not reset item: %+v", got)
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, _ := store.NewItem(ctx, "/media/a.mkv")
	b, _ := store.NewItem(ctx, "/media/b.mkv")
	_, _ = store.NewItem(ctx, "/media/c.mkv")
	a.Status = StatusCompleted
	_ = store.Update(ctx, a)
	b.Status = StatusCleaning
	_ = store.Update(ctx, b)

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Processing != 1 || health.Completed != 1 {
		t.Fatalf("unexpected summary: %+v", health)
	}
}

func TestClearVariants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, _ := store.NewItem(ctx, "/media/a.mkv")
	b, _ := store.NewItem(ctx, "/media/b.mkv")
	_, _ = store.NewItem(ctx, "/media/c.mkv")
	a.Status = StatusCompleted
	_ = store.Update(ctx, a)
	b.Status = StatusFailed
	_ = store.Update(ctx, b)

	if n, err := store.ClearCompleted(ctx); err != nil || n != 1 {
		t.Fatalf("clear completed = %d, %v", n, err)
	}
	if n, err := store.ClearFailed(ctx); err != nil || n != 1 {
		t.Fatalf("clear failed = %d, %v", n, err)
	}
	if n, err := store.Clear(ctx); err != nil || n != 1 {
		t.Fatalf("clear = %d, %v", n, err)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Reconciling "); !ok || status != StatusReconciling {
		t.Fatalf("parse failed: %v %v", status, ok)
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Fatal("bogus status must not parse")
	}
}
