package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vertextoedge/resumefetch/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newRecord(id string) *domain.DownloadRecord {
	return &domain.DownloadRecord{
		ID:          id,
		URL:         "http://example.com/" + id,
		Path:        "/tmp/" + id,
		ResumedFrom: 100,
		TotalLength: -1,
		StartedAt:   time.Now().Add(-time.Minute),
	}
}

func TestStore_Ping(t *testing.T) {
	store := openTestStore(t)
	if err := store.Ping(); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestStore_CreateAndGetRecord(t *testing.T) {
	store := openTestStore(t)

	rec := newRecord("a")
	if err := store.CreateRecord(rec); err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if rec.Status != domain.StatusInProgress {
		t.Errorf("Status = %q, want %q", rec.Status, domain.StatusInProgress)
	}

	got, err := store.GetRecord("a")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if got.URL != rec.URL || got.Path != rec.Path || got.ResumedFrom != 100 || got.TotalLength != -1 {
		t.Errorf("GetRecord() = %+v", got)
	}
	if got.FinishedAt != nil || got.Error != "" {
		t.Errorf("in-progress record has finish data: %+v", got)
	}
	if d := got.StartedAt.Sub(rec.StartedAt); d > time.Second || d < -time.Second {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, rec.StartedAt)
	}

	if err := store.CreateRecord(newRecord("a")); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate CreateRecord() error = %v, want ErrAlreadyExists", err)
	}
}

func TestStore_GetRecordMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetRecord("nope"); !errors.Is(err, domain.ErrRecordMissing) {
		t.Errorf("GetRecord() error = %v, want ErrRecordMissing", err)
	}
}

func TestStore_FinishRecord(t *testing.T) {
	store := openTestStore(t)

	rec := newRecord("a")
	if err := store.CreateRecord(rec); err != nil {
		t.Fatal(err)
	}

	rec.BytesWritten = 2900
	rec.TotalLength = 3000
	rec.HTTPStatus = 206
	rec.MarkFinished(domain.StatusFailed, "read: connection reset")
	if err := store.FinishRecord(rec); err != nil {
		t.Fatalf("FinishRecord() error = %v", err)
	}

	got, err := store.GetRecord("a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusFailed || got.Error != "read: connection reset" {
		t.Errorf("status/error = %q/%q", got.Status, got.Error)
	}
	if got.BytesWritten != 2900 || got.TotalLength != 3000 || got.HTTPStatus != 206 {
		t.Errorf("GetRecord() = %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt = nil")
	}

	missing := newRecord("ghost")
	missing.MarkFinished(domain.StatusCompleted, "")
	if err := store.FinishRecord(missing); !errors.Is(err, domain.ErrRecordMissing) {
		t.Errorf("FinishRecord(missing) error = %v, want ErrRecordMissing", err)
	}
}

func TestStore_ListRecent(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"first", "second", "third"} {
		if err := store.CreateRecord(newRecord(id)); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.ListRecent(2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(records) != 2 || records[0].ID != "third" || records[1].ID != "second" {
		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ID
		}
		t.Errorf("ListRecent(2) = %v, want [third second]", ids)
	}

	all, err := store.ListRecent(0)
	if err != nil || len(all) != 3 {
		t.Errorf("ListRecent(0) = %d records, err %v", len(all), err)
	}
}

func TestStore_GetStats(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats() on empty store error = %v", err)
	}
	if stats.Total != 0 || stats.BytesWritten != 0 {
		t.Errorf("empty stats = %+v", stats)
	}

	finish := func(id, status string, written int64) {
		rec := newRecord(id)
		if err := store.CreateRecord(rec); err != nil {
			t.Fatal(err)
		}
		if status == domain.StatusInProgress {
			return
		}
		rec.BytesWritten = written
		rec.MarkFinished(status, "")
		if err := store.FinishRecord(rec); err != nil {
			t.Fatal(err)
		}
	}
	finish("a", domain.StatusCompleted, 1000)
	finish("b", domain.StatusAlreadyComplete, 0)
	finish("c", domain.StatusFailed, 250)
	finish("d", domain.StatusCancelled, 50)
	finish("e", domain.StatusInProgress, 0)

	stats, err = store.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	want := domain.HistoryStats{Total: 5, Completed: 2, Failed: 1, Cancelled: 1, InProgress: 1, BytesWritten: 1300}
	if *stats != want {
		t.Errorf("GetStats() = %+v, want %+v", *stats, want)
	}
}
