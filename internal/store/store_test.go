package store

import (
	"context"
	"errors"
	"maps"
	"path/filepath"
	"testing"
	"time"

	"github.com/aschmelyun/snipscrub/internal/bookmark"
	"github.com/aschmelyun/snipscrub/internal/replay"

	_ "modernc.org/sqlite"
)

func seedSnippet(t *testing.T, s *Store, id string) *Snippet {
	t.Helper()
	sn := &Snippet{
		ID:             id,
		Kind:           KindCode,
		Title:          "fizzbuzz",
		InitialContent: "package main\n",
		Duration:       12.5,
		CreatedAt:      time.UnixMilli(1_700_000_000_000),
	}
	if err := s.CreateSnippet(context.Background(), sn); err != nil {
		t.Fatalf("create snippet: %v", err)
	}
	return sn
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := OpenMemory(t)
	for _, table := range []string{"snippets", "event_batches", "bookmarks"} {
		var name string
		err := s.DB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpen_MkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "snipscrub.db")
	s, err := Open(path, WithMkdirAll())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	seedSnippet(t, s, "sn-1")
}

func TestSnippet_RoundTrip(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	want := seedSnippet(t, s, "sn-1")

	got, err := s.GetSnippet(ctx, "sn-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != KindCode || got.Title != want.Title || got.InitialContent != want.InitialContent {
		t.Errorf("snippet: got %+v", got)
	}
	if got.TrimStart != 0 || got.TrimEnd != 12.5 {
		t.Errorf("trim: got [%v,%v], want [0,12.5]", got.TrimStart, got.TrimEnd)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, want.CreatedAt)
	}

	if _, err := s.GetSnippet(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSnippet(missing): got %v, want ErrNotFound", err)
	}
}

func TestListSnippets_NewestFirst(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	for i, id := range []string{"old", "mid", "new"} {
		sn := &Snippet{ID: id, Kind: KindVideo, CreatedAt: time.UnixMilli(int64(1000 * (i + 1)))}
		if err := s.CreateSnippet(ctx, sn); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	list, err := s.ListSnippets(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != "new" || list[2].ID != "old" {
		t.Errorf("order: got %v", []string{list[0].ID, list[1].ID, list[2].ID})
	}
}

func TestSaveTrimAndURI(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	seedSnippet(t, s, "sn-1")

	if err := s.SaveTrim(ctx, "sn-1", 2, 9); err != nil {
		t.Fatalf("save trim: %v", err)
	}
	got, _ := s.GetSnippet(ctx, "sn-1")
	if got.TrimStart != 2 || got.TrimEnd != 9 {
		t.Errorf("trim: got [%v,%v], want [2,9]", got.TrimStart, got.TrimEnd)
	}

	if err := s.UpdateSnippetURI(ctx, "sn-1", "/tmp/a_trim.mp4", 7, 2); err != nil {
		t.Fatalf("update uri: %v", err)
	}
	got, _ = s.GetSnippet(ctx, "sn-1")
	if got.URI != "/tmp/a_trim.mp4" || got.Duration != 7 || got.TrimStart != 0 || got.TrimEnd != 7 {
		t.Errorf("after uri update: got %+v", got)
	}

	if err := s.SaveTrim(ctx, "missing", 0, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveTrim(missing): got %v, want ErrNotFound", err)
	}
}

func TestEventBatches_Ordered(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	seedSnippet(t, s, "sn-1")

	batches := []replay.Batch{
		{Events: []replay.Event{{Type: replay.Insert, Timestamp: 1000, Text: "a"}}},
		{Events: []replay.Event{{Type: replay.Insert, Timestamp: 2000, From: 1, Text: "b"}}},
		{Events: []replay.Event{{Type: replay.Delete, Timestamp: 3000, From: 0, To: 1, Removed: "a"}}},
	}
	for i, b := range batches {
		seq, err := s.AppendEventBatch(ctx, "sn-1", b)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if seq != i {
			t.Errorf("seq: got %d, want %d", seq, i)
		}
	}

	got, err := s.LoadEventBatches(ctx, "sn-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("batches: got %d, want 3", len(got))
	}
	for i := range got {
		if got[i].Events[0] != batches[i].Events[0] {
			t.Errorf("batch %d: got %+v, want %+v", i, got[i].Events[0], batches[i].Events[0])
		}
	}
}

func TestAppendEventBatch_UnknownSnippet(t *testing.T) {
	s := OpenMemory(t)
	_, err := s.AppendEventBatch(context.Background(), "missing", replay.Batch{})
	if err == nil {
		t.Error("append to missing snippet: got nil error")
	}
}

func TestReplaceEvents(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	seedSnippet(t, s, "sn-1")
	for range 3 {
		if _, err := s.AppendEventBatch(ctx, "sn-1", replay.Batch{
			Events: []replay.Event{{Type: replay.Insert, Timestamp: 1000, Text: "x"}},
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	kept := []replay.Event{
		{Type: replay.Insert, Timestamp: 1000, Text: "a"},
		{Type: replay.Insert, Timestamp: 4000, From: 1, Text: "b"},
	}
	if err := s.ReplaceEvents(ctx, "sn-1", kept, 0); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.LoadEventBatches(ctx, "sn-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || len(got[0].Events) != 2 {
		t.Fatalf("after replace: got %+v", got)
	}
	sn, _ := s.GetSnippet(ctx, "sn-1")
	if sn.Duration != 3 || sn.TrimStart != 0 || sn.TrimEnd != 3 {
		t.Errorf("snippet after replace: got duration %v trim [%v,%v]", sn.Duration, sn.TrimStart, sn.TrimEnd)
	}

	if err := s.ReplaceEvents(ctx, "missing", kept, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReplaceEvents(missing): got %v, want ErrNotFound", err)
	}
}

func TestBookmarks(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	seedSnippet(t, s, "sn-1")

	created := time.UnixMilli(1_700_000_000_000)
	for _, b := range []bookmark.Bookmark{
		{ID: "b2", Timestamp: 8, Label: "outro", CreatedAt: created},
		{ID: "b1", Timestamp: 1.5, Label: "intro", CreatedAt: created},
	} {
		if err := s.SaveBookmark(ctx, "sn-1", b); err != nil {
			t.Fatalf("save %s: %v", b.ID, err)
		}
	}
	// Saving again updates in place.
	if err := s.SaveBookmark(ctx, "sn-1", bookmark.Bookmark{ID: "b2", Timestamp: 9, Label: "end", CreatedAt: created}); err != nil {
		t.Fatalf("resave: %v", err)
	}

	list, err := s.ListBookmarks(ctx, "sn-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b1" || list[1].Label != "end" || list[1].Timestamp != 9 {
		t.Fatalf("list: got %+v", list)
	}
	if !list[0].CreatedAt.Equal(created) {
		t.Errorf("CreatedAt: got %v, want %v", list[0].CreatedAt, created)
	}

	if err := s.DeleteBookmark(ctx, "b1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteBookmark(ctx, "b1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
	list, _ = s.ListBookmarks(ctx, "sn-1")
	if len(list) != 1 {
		t.Errorf("after delete: got %d bookmarks, want 1", len(list))
	}
}

func saveMarks(t *testing.T, s *Store, snippetID string, stamps map[string]float64) {
	t.Helper()
	for id, ts := range stamps {
		b := bookmark.Bookmark{ID: id, Timestamp: ts, CreatedAt: time.UnixMilli(1_700_000_000_000)}
		if err := s.SaveBookmark(context.Background(), snippetID, b); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
}

func markTimes(t *testing.T, s *Store, snippetID string) map[string]float64 {
	t.Helper()
	list, err := s.ListBookmarks(context.Background(), snippetID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	out := make(map[string]float64, len(list))
	for _, b := range list {
		out[b.ID] = b.Timestamp
	}
	return out
}

func TestUpdateSnippetURI_RebasesBookmarks(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	seedSnippet(t, s, "sn-1")
	seedSnippet(t, s, "sn-2")
	saveMarks(t, s, "sn-1", map[string]float64{"before": 1, "start": 3, "mid": 4, "end": 8, "after": 9})
	saveMarks(t, s, "sn-2", map[string]float64{"other": 9})

	// Trimming [3, 8] leaves a 5s file that starts at old 3s.
	if err := s.UpdateSnippetURI(ctx, "sn-1", "/tmp/a_trim.mp4", 5, 3); err != nil {
		t.Fatalf("update uri: %v", err)
	}
	got := markTimes(t, s, "sn-1")
	want := map[string]float64{"start": 0, "mid": 1, "end": 5}
	if !maps.Equal(got, want) {
		t.Errorf("bookmarks: got %v, want %v", got, want)
	}
	if other := markTimes(t, s, "sn-2"); other["other"] != 9 {
		t.Errorf("other snippet's bookmarks moved: %v", other)
	}
}

func TestReplaceEvents_RebasesBookmarks(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	seedSnippet(t, s, "sn-1")
	saveMarks(t, s, "sn-1", map[string]float64{"early": 0.5, "kept": 3.5, "late": 7})

	kept := []replay.Event{
		{Type: replay.Insert, Timestamp: 1000, Text: "a"},
		{Type: replay.Insert, Timestamp: 4000, From: 1, Text: "b"},
	}
	if err := s.ReplaceEvents(ctx, "sn-1", kept, 2); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got, want := markTimes(t, s, "sn-1"), map[string]float64{"kept": 1.5}; !maps.Equal(got, want) {
		t.Errorf("bookmarks: got %v, want %v", got, want)
	}
}

func TestUpdateSnippetURI_FailedRebaseKeepsOldFile(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	sn := seedSnippet(t, s, "sn-1")
	if _, err := s.DB.Exec(`DROP TABLE bookmarks`); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateSnippetURI(ctx, "sn-1", "/tmp/a_trim.mp4", 5, 3); err == nil {
		t.Fatal("update uri without bookmark table: got nil error")
	}
	got, _ := s.GetSnippet(ctx, "sn-1")
	if got.URI != sn.URI || got.Duration != sn.Duration {
		t.Errorf("snippet after failed trim: got uri %q duration %v, want unchanged", got.URI, got.Duration)
	}
}

func TestBookmarks_SnippetMustExist(t *testing.T) {
	s := OpenMemory(t)
	err := s.SaveBookmark(context.Background(), "missing", bookmark.Bookmark{ID: "b1", CreatedAt: time.Now()})
	if err == nil {
		t.Error("save bookmark for missing snippet: got nil error")
	}
}
