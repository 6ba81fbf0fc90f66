package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aschmelyun/snipscrub/config"
	"github.com/aschmelyun/snipscrub/internal/media"
	"github.com/aschmelyun/snipscrub/internal/replay"
	"github.com/aschmelyun/snipscrub/internal/schedule"
	"github.com/aschmelyun/snipscrub/internal/scrub"
	"github.com/aschmelyun/snipscrub/internal/store"
)

var validExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".m4v", ".webm"}

type app struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	st, err := store.Open(cfg.DBPath, store.WithMkdirAll())
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, store: st, logger: logger}, nil
}

func (a *app) Close() error { return a.store.Close() }

func (a *app) transcoder() media.FFmpeg {
	return media.FFmpeg{Path: a.cfg.FFmpegPath, OutputDir: a.cfg.OutputDir}
}

// recordingFile is the JSON an editor extension exports for a code snippet.
// Either batches or a flat events list may be given.
type recordingFile struct {
	Title          string         `json:"title"`
	InitialContent string         `json:"initial_content"`
	FinalContent   string         `json:"final_content"`
	Batches        []replay.Batch `json:"batches"`
	Events         []replay.Event `json:"events"`
}

// importFile stores a video or a recorded edit log as a new snippet.
func (a *app) importFile(ctx context.Context, path, title string) (*store.Snippet, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file '%s' does not exist", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".json":
		return a.importLog(ctx, path, title)
	case slices.Contains(validExtensions, ext):
		return a.importVideo(ctx, path, title)
	}
	return nil, fmt.Errorf("file '%s' is not a video or a recording log", path)
}

func (a *app) importVideo(ctx context.Context, path, title string) (*store.Snippet, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	meta, err := media.Probe(ctx, a.cfg.FFprobePath, abs)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	}
	sn := &store.Snippet{
		ID:       newID(),
		Kind:     store.KindVideo,
		Title:    title,
		URI:      abs,
		Duration: meta.Duration,
	}
	if err := a.store.CreateSnippet(ctx, sn); err != nil {
		return nil, err
	}
	return sn, nil
}

func (a *app) importLog(ctx context.Context, path, title string) (*store.Snippet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var rec recordingFile
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	batches := rec.Batches
	if len(rec.Events) > 0 {
		batches = append(batches, replay.Batch{Events: rec.Events})
	}
	events := replay.Flatten(batches)
	if len(events) == 0 {
		return nil, fmt.Errorf("%s has no edit events", path)
	}

	if rec.FinalContent != "" {
		got := replay.Reconstruct(rec.InitialContent, events, replay.Span(events), 0, replay.Span(events))
		if got != rec.FinalContent {
			a.logger.Warn("replayed log does not reproduce final content", "file", path)
		}
	}
	if title == "" {
		title = rec.Title
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	sn := &store.Snippet{
		ID:             newID(),
		Kind:           store.KindCode,
		Title:          title,
		InitialContent: rec.InitialContent,
		FinalContent:   rec.FinalContent,
		Duration:       replay.Span(events),
	}
	if err := a.store.CreateSnippet(ctx, sn); err != nil {
		return nil, err
	}
	for _, b := range batches {
		if _, err := a.store.AppendEventBatch(ctx, sn.ID, b); err != nil {
			return nil, err
		}
	}
	return sn, nil
}

// loadController builds a controller for sn and restores its saved trim.
// Commands that never play anything pass a schedule.Manual, whose timers
// only fire when advanced.
func (a *app) loadController(ctx context.Context, sched schedule.Scheduler, sn *store.Snippet, opts ...scrub.Option) (*scrub.Controller, error) {
	opts = append(opts, scrub.WithLogger(a.logger))
	var c *scrub.Controller
	switch sn.Kind {
	case store.KindCode:
		batches, err := a.store.LoadEventBatches(ctx, sn.ID)
		if err != nil {
			return nil, err
		}
		c = scrub.New(sched, opts...)
		c.LoadLog(sn.InitialContent, batches)
	default:
		opts = append(opts, scrub.WithTranscoder(a.transcoder(), sn.URI))
		c = scrub.New(sched, opts...)
		c.SetDuration(sn.Duration)
	}
	c.SetTrim(sn.TrimStart, sn.TrimEnd)
	return c, nil
}

// persistTrim writes a finished destructive trim to the store. Bookmarks
// are rebased onto the trimmed timeline in the same transaction.
func (a *app) persistTrim(ctx context.Context, sn *store.Snippet, res scrub.TrimResult) error {
	if res.URI != "" {
		return a.store.UpdateSnippetURI(ctx, sn.ID, res.URI, res.Duration, res.Offset)
	}
	return a.store.ReplaceEvents(ctx, sn.ID, res.Events, res.Offset)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
