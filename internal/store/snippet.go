package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindVideo Kind = "video"
	KindCode  Kind = "code"
)

// Snippet is one recording: a video file or a replayable code edit log.
type Snippet struct {
	ID             string
	Kind           Kind
	Title          string
	URI            string
	InitialContent string
	FinalContent   string
	Duration       float64
	TrimStart      float64
	TrimEnd        float64
	CreatedAt      time.Time
}

func (s *Store) CreateSnippet(ctx context.Context, sn *Snippet) error {
	if sn.CreatedAt.IsZero() {
		sn.CreatedAt = time.Now()
	}
	if sn.TrimEnd == 0 {
		sn.TrimEnd = sn.Duration
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO snippets (id, kind, title, uri, initial_content, final_content,
		duration, trim_start, trim_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sn.ID, string(sn.Kind), sn.Title, sn.URI, sn.InitialContent, sn.FinalContent,
		sn.Duration, sn.TrimStart, sn.TrimEnd, sn.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: create snippet %s: %w", sn.ID, err)
	}
	return nil
}

const snippetColumns = `id, kind, title, uri, initial_content, final_content,
	duration, trim_start, trim_end, created_at`

func (s *Store) GetSnippet(ctx context.Context, id string) (*Snippet, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ?`, id)
	sn, err := scanSnippet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snippet %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get snippet %s: %w", id, err)
	}
	return sn, nil
}

// ListSnippets returns every snippet, newest first.
func (s *Store) ListSnippets(ctx context.Context) ([]*Snippet, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list snippets: %w", err)
	}
	defer rows.Close()

	var out []*Snippet
	for rows.Next() {
		sn, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan snippet: %w", err)
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// SaveTrim records the committed trim region of a snippet.
func (s *Store) SaveTrim(ctx context.Context, id string, start, end float64) error {
	return s.updateOne(ctx, "save trim", id,
		`UPDATE snippets SET trim_start = ?, trim_end = ? WHERE id = ?`, start, end, id)
}

// UpdateSnippetURI points a video snippet at a new file after a destructive
// trim. The new file starts offset seconds into the old one; bookmarks are
// moved onto it in the same transaction.
func (s *Store) UpdateSnippetURI(ctx context.Context, id, uri string, duration, offset float64) error {
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE snippets SET uri = ?, duration = ?, trim_start = 0, trim_end = ? WHERE id = ?`,
			uri, duration, duration, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("snippet %s: %w", id, ErrNotFound)
		}
		return rebaseBookmarks(ctx, tx, id, offset, duration)
	})
	if err != nil {
		return fmt.Errorf("store: update uri %s: %w", id, err)
	}
	return nil
}

func (s *Store) updateOne(ctx context.Context, op, id, query string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: %s %s: %w", op, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("snippet %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnippet(sc scanner) (*Snippet, error) {
	var (
		sn      Snippet
		kind    string
		created int64
	)
	err := sc.Scan(&sn.ID, &kind, &sn.Title, &sn.URI, &sn.InitialContent, &sn.FinalContent,
		&sn.Duration, &sn.TrimStart, &sn.TrimEnd, &created)
	if err != nil {
		return nil, err
	}
	sn.Kind = Kind(kind)
	sn.CreatedAt = time.UnixMilli(created)
	return &sn, nil
}
