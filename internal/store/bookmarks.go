package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aschmelyun/snipscrub/internal/bookmark"
)

func (s *Store) SaveBookmark(ctx context.Context, snippetID string, b bookmark.Bookmark) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO bookmarks (id, snippet_id, timestamp, label, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET timestamp = excluded.timestamp, label = excluded.label`,
		b.ID, snippetID, b.Timestamp, b.Label, b.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: save bookmark %s: %w", b.ID, err)
	}
	return nil
}

func (s *Store) DeleteBookmark(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete bookmark %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListBookmarks returns the snippet's bookmarks ordered by timestamp.
func (s *Store) ListBookmarks(ctx context.Context, snippetID string) ([]bookmark.Bookmark, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, timestamp, label, created_at FROM bookmarks
		WHERE snippet_id = ? ORDER BY timestamp, id`, snippetID)
	if err != nil {
		return nil, fmt.Errorf("store: list bookmarks of %s: %w", snippetID, err)
	}
	defer rows.Close()

	var out []bookmark.Bookmark
	for rows.Next() {
		var (
			b       bookmark.Bookmark
			created int64
		)
		if err := rows.Scan(&b.ID, &b.Timestamp, &b.Label, &created); err != nil {
			return nil, fmt.Errorf("store: scan bookmark: %w", err)
		}
		b.CreatedAt = time.UnixMilli(created)
		out = append(out, b)
	}
	return out, rows.Err()
}

// rebaseSlack absorbs float error at the edges of a rebased timeline.
const rebaseSlack = 1e-6

// rebaseBookmarks moves a snippet's bookmarks back by offset seconds after a
// destructive trim. Bookmarks that fall outside [0, duration] are deleted.
func rebaseBookmarks(ctx context.Context, tx *sql.Tx, snippetID string, offset, duration float64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE snippet_id = ?
		AND (timestamp - ? < ? OR timestamp - ? > ?)`,
		snippetID, offset, -rebaseSlack, offset, duration+rebaseSlack); err != nil {
		return fmt.Errorf("drop trimmed bookmarks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookmarks SET timestamp = MIN(MAX(timestamp - ?, 0), ?) WHERE snippet_id = ?`,
		offset, duration, snippetID); err != nil {
		return fmt.Errorf("rebase bookmarks: %w", err)
	}
	return nil
}
