package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aschmelyun/snipscrub/internal/replay"
)

// AppendEventBatch stores b after the snippet's existing batches and returns
// its sequence number.
func (s *Store) AppendEventBatch(ctx context.Context, snippetID string, b replay.Batch) (int, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return 0, fmt.Errorf("store: encode batch: %w", err)
	}
	var seq int
	err = s.runTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), -1) + 1 FROM event_batches WHERE snippet_id = ?`,
			snippetID).Scan(&seq); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO event_batches (snippet_id, seq, events_json) VALUES (?, ?, ?)`,
			snippetID, seq, string(data))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("store: append batch to %s: %w", snippetID, err)
	}
	return seq, nil
}

// LoadEventBatches returns the snippet's batches in the order they were
// appended.
func (s *Store) LoadEventBatches(ctx context.Context, snippetID string) ([]replay.Batch, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT seq, events_json FROM event_batches WHERE snippet_id = ? ORDER BY seq`, snippetID)
	if err != nil {
		return nil, fmt.Errorf("store: load batches of %s: %w", snippetID, err)
	}
	defer rows.Close()

	var out []replay.Batch
	for rows.Next() {
		var (
			seq  int
			data string
		)
		if err := rows.Scan(&seq, &data); err != nil {
			return nil, fmt.Errorf("store: scan batch: %w", err)
		}
		var b replay.Batch
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return nil, fmt.Errorf("store: decode batch %d of %s: %w", seq, snippetID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ReplaceEvents swaps the snippet's whole log for events, stored as a single
// batch, and resets the duration and trim region to the new log. The new log
// starts offset seconds into the old one; bookmarks follow it.
func (s *Store) ReplaceEvents(ctx context.Context, snippetID string, events []replay.Event, offset float64) error {
	data, err := json.Marshal(replay.Batch{Events: events})
	if err != nil {
		return fmt.Errorf("store: encode batch: %w", err)
	}
	d := replay.Span(events)
	err = s.runTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE snippets SET duration = ?, trim_start = 0, trim_end = ? WHERE id = ?`,
			d, d, snippetID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("snippet %s: %w", snippetID, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM event_batches WHERE snippet_id = ?`, snippetID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_batches (snippet_id, seq, events_json) VALUES (?, 0, ?)`,
			snippetID, string(data)); err != nil {
			return err
		}
		return rebaseBookmarks(ctx, tx, snippetID, offset, d)
	})
	if err != nil {
		return fmt.Errorf("store: replace events of %s: %w", snippetID, err)
	}
	return nil
}
