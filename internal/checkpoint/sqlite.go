package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ziadkadry99/udahub/internal/db"
)

// SQLite stores checkpoints in the udahub database.
type SQLite struct {
	db *db.DB
}

// NewSQLite creates a checkpointer on an already migrated database.
func NewSQLite(database *db.DB) *SQLite {
	return &SQLite{db: database}
}

// Save upserts the thread's latest checkpoint and appends it to the history.
func (s *SQLite) Save(ctx context.Context, cp Checkpoint) error {
	if err := prepare(&cp); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning checkpoint transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkpoints (thread_id, run_id, ticket_text, stage, complete, state, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(thread_id) DO UPDATE SET
		   run_id = excluded.run_id,
		   ticket_text = excluded.ticket_text,
		   stage = excluded.stage,
		   complete = excluded.complete,
		   state = excluded.state,
		   updated_at = excluded.updated_at`,
		cp.ThreadID, cp.RunID, cp.TicketText, cp.Stage, cp.Complete, string(cp.State), cp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkpoint_history (id, thread_id, run_id, stage, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), cp.ThreadID, cp.RunID, cp.Stage, string(cp.State), cp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending checkpoint history: %w", err)
	}

	return tx.Commit()
}

// Latest returns the thread's checkpoint, or ErrNotFound.
func (s *SQLite) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	var (
		cp    Checkpoint
		state string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT thread_id, run_id, ticket_text, stage, complete, state, updated_at
		 FROM checkpoints WHERE thread_id = ?`, threadID,
	).Scan(&cp.ThreadID, &cp.RunID, &cp.TicketText, &cp.Stage, &cp.Complete, &state, &cp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting checkpoint: %w", err)
	}
	cp.State = []byte(state)
	return &cp, nil
}

// History returns every saved checkpoint of the thread, oldest first. Only
// the latest entry carries ticket text and completion.
func (s *SQLite) History(ctx context.Context, threadID string) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT thread_id, run_id, stage, state, created_at
		 FROM checkpoint_history WHERE thread_id = ?
		 ORDER BY created_at ASC, rowid ASC`, threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying checkpoint history: %w", err)
	}
	defer rows.Close()

	var history []Checkpoint
	for rows.Next() {
		var (
			cp    Checkpoint
			state string
		)
		if err := rows.Scan(&cp.ThreadID, &cp.RunID, &cp.Stage, &state, &cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning checkpoint: %w", err)
		}
		cp.State = []byte(state)
		history = append(history, cp)
	}
	return history, rows.Err()
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
