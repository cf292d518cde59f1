package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS udahub_checkpoints (
    thread_id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    ticket_text TEXT NOT NULL,
    stage TEXT NOT NULL,
    complete BOOLEAN NOT NULL DEFAULT FALSE,
    state JSONB NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS udahub_checkpoint_history (
    id UUID PRIMARY KEY,
    seq BIGSERIAL,
    thread_id TEXT NOT NULL,
    run_id TEXT NOT NULL,
    stage TEXT NOT NULL,
    state JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_udahub_checkpoint_history_thread ON udahub_checkpoint_history(thread_id, seq);
`

// Postgres stores checkpoints in a shared PostgreSQL database, for HTTP
// servers running several replicas.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and creates the checkpoint tables if needed.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres checkpoint backend requires a dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating checkpoint tables: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, cp Checkpoint) error {
	if err := prepare(&cp); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning checkpoint transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO udahub_checkpoints (thread_id, run_id, ticket_text, stage, complete, state, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (thread_id) DO UPDATE SET
		   run_id = EXCLUDED.run_id,
		   ticket_text = EXCLUDED.ticket_text,
		   stage = EXCLUDED.stage,
		   complete = EXCLUDED.complete,
		   state = EXCLUDED.state,
		   updated_at = EXCLUDED.updated_at`,
		cp.ThreadID, cp.RunID, cp.TicketText, cp.Stage, cp.Complete, string(cp.State), cp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO udahub_checkpoint_history (id, thread_id, run_id, stage, state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), cp.ThreadID, cp.RunID, cp.Stage, string(cp.State), cp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending checkpoint history: %w", err)
	}

	return tx.Commit(ctx)
}

func (p *Postgres) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	var (
		cp    Checkpoint
		state string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT thread_id, run_id, ticket_text, stage, complete, state::text, updated_at
		 FROM udahub_checkpoints WHERE thread_id = $1`, threadID,
	).Scan(&cp.ThreadID, &cp.RunID, &cp.TicketText, &cp.Stage, &cp.Complete, &state, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting checkpoint: %w", err)
	}
	cp.State = []byte(state)
	return &cp, nil
}

func (p *Postgres) History(ctx context.Context, threadID string) ([]Checkpoint, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT thread_id, run_id, stage, state::text, created_at
		 FROM udahub_checkpoint_history WHERE thread_id = $1
		 ORDER BY seq ASC`, threadID,
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

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
