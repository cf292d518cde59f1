// Package checkpoint persists pipeline state per conversation thread so that
// interrupted runs can resume.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/udahub/internal/config"
	"github.com/ziadkadry99/udahub/internal/db"
)

// ErrNotFound is returned by Latest when a thread has no checkpoint.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is the state of one thread after a pipeline stage. State is the
// pipeline's own JSON encoding and is opaque here.
type Checkpoint struct {
	ThreadID   string          `json:"thread_id"`
	RunID      string          `json:"run_id"`
	TicketText string          `json:"ticket_text"`
	Stage      string          `json:"stage"`
	Complete   bool            `json:"complete"`
	State      json.RawMessage `json:"state"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Checkpointer stores the latest checkpoint per thread plus an append-only
// history. Save is last-writer-wins per thread.
type Checkpointer interface {
	Save(ctx context.Context, cp Checkpoint) error
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)
	History(ctx context.Context, threadID string) ([]Checkpoint, error)
	Close() error
}

// Open builds the Checkpointer selected by cfg.
func Open(ctx context.Context, cfg config.CheckpointConfig) (Checkpointer, error) {
	switch cfg.Backend {
	case config.CheckpointMemory:
		return NewMemory(), nil
	case config.CheckpointPostgres:
		return NewPostgres(ctx, cfg.DSN)
	case config.CheckpointSQLite, "":
		d, err := db.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening checkpoint database: %w", err)
		}
		return NewSQLite(d), nil
	default:
		return nil, fmt.Errorf("unsupported checkpoint backend: %s", cfg.Backend)
	}
}

func prepare(cp *Checkpoint) error {
	if cp.ThreadID == "" {
		return errors.New("checkpoint thread id is required")
	}
	if len(cp.State) == 0 {
		cp.State = json.RawMessage("{}")
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	return nil
}
