package checkpoint

import (
	"context"
	"sync"
)

// Memory keeps checkpoints in process memory. State is lost on exit.
type Memory struct {
	mu      sync.RWMutex
	latest  map[string]Checkpoint
	history map[string][]Checkpoint
}

// NewMemory creates an empty in-memory checkpointer.
func NewMemory() *Memory {
	return &Memory{
		latest:  make(map[string]Checkpoint),
		history: make(map[string][]Checkpoint),
	}
}

func (m *Memory) Save(ctx context.Context, cp Checkpoint) error {
	if err := prepare(&cp); err != nil {
		return err
	}
	cp.State = append([]byte(nil), cp.State...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[cp.ThreadID] = cp
	m.history[cp.ThreadID] = append(m.history[cp.ThreadID], Checkpoint{
		ThreadID:  cp.ThreadID,
		RunID:     cp.RunID,
		Stage:     cp.Stage,
		State:     cp.State,
		UpdatedAt: cp.UpdatedAt,
	})
	return nil
}

func (m *Memory) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.latest[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cp, nil
}

func (m *Memory) History(ctx context.Context, threadID string) ([]Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Checkpoint(nil), m.history[threadID]...), nil
}

func (m *Memory) Close() error {
	return nil
}
