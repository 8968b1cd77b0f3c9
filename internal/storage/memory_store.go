package storage

import (
	"context"
	"sync"

	"portfolio/internal/model"
)

// MemoryStore is a process-local record, lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	rec    model.VisitorCount
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (model.VisitorCount, error) {
	if err := ctx.Err(); err != nil {
		return model.VisitorCount{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.VisitorCount{}, ErrClosed
	}
	return s.rec, nil
}

func (s *MemoryStore) Save(ctx context.Context, rec model.VisitorCount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.rec = rec
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
