package memory

import (
	"context"
	"sync"

	"github.com/jshinodea/content-retriever/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.TableSnapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.TableSnapshot),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, snapshot *domain.TableSnapshot) error {
	// Deep copy to ensure isolation, similar to serialization
	cp := copySnapshot(snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snapshot.TaskID] = cp
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, taskID string) (*domain.TableSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.data[taskID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}

	// Copy on read so the caller can't mutate store state through the pointer
	return copySnapshot(snapshot), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, taskID)
	return nil
}

// List returns task IDs with stored snapshots.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func copySnapshot(in *domain.TableSnapshot) *domain.TableSnapshot {
	out := &domain.TableSnapshot{
		TaskID:  in.TaskID,
		Columns: make([]string, len(in.Columns)),
		Rows:    make([]map[string]string, 0, len(in.Rows)),
		SavedAt: in.SavedAt,
	}
	copy(out.Columns, in.Columns)
	for _, row := range in.Rows {
		cp := make(map[string]string, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows = append(out.Rows, cp)
	}
	return out
}
