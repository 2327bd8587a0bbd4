package observability

import (
	"context"

	"github.com/jshinodea/content-retriever/pkg/domain"
	"github.com/jshinodea/content-retriever/pkg/ports"
)

// InstrumentedStore wraps a SnapshotStore with save/failure counters.
type InstrumentedStore struct {
	next    ports.SnapshotStore
	metrics *Metrics
}

// InstrumentStore decorates a store with the given metric set.
func InstrumentStore(next ports.SnapshotStore, metrics *Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, metrics: metrics}
}

// Save persists the snapshot and records the outcome.
func (s *InstrumentedStore) Save(ctx context.Context, snapshot *domain.TableSnapshot) error {
	err := s.next.Save(ctx, snapshot)
	if err != nil {
		s.metrics.SnapshotFailures.Inc()
		return err
	}
	s.metrics.SnapshotSaves.Inc()
	return nil
}

// Load delegates to the wrapped store.
func (s *InstrumentedStore) Load(ctx context.Context, taskID string) (*domain.TableSnapshot, error) {
	return s.next.Load(ctx, taskID)
}

// Delete delegates to the wrapped store.
func (s *InstrumentedStore) Delete(ctx context.Context, taskID string) error {
	return s.next.Delete(ctx, taskID)
}

// List delegates to the wrapped store.
func (s *InstrumentedStore) List(ctx context.Context) ([]string, error) {
	return s.next.List(ctx)
}
