package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jshinodea/content-retriever/internal/adapters/memory"
	"github.com/jshinodea/content-retriever/pkg/domain"
	"github.com/jshinodea/content-retriever/pkg/observability"
	"github.com/jshinodea/content-retriever/pkg/ports"
)

type failingStore struct {
	ports.SnapshotStore
}

func (failingStore) Save(ctx context.Context, snapshot *domain.TableSnapshot) error {
	return errors.New("backend down")
}

func TestInstrumentStore_CountsSaves(t *testing.T) {
	metrics := observability.New(prometheus.NewRegistry())
	store := observability.InstrumentStore(memory.NewStore(), metrics)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.TableSnapshot{TaskID: "task-1"}))
	require.NoError(t, store.Save(ctx, &domain.TableSnapshot{TaskID: "task-2"}))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SnapshotSaves))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.SnapshotFailures))

	// Reads delegate untouched.
	loaded, err := store.Load(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", loaded.TaskID)
}

func TestInstrumentStore_CountsFailures(t *testing.T) {
	metrics := observability.New(prometheus.NewRegistry())
	store := observability.InstrumentStore(failingStore{memory.NewStore()}, metrics)

	err := store.Save(context.Background(), &domain.TableSnapshot{TaskID: "task-1"})
	require.Error(t, err)

	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.SnapshotSaves))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SnapshotFailures))
}
