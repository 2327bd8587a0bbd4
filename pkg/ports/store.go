package ports

import (
	"context"

	"github.com/jshinodea/content-retriever/pkg/domain"
)

// SnapshotStore is the persistence collaborator. Failures are surfaced to
// the session as an error message, not retried automatically by the core.
type SnapshotStore interface {
	// Save persists the table snapshot for a task.
	Save(ctx context.Context, snapshot *domain.TableSnapshot) error

	// Load retrieves the snapshot for a task.
	// Returns domain.ErrSnapshotNotFound if none exists.
	Load(ctx context.Context, taskID string) (*domain.TableSnapshot, error)

	// Delete removes the snapshot for a task.
	Delete(ctx context.Context, taskID string) error

	// List returns the task IDs with stored snapshots.
	List(ctx context.Context) ([]string, error)
}
