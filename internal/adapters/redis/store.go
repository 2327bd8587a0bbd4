// Package redis implements the persistence collaborator on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/jshinodea/content-retriever/pkg/domain"
)

const defaultPrefix = "retriever:"

// Store implements ports.SnapshotStore using Redis. Snapshots are stored as
// JSON values under prefix+taskID, with an index set for listing.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for stored snapshots.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for snapshots.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store from connection settings.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists the snapshot.
func (s *Store) Save(ctx context.Context, snapshot *domain.TableSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snapshot.TaskID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(snapshot.TaskID), payload, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), snapshot.TaskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save snapshot %s: %w", snapshot.TaskID, err)
	}
	return nil
}

// Load retrieves the snapshot for a task.
func (s *Store) Load(ctx context.Context, taskID string) (*domain.TableSnapshot, error) {
	payload, err := s.client.Get(ctx, s.key(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("redis load snapshot %s: %w", taskID, err)
	}

	var snapshot domain.TableSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", taskID, err)
	}
	return &snapshot, nil
}

// Delete removes the snapshot and its index entry.
func (s *Store) Delete(ctx context.Context, taskID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(taskID))
	pipe.SRem(ctx, s.indexKey(), taskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete snapshot %s: %w", taskID, err)
	}
	return nil
}

// List returns the indexed task IDs. Entries whose value key has expired via
// TTL are cleaned up lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list snapshots: %w", err)
	}
	if s.ttl == 0 {
		return ids, nil
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis check snapshot %s: %w", id, err)
		}
		if exists == 0 {
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

func (s *Store) key(taskID string) string {
	return s.prefix + "snapshot:" + taskID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}
