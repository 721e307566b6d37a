// Package redis implements triallog.Store on Redis, for rigs that ship
// their trial logs to a shared instance instead of keeping them on the
// acquisition host.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/openrig/trialctl/pkg/triallog"
)

// Store appends rows to a Redis list per session.
type Store struct {
	client *backend.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix for session lists.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a store connected to the given address.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "trialctl:log:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(session string) string {
	return s.prefix + session
}

// Append pushes one row onto the session's list.
func (s *Store) Append(ctx context.Context, session string, row triallog.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	if err := s.client.RPush(ctx, s.key(session), data).Err(); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// Rows returns all rows logged for a session, in append order.
func (s *Store) Rows(ctx context.Context, session string) ([]triallog.Row, error) {
	items, err := s.client.LRange(ctx, s.key(session), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	rows := make([]triallog.Row, 0, len(items))
	for _, item := range items {
		var row triallog.Row
		if err := json.Unmarshal([]byte(item), &row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Clear deletes the session's list.
func (s *Store) Clear(ctx context.Context, session string) error {
	if err := s.client.Del(ctx, s.key(session)).Err(); err != nil {
		return fmt.Errorf("failed to clear rows: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
