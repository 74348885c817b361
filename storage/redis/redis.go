// Package redis provides a Redis-backed storage repository, used when
// several console hosts share one operator slot (for example a jump host
// pool behind the same home directory policy).
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jmcleod/adconsole/storage"
)

const (
	defaultPrefix = "adconsole"
	opTimeout     = 3 * time.Second
)

// Store implements storage.Repository on top of Redis hashes: one hash per
// namespace, one field per key.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

var _ storage.Repository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix used for namespace hashes.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRepository wraps an existing client. The Store owns the client and
// closes it on Close.
func NewRepository(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr string, db int, opts ...Option) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return NewRepository(client, opts...), nil
}

func (s *Store) hashKey(namespace string) string {
	return s.prefix + ":" + namespace
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func (s *Store) Put(namespace, key string, envelope *storage.Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	ctx, cancel := opContext()
	defer cancel()
	return s.client.HSet(ctx, s.hashKey(namespace), key, data).Err()
}

func (s *Store) Get(namespace, key string) (*storage.Envelope, error) {
	ctx, cancel := opContext()
	defer cancel()
	data, err := s.client.HGet(ctx, s.hashKey(namespace), key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%s/%s: %w", namespace, key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var envelope storage.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	return &envelope, nil
}

func (s *Store) Delete(namespace, key string) error {
	ctx, cancel := opContext()
	defer cancel()
	n, err := s.client.HDel(ctx, s.hashKey(namespace), key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", namespace, key, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) List(namespace string) ([]string, error) {
	ctx, cancel := opContext()
	defer cancel()
	return s.client.HKeys(ctx, s.hashKey(namespace)).Result()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
