// Package redisstore persists graph nodes in Redis. Each node body is a
// string value under prefix+entity+":"+key, and each entity keeps a set
// of its stored keys under prefix+entity.
package redisstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conduit-lang/serialkit/pkg/store"
)

// Store is a store.Backend over a Redis client
type Store struct {
	client *redis.Client
	config Config
}

// Config holds Redis connection and key settings
type Config struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to every key
	Prefix string
	// TTL expires stored bodies; zero keeps them forever
	TTL time.Duration
}

// DefaultConfig returns a default Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "serial:",
	}
}

// New connects to Redis and verifies the connection
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewWithClient(client, config), nil
}

// NewWithClient creates a store with an existing client
func NewWithClient(client *redis.Client, config Config) *Store {
	return &Store{client: client, config: config}
}

// Session creates a session that loads and commits through this store
func (s *Store) Session(opts ...store.Option) *store.Session {
	return store.NewSession(s, opts...)
}

// node bodies and entity index sets live under separate segments so a
// node key never names an index set
func (s *Store) nodeKey(entity, key string) string {
	return s.config.Prefix + "node:" + entity + ":" + key
}

func (s *Store) indexKey(entity string) string {
	return s.config.Prefix + "idx:" + entity
}

// Load implements store.Backend
func (s *Store) Load(ctx context.Context, entity, key string) ([]byte, error) {
	body, err := s.client.Get(ctx, s.nodeKey(entity, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return body, nil
}

// Save implements store.Backend. Bodies and index entries are written in
// one MULTI/EXEC transaction.
func (s *Store) Save(ctx context.Context, records []store.Record) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, r := range records {
			pipe.Set(ctx, s.nodeKey(r.Entity, r.Key), r.Body, s.config.TTL)
			pipe.SAdd(ctx, s.indexKey(r.Entity), r.Key)
		}
		return nil
	})
	return err
}

// Keys returns the stored keys of entity in sorted order
func (s *Store) Keys(ctx context.Context, entity string) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey(entity)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the stored node for entity and key
func (s *Store) Delete(ctx context.Context, entity, key string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.nodeKey(entity, key))
		pipe.SRem(ctx, s.indexKey(entity), key)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Clear removes every key under the prefix
func (s *Store) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.config.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}
