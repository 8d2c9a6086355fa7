package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/serialkit/pkg/serial"
)

// Record is the stored form of one node
type Record struct {
	Entity string
	Key    string
	Body   []byte
}

// Backend reads and writes node bodies
type Backend interface {
	// Load returns the stored body for entity and key, or ErrNotFound
	Load(ctx context.Context, entity, key string) ([]byte, error)

	// Save writes records atomically
	Save(ctx context.Context, records []Record) error
}

// Session is a serial.Context backed by a Backend. Nodes are resolved
// through an identity map first, then loaded from the backend, and
// allocated fresh when neither has them.
type Session struct {
	backend Backend
	codec   *serial.Codec
	tracker *Tracker
	logger  *zap.Logger
}

// Option configures a Session
type Option func(*sessionOptions)

type sessionOptions struct {
	registry *serial.Registry
	config   *serial.Configuration
	logger   *zap.Logger
}

// WithRegistry sets the registry entity types are allocated from
func WithRegistry(reg *serial.Registry) Option {
	return func(o *sessionOptions) { o.registry = reg }
}

// WithConfiguration sets the naming configuration used for stored bodies
func WithConfiguration(cfg *serial.Configuration) Option {
	return func(o *sessionOptions) { o.config = cfg }
}

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *sessionOptions) { o.logger = logger }
}

// NewSession creates a session over backend
func NewSession(backend Backend, opts ...Option) *Session {
	o := sessionOptions{
		registry: serial.DefaultRegistry(),
		config:   serial.Shared(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	codec := serial.NewCodec(
		serial.WithRegistry(o.registry),
		serial.WithConfiguration(o.config),
		serial.WithLogger(o.logger),
		serial.WithReferences(true),
	)
	return &Session{
		backend: backend,
		codec:   codec,
		tracker: NewTracker(codec),
		logger:  o.logger,
	}
}

// Obtain implements serial.Context
func (s *Session) Obtain(ctx context.Context, entity, key string) (serial.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		node, _, err := s.tracker.Allocate(entity, key)
		return node, err
	}
	if node, ok := s.tracker.Lookup(entity, key); ok {
		return node, nil
	}

	body, err := s.backend.Load(ctx, entity, key)
	switch {
	case errors.Is(err, ErrNotFound):
		node, _, err := s.tracker.Allocate(entity, key)
		return node, err
	case err != nil:
		return nil, fmt.Errorf("failed to load %s %q: %w", entity, key, err)
	}
	return s.restore(ctx, entity, key, body)
}

// Get returns the node for entity and key, loading it when it is not yet
// tracked. It returns ErrNotFound when the backend has no such node.
func (s *Session) Get(ctx context.Context, entity, key string) (serial.Entity, error) {
	if node, ok := s.tracker.Lookup(entity, key); ok {
		return node, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := s.backend.Load(ctx, entity, key)
	if err != nil {
		return nil, err
	}
	return s.restore(ctx, entity, key, body)
}

// restore tracks a node for a stored body and applies the body to it.
func (s *Session) restore(ctx context.Context, entity, key string, body []byte) (serial.Entity, error) {
	// the node is tracked before its body is applied so that references
	// back to it resolve to the same node
	node, _, err := s.tracker.Allocate(entity, key)
	if err != nil {
		return nil, err
	}
	v, err := serial.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored %s %q: %w", entity, key, err)
	}
	if err := s.codec.PopulateInto(ctx, s, node, v); err != nil {
		return nil, err
	}

	s.logger.Debug("node loaded", zap.String("entity", entity), zap.String("key", key))
	return node, nil
}

// Commit serializes every tracked node and saves them in one batch
func (s *Session) Commit(ctx context.Context) error {
	entries := s.tracker.Entries()
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		if id, ok := s.codec.Identity(e.Node); ok && id != e.Key {
			s.logger.Warn("identity changed since the node was tracked",
				zap.String("entity", e.Entity), zap.String("key", e.Key), zap.String("identity", id))
		}
		body, err := s.codec.Marshal(e.Node)
		if err != nil {
			return fmt.Errorf("failed to serialize %s %q: %w", e.Entity, e.Key, err)
		}
		records = append(records, Record{Entity: e.Entity, Key: e.Key, Body: body})
	}
	if len(records) == 0 {
		return nil
	}
	if err := s.backend.Save(ctx, records); err != nil {
		return err
	}

	s.logger.Debug("session committed", zap.Int("nodes", len(records)))
	return nil
}

// Tracker returns the session's identity map
func (s *Session) Tracker() *Tracker { return s.tracker }

// Codec returns the codec used for stored bodies
func (s *Session) Codec() *serial.Codec { return s.codec }
