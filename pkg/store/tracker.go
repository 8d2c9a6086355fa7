// Package store provides persistence contexts for serial.ConstructInto.
//
// A Tracker is an identity map: each (entity, key) pair resolves to one
// node for the lifetime of the tracker. A Session pairs a tracker with a
// Backend so that nodes missing from the map are loaded from storage,
// and Commit writes every tracked node back.
package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/conduit-lang/serialkit/pkg/serial"
)

// Tracked is one node held by a Tracker
type Tracked struct {
	Entity string
	Key    string
	Node   serial.Entity
}

type nodeKey struct {
	entity string
	key    string
}

// Tracker maps (entity, key) pairs to graph nodes
type Tracker struct {
	codec *serial.Codec
	nodes map[nodeKey]serial.Entity
	order []nodeKey
	mu    sync.RWMutex
}

// NewTracker creates a tracker that allocates nodes from the codec's registry
func NewTracker(codec *serial.Codec) *Tracker {
	return &Tracker{
		codec: codec,
		nodes: make(map[nodeKey]serial.Entity),
	}
}

// Lookup returns the node tracked under entity and key
func (t *Tracker) Lookup(entity, key string) (serial.Entity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, ok := t.nodes[nodeKey{entity, key}]
	return node, ok
}

// Allocate creates a node of the registered entity type and tracks it.
// An empty key is replaced by a generated UUID. When the node is
// identifiable its identity attribute is set to the key.
func (t *Tracker) Allocate(entity, key string) (serial.Entity, string, error) {
	obj, err := t.codec.Registry().New(entity)
	if err != nil {
		return nil, "", err
	}
	node, ok := obj.(serial.Entity)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotEntity, entity)
	}

	if key == "" {
		key = uuid.NewString()
	}
	if _, ok := node.(serial.Identifiable); ok {
		if err := t.codec.SetIdentity(node, key); err != nil {
			return nil, "", fmt.Errorf("failed to assign identity %q to %s: %w", key, entity, err)
		}
	}

	if err := t.Track(entity, key, node); err != nil {
		return nil, "", err
	}
	return node, key, nil
}

// Track adds node under entity and key. Tracking a different node under a
// key that is already taken is an error.
func (t *Tracker) Track(entity, key string, node serial.Entity) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := nodeKey{entity, key}
	if existing, ok := t.nodes[k]; ok {
		if existing == node {
			return nil
		}
		return fmt.Errorf("%w: %s %q is already tracked", ErrUniqueViolation, entity, key)
	}
	t.nodes[k] = node
	t.order = append(t.order, k)
	return nil
}

// Entries returns the tracked nodes in the order they were tracked
func (t *Tracker) Entries() []Tracked {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Tracked, 0, len(t.order))
	for _, k := range t.order {
		entries = append(entries, Tracked{Entity: k.entity, Key: k.key, Node: t.nodes[k]})
	}
	return entries
}

// Len returns the number of tracked nodes
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Reset forgets every tracked node
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes = make(map[nodeKey]serial.Entity)
	t.order = nil
}
