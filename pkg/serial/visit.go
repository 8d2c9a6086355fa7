package serial

import "reflect"

// visitKey identifies a struct node by address. The type is part of the
// key because a struct and its first field share an address.
type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

// visitSet tracks the nodes reached during one serialization call.
// Entities stay visited until the call ends; other structs only while
// they are on the recursion stack, so shared plain values are repeated
// but never recursed into forever.
type visitSet struct {
	active map[visitKey]bool
}

func newVisitSet() *visitSet {
	return &visitSet{active: make(map[visitKey]bool)}
}

func (s *visitSet) seen(id visitKey) bool {
	return s.active[id]
}

func (s *visitSet) enter(id visitKey) {
	s.active[id] = true
}

func (s *visitSet) leave(id visitKey, entity bool) {
	if !entity {
		delete(s.active, id)
	}
}

