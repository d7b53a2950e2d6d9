// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrDuplicateSource is returned by Server.AddSource when (order, name)
// is already registered.
var ErrDuplicateSource = errors.New("pvserver: duplicate source registration")

// ErrNilSource is returned by Server.AddSource when src is nil.
var ErrNilSource = errors.New("pvserver: nil source")

// Source answers Search requests for the PV names it serves. A Source
// is registered under a (order, name) key; order controls iteration
// priority among Sources whose name spaces might overlap (spec.md
// §4.4.2).
type Source interface {
	// OnSearch is invoked once per incoming Search message, with every
	// requested name, whether or not another Source has claimed it.
	// Implementations claim the names they serve by calling op.Claim.
	// A panicking or slow OnSearch only affects this Source — the
	// registry isolates it from the others (spec.md §4.4.3, §7).
	OnSearch(op *SearchOp)
}

// registryKey orders Sources primarily by order ascending, then name
// lexicographically (spec.md §4.4.2).
type registryKey struct {
	order int
	name  string
}

func (k registryKey) less(other registryKey) bool {
	if k.order != other.order {
		return k.order < other.order
	}
	return k.name < other.name
}

// registry is the Source registry: a map keyed by (order, name) with a
// maintained total order, protected by a single reader-writer lock.
type registry struct {
	mu      sync.RWMutex
	entries map[registryKey]Source
	logger  *slog.Logger
}

func newRegistry(logger *slog.Logger) *registry {
	return &registry{entries: make(map[registryKey]Source), logger: logger}
}

// add inserts src under (order, name). Rejects a nil src or a
// duplicate key.
func (r *registry) add(order int, name string, src Source) error {
	if src == nil {
		return ErrNilSource
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey{order: order, name: name}
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("%w: (%d, %q)", ErrDuplicateSource, order, name)
	}
	r.entries[key] = src
	return nil
}

// remove deletes the (order, name) entry, reporting whether it existed.
func (r *registry) remove(order int, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey{order: order, name: name}
	if _, exists := r.entries[key]; !exists {
		return false
	}
	delete(r.entries, key)
	return true
}

// get returns the Source at (order, name), or nil if absent.
func (r *registry) get(order int, name string) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[registryKey{order: order, name: name}]
}

// list returns every registered key in total order.
func (r *registry) list() []registryKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]registryKey, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// dispatchSearch runs op against every registered Source in order,
// under the registry's read lock. A Source whose OnSearch panics is
// isolated: the panic is recovered, logged with the Source's name, and
// iteration continues (spec.md §4.4.3 step 2, §7 "partial failures").
func (r *registry) dispatchSearch(op *SearchOp) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]registryKey, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	for _, k := range keys {
		r.runOne(k, op)
	}
}

func (r *registry) runOne(k registryKey, op *SearchOp) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("unhandled error in source search handler",
				"source", k.name, "order", k.order, "panic", rec)
		}
	}()
	r.entries[k].OnSearch(op)
}
