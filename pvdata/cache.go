// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

// Cache is a connection's introspection cache: a 16-bit key maps to a
// previously decoded (or encoded) FieldDesc subtree, copied in place of
// re-transmitting it on every message. It persists across decode calls
// on one connection and is cleared on connection teardown (spec.md
// §3.4); it carries no synchronization of its own because one
// connection's decode loop is single-threaded.
type Cache struct {
	entries map[uint16][]FieldDesc
}

// NewCache returns an empty introspection cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[uint16][]FieldDesc)}
}

// Define binds key to a copy of nodes, overwriting any prior binding
// (spec.md §4.2.2's Cache-Define handling).
func (c *Cache) Define(key uint16, nodes []FieldDesc) {
	cp := make([]FieldDesc, len(nodes))
	copy(cp, nodes)
	c.entries[key] = cp
}

// Lookup returns the subtree bound to key, or nil if key is unbound or
// was bound to an empty subtree.
func (c *Cache) Lookup(key uint16) []FieldDesc {
	nodes := c.entries[key]
	if len(nodes) == 0 {
		return nil
	}
	return nodes
}

// Reset clears every binding. Called on connection teardown.
func (c *Cache) Reset() {
	c.entries = make(map[uint16][]FieldDesc)
}
