// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

import "testing"

func TestCacheLookupUnboundKeyReturnsNil(t *testing.T) {
	c := NewCache()
	if got := c.Lookup(7); got != nil {
		t.Errorf("Lookup on an unbound key = %+v, want nil", got)
	}
}

func TestCacheDefineThenLookupReturnsCopy(t *testing.T) {
	c := NewCache()
	nodes := []FieldDesc{{Code: Int32}}
	c.Define(3, nodes)

	got := c.Lookup(3)
	if len(got) != 1 || got[0].Code != Int32 {
		t.Fatalf("Lookup(3) = %+v", got)
	}

	// Define copies its input; mutating the original slice afterward
	// must not affect the bound entry.
	nodes[0].Code = Float64
	got = c.Lookup(3)
	if got[0].Code != Int32 {
		t.Error("Cache.Define must copy its input, not alias it")
	}
}

func TestCacheDefineOverwritesPriorBinding(t *testing.T) {
	c := NewCache()
	c.Define(1, []FieldDesc{{Code: Int32}})
	c.Define(1, []FieldDesc{{Code: Float64}})

	got := c.Lookup(1)
	if len(got) != 1 || got[0].Code != Float64 {
		t.Errorf("Lookup(1) after re-Define = %+v, want Float64", got)
	}
}

func TestCacheResetClearsAllBindings(t *testing.T) {
	c := NewCache()
	c.Define(1, []FieldDesc{{Code: Int32}})
	c.Define(2, []FieldDesc{{Code: Bool}})

	c.Reset()

	if c.Lookup(1) != nil || c.Lookup(2) != nil {
		t.Error("expected Reset to clear every binding")
	}
}
