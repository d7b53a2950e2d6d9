// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeSource struct {
	claim string
	panic bool
	calls int
}

func (f *fakeSource) OnSearch(op *SearchOp) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	for i, n := range op.Names() {
		if n.Name == f.claim {
			op.Claim(i)
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistryAddRejectsDuplicateAndNil(t *testing.T) {
	r := newRegistry(discardLogger())
	if err := r.add(0, "a", &fakeSource{}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := r.add(0, "a", &fakeSource{}); !errors.Is(err, ErrDuplicateSource) {
		t.Errorf("expected ErrDuplicateSource, got %v", err)
	}
	if err := r.add(1, "a", nil); !errors.Is(err, ErrNilSource) {
		t.Errorf("expected ErrNilSource, got %v", err)
	}
}

func TestRegistryRemoveReportsExistence(t *testing.T) {
	r := newRegistry(discardLogger())
	r.add(0, "a", &fakeSource{})
	if !r.remove(0, "a") {
		t.Error("expected remove to report true for an existing key")
	}
	if r.remove(0, "a") {
		t.Error("expected remove to report false for an already-removed key")
	}
}

func TestRegistryListIsOrderedByOrderThenName(t *testing.T) {
	r := newRegistry(discardLogger())
	r.add(5, "z", &fakeSource{})
	r.add(5, "a", &fakeSource{})
	r.add(-1, "server", &fakeSource{})

	keys := r.list()
	want := []registryKey{{-1, "server"}, {5, "a"}, {5, "z"}}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i, k := range keys {
		if k != want[i] {
			t.Errorf("key %d = %+v, want %+v", i, k, want[i])
		}
	}
}

func TestDispatchSearchIsolatesPanickingSource(t *testing.T) {
	r := newRegistry(discardLogger())
	panicky := &fakeSource{panic: true}
	healthy := &fakeSource{claim: "pv2"}
	r.add(0, "panicky", panicky)
	r.add(1, "healthy", healthy)

	op := &SearchOp{
		names:  []SearchName{{ID: 1, Name: "pv1"}, {ID: 2, Name: "pv2"}},
		claims: make([]bool, 2),
	}
	r.dispatchSearch(op)

	if panicky.calls != 1 {
		t.Errorf("expected panicking source to have been called once, got %d", panicky.calls)
	}
	if healthy.calls != 1 {
		t.Errorf("expected healthy source to still run after the panic, got %d calls", healthy.calls)
	}
	if !op.claims[1] {
		t.Error("expected the healthy source's claim to have taken effect")
	}
	if op.claims[0] {
		t.Error("did not expect pv1 to be claimed by anyone")
	}
}

func TestSearchOpClaimIgnoresOutOfRange(t *testing.T) {
	op := &SearchOp{names: []SearchName{{ID: 1, Name: "x"}}, claims: make([]bool, 1)}
	op.Claim(-1)
	op.Claim(5)
	if op.claims[0] {
		t.Error("out-of-range Claim calls must not affect valid indices")
	}
}
