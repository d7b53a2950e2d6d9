// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"sync"

	"github.com/pvaccess-go/pvaserver/pvdata"
)

// NewCounterType builds the FieldDesc tree for a minimal
// NTScalar-shaped double PV: {value: double, alarm: {severity: int}}.
// It demonstrates pvdata.StructBuilder outside of the codec's own
// tests, the way a real channel-provider Source would.
func NewCounterType() *pvdata.Type {
	return pvdata.NewStructBuilder("epics:nt/NTScalar:1.0").
		AddScalar("value", pvdata.Float64).
		AddStruct("alarm", pvdata.NewStructBuilder("epics:nt/Alarm:1.0").
			AddScalar("severity", pvdata.Int32)).
		Build()
}

// CounterSource is a demonstration Source publishing a single PV named
// "counter" whose value increments every time it is searched for. It
// exists to give pva-server something concrete to serve and to
// exercise the registry/search path end to end; real deployments
// register application-specific Sources instead.
type CounterSource struct {
	mu    sync.Mutex
	typ   *pvdata.Type
	value *pvdata.Value
	hits  int64
}

// NewCounterSource constructs a CounterSource claiming the channel
// name "counter".
func NewCounterSource() *CounterSource {
	typ := NewCounterType()
	v := pvdata.NewValue(typ)
	v.Child("value").SetFloat64(0)
	v.Child("value").MarkValid()
	return &CounterSource{typ: typ, value: v}
}

// OnSearch claims any request for "counter" and bumps the PV's value,
// so repeated discovery traffic is visible in the served data.
func (c *CounterSource) OnSearch(op *SearchOp) {
	for i, name := range op.Names() {
		if name.Name != "counter" {
			continue
		}
		op.Claim(i)
		c.mu.Lock()
		c.hits++
		c.value.Child("value").SetFloat64(float64(c.hits))
		c.value.Child("value").MarkValid()
		c.mu.Unlock()
	}
}

// Snapshot returns the PV's current Value (not a copy) and the number
// of searches that have claimed it, for admin inspection or tests.
func (c *CounterSource) Snapshot() (*pvdata.Value, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.hits
}
