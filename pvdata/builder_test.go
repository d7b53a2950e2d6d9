// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

import (
	"encoding/binary"
	"testing"
)

func TestBuilderProducesStructAndUnionRoots(t *testing.T) {
	s := NewStructBuilder("test:builder/S:1.0").AddScalar("a", Int32).Build()
	if s.Root().Code.ScalarOf() != Struct {
		t.Errorf("Build() produced code %v, want Struct", s.Root().Code)
	}

	u := NewUnionBuilder("test:builder/U:1.0").AddScalar("a", Int32).BuildUnion()
	if u.Root().Code.ScalarOf() != Union {
		t.Errorf("BuildUnion() produced code %v, want Union", u.Root().Code)
	}
}

func TestBuilderAnyAndAnyArray(t *testing.T) {
	typ := NewStructBuilder("test:builder/Holder:1.0").
		AddAny("single").
		AddAnyArray("many").
		Build()

	single := typ.ChildByName(typ.Root(), "single")
	if single == nil || single.Code != Any {
		t.Fatalf("expected single any field, got %+v", single)
	}
	many := typ.ChildByName(typ.Root(), "many")
	if many == nil || many.Code != AnyA {
		t.Fatalf("expected any-array field, got %+v", many)
	}
}

func TestBuilderUnionArray(t *testing.T) {
	typ := NewStructBuilder("test:builder/Holder:1.0").
		AddUnionArray("choices", NewUnionBuilder("test:builder/Variant:1.0").
			AddScalar("asInt", Int32)).
		Build()

	choices := typ.ChildByName(typ.Root(), "choices")
	if choices == nil || choices.Code != UnionA {
		t.Fatalf("expected union-array field, got %+v", choices)
	}
	elem := typ.Child(choices, choices.Miter[0])
	if elem.Code != Union {
		t.Errorf("expected union-array element code Union, got %v", elem.Code)
	}
}

func TestBuilderMatchesWireDecodedHash(t *testing.T) {
	built := scalarStructType()

	enc := NewEncoder(binary.BigEndian, nil)
	EncodeType(enc, built.Root(), built)

	dec := NewDecoder(enc.Bytes(), binary.BigEndian, nil)
	decoded := DecodeType(dec, NewCache())
	if !dec.Good() {
		t.Fatalf("decode faulted: %v", dec.Err())
	}

	if built.Root().Hash != decoded.Root().Hash {
		t.Errorf("builder-constructed and wire-decoded hashes differ: %x != %x",
			built.Root().Hash, decoded.Root().Hash)
	}
}
