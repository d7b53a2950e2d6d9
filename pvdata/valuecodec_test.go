// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

import (
	"encoding/binary"
	"testing"
)

func TestFullValueRoundTripScalarStruct(t *testing.T) {
	typ := nestedStructType()
	v := NewValue(typ)
	v.Child("seq").SetUInt64(42)
	v.Child("point.x").SetFloat64(1.5)
	v.Child("point.y").SetFloat64(-2.25)
	v.Child("tags").Array().Code = String
	v.Child("tags").Array().Strings = []string{"a", "bb"}
	v.Child("tags").MarkValid()

	enc := NewEncoder(binary.BigEndian, nil)
	EncodeFull(enc, v)
	if !enc.Good() {
		t.Fatalf("encode faulted: %v", enc.Err())
	}

	got := NewValue(typ)
	dec := NewDecoder(enc.Bytes(), binary.BigEndian, nil)
	DecodeFull(dec, got)
	if !dec.Good() {
		t.Fatalf("decode faulted: %v", dec.Err())
	}

	if got.Child("seq").UInt64() != 42 {
		t.Errorf("seq = %d, want 42", got.Child("seq").UInt64())
	}
	if got.Child("point.x").Float64() != 1.5 {
		t.Errorf("point.x = %v, want 1.5", got.Child("point.x").Float64())
	}
	if got.Child("point.y").Float64() != -2.25 {
		t.Errorf("point.y = %v, want -2.25", got.Child("point.y").Float64())
	}
	tags := got.Child("tags").Array()
	if tags.Len() != 2 || tags.Strings[0] != "a" || tags.Strings[1] != "bb" {
		t.Errorf("tags = %+v", tags)
	}
}

func TestSetterMarksOnlyItsOwnLeafValid(t *testing.T) {
	typ := nestedStructType()
	v := NewValue(typ)
	v.Child("point.x").SetFloat64(3.0)

	if !v.Child("point.x").IsValid() {
		t.Error("expected point.x valid after SetFloat64")
	}
	// A Struct parent's bit is independent of its members': setting a
	// member must not mark its enclosing Structs (or the root) valid.
	if v.Child("point").IsValid() {
		t.Error("point must remain invalid; only point.x was set")
	}
	if v.IsValid() {
		t.Error("root must remain invalid; only point.x was set")
	}
	if v.Child("seq").IsValid() {
		t.Error("seq should remain invalid; only point.x was set")
	}
}

// TestValidDeltaMatchesScenario4 pins down spec.md §8.3 scenario 4's
// literal wire bytes: Struct{a, b: Int32} with only b := 7 marked
// valid encodes the bitset 0b100 (byte 0x04), not a bitset that also
// marks the enclosing Struct's own bit.
func TestValidDeltaMatchesScenario4(t *testing.T) {
	typ := NewStructBuilder("test:valid/Scenario4:1.0").
		AddScalar("a", Int32).
		AddScalar("b", Int32).
		Build()

	v := NewValue(typ)
	v.Child("b").SetInt64(7)

	enc := NewEncoder(binary.BigEndian, nil)
	EncodeValid(enc, v)
	if !enc.Good() {
		t.Fatalf("encode faulted: %v", enc.Err())
	}

	want := []byte{0x01, 0x04, 0x00, 0x00, 0x00, 0x07}
	got := enc.Bytes()
	if len(got) != len(want) {
		t.Fatalf("encoded bytes = % x, want % x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("encoded bytes = % x, want % x", got, want)
		}
	}
}

func TestValidDeltaRoundTripOnlyTouchesSetBits(t *testing.T) {
	typ := nestedStructType()
	v := NewValue(typ)
	v.Child("seq").SetUInt64(7)

	enc := NewEncoder(binary.BigEndian, nil)
	EncodeValid(enc, v)
	if !enc.Good() {
		t.Fatalf("encode faulted: %v", enc.Err())
	}

	got := NewValue(typ)
	got.Child("point.x").SetFloat64(99) // pre-existing data the delta must not touch

	dec := NewDecoder(enc.Bytes(), binary.BigEndian, nil)
	DecodeValid(dec, got)
	if !dec.Good() {
		t.Fatalf("decode faulted: %v", dec.Err())
	}

	if got.Child("seq").UInt64() != 7 {
		t.Errorf("seq = %d, want 7", got.Child("seq").UInt64())
	}
	if got.Child("point.x").Float64() != 99 {
		t.Errorf("expected point.x to retain its pre-delta value 99, got %v",
			got.Child("point.x").Float64())
	}
	if got.Child("point.x").IsValid() {
		t.Error("point.x should not be marked valid by a delta that never set its bit")
	}
}

func unionType() *Type {
	return NewUnionBuilder("test:union/Variant:1.0").
		AddScalar("asInt", Int32).
		AddScalar("asString", String).
		BuildUnion()
}

func TestUnionSelectorRoundTrip(t *testing.T) {
	typ := unionType()
	container := NewStructBuilder("test:union/Holder:1.0").
		AddUnion("choice", NewUnionBuilder("test:union/Variant:1.0").
			AddScalar("asInt", Int32).
			AddScalar("asString", String)).
		Build()

	v := NewValue(container)
	member := v.Child("choice").Child("asString")
	member.SetStr("hello")
	v.Child("choice").SetUnion(member)

	enc := NewEncoder(binary.BigEndian, nil)
	EncodeFull(enc, v)
	if !enc.Good() {
		t.Fatalf("encode faulted: %v", enc.Err())
	}

	got := NewValue(container)
	dec := NewDecoder(enc.Bytes(), binary.BigEndian, nil)
	DecodeFull(dec, got)
	if !dec.Good() {
		t.Fatalf("decode faulted: %v", dec.Err())
	}

	sub := got.Child("choice").Union()
	if sub == nil {
		t.Fatal("expected non-nil union selection")
	}
	if sub.Str() != "hello" {
		t.Errorf("union payload = %q, want hello", sub.Str())
	}
	_ = typ
}

func TestUnionEncodeOfNonMemberPanics(t *testing.T) {
	container := NewStructBuilder("test:union/Holder:1.0").
		AddUnion("choice", NewUnionBuilder("test:union/Variant:1.0").
			AddScalar("asInt", Int32)).
		Build()
	other := NewValue(scalarStructType())

	v := NewValue(container)
	v.Child("choice").SetUnion(other)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic encoding a union selection that is not a declared member")
		}
	}()
	enc := NewEncoder(binary.BigEndian, nil)
	EncodeFull(enc, v)
}

func TestUnionInvalidSelectorFaults(t *testing.T) {
	container := NewStructBuilder("test:union/Holder:1.0").
		AddUnion("choice", NewUnionBuilder("test:union/Variant:1.0").
			AddScalar("asInt", Int32)).
		Build()

	enc := NewEncoder(binary.BigEndian, nil)
	enc.PutSize(5) // no member at index 5

	got := NewValue(container)
	dec := NewDecoder(enc.Bytes(), binary.BigEndian, nil)
	DecodeFull(dec, got.Child("choice"))
	if dec.Good() {
		t.Error("expected fault decoding an out-of-range union selector")
	}
}

func anyHolderType() *Type {
	return NewStructBuilder("test:any/Holder:1.0").
		AddAny("payload").
		Build()
}

func TestAnyValueRoundTripAndNull(t *testing.T) {
	holder := anyHolderType()
	v := NewValue(holder)

	payloadType := scalarStructType()
	payload := NewValue(payloadType)
	payload.Child("x").SetFloat64(9)
	payload.Child("y").SetFloat64(10)
	v.Child("payload").SetUnion(payload)

	enc := NewEncoder(binary.BigEndian, nil)
	EncodeFull(enc, v)
	if !enc.Good() {
		t.Fatalf("encode faulted: %v", enc.Err())
	}

	got := NewValue(holder)
	dec := NewDecoder(enc.Bytes(), binary.BigEndian, nil)
	DecodeFull(dec, got)
	if !dec.Good() {
		t.Fatalf("decode faulted: %v", dec.Err())
	}

	sub := got.Child("payload").Union()
	if sub == nil {
		t.Fatal("expected non-nil any payload")
	}
	if sub.Child("x").Float64() != 9 || sub.Child("y").Float64() != 10 {
		t.Errorf("any payload mismatch: x=%v y=%v", sub.Child("x").Float64(), sub.Child("y").Float64())
	}

	// Null any round trips to a nil sub-Value.
	nullHolder := NewValue(holder)
	encNull := NewEncoder(binary.BigEndian, nil)
	EncodeFull(encNull, nullHolder)
	decNull := NewDecoder(encNull.Bytes(), binary.BigEndian, nil)
	gotNull := NewValue(holder)
	DecodeFull(decNull, gotNull)
	if !decNull.Good() {
		t.Fatalf("null any decode faulted: %v", decNull.Err())
	}
	if gotNull.Child("payload").Union() != nil {
		t.Error("expected nil any payload round trip")
	}
}

// TestUnionArrayDistinguishesAbsentFromPresentNull pins down spec.md
// §8.1's round-trip invariant for UnionA: a present element whose Union
// itself is null must survive a decode/re-encode cycle as present
// (presence byte 1, null selector), not collapse into an absent element
// (presence byte 0) the way a bare nil *Value would if Present weren't
// tracked separately from Elements[i] == nil.
func TestUnionArrayDistinguishesAbsentFromPresentNull(t *testing.T) {
	container := NewStructBuilder("test:union/ArrHolder:1.0").
		AddUnionArray("choices", NewUnionBuilder("test:union/Variant:1.0").
			AddScalar("asInt", Int32)).
		Build()

	v := NewValue(container)
	arr := v.Child("choices").Array()
	arr.Elements = []*Value{nil, nil}
	arr.Present = []bool{false, true} // index 0 absent, index 1 present-but-null
	v.Child("choices").MarkValid()

	enc := NewEncoder(binary.BigEndian, nil)
	EncodeFull(enc, v)
	if !enc.Good() {
		t.Fatalf("encode faulted: %v", enc.Err())
	}

	got := NewValue(container)
	dec := NewDecoder(enc.Bytes(), binary.BigEndian, nil)
	DecodeFull(dec, got)
	if !dec.Good() {
		t.Fatalf("decode faulted: %v", dec.Err())
	}

	gotArr := got.Child("choices").Array()
	if gotArr.Len() != 2 {
		t.Fatalf("expected 2 elements, got %d", gotArr.Len())
	}
	if gotArr.Present[0] {
		t.Error("expected index 0 to decode as absent")
	}
	if !gotArr.Present[1] {
		t.Error("expected index 1 to decode as present (with a null union), not absent")
	}
	if gotArr.Elements[1] != nil {
		t.Error("expected index 1's union selection to be nil (the union itself is null)")
	}

	// Re-encoding the decoded value must reproduce the same presence
	// bytes, not collapse the present-but-null element into absent.
	reenc := NewEncoder(binary.BigEndian, nil)
	EncodeFull(reenc, got)
	if !reenc.Good() {
		t.Fatalf("re-encode faulted: %v", reenc.Err())
	}
	if string(reenc.Bytes()) != string(enc.Bytes()) {
		t.Errorf("re-encoded bytes = % x, want % x", reenc.Bytes(), enc.Bytes())
	}
}

func TestArrayOfStructRoundTrip(t *testing.T) {
	elemBuilder := NewStructBuilder("test:arr/Point:1.0").
		AddScalar("x", Float64).
		AddScalar("y", Float64)
	container := NewStructBuilder("test:arr/Holder:1.0").
		AddStructArray("points", elemBuilder).
		Build()

	v := NewValue(container)
	arr := v.Child("points").Array()
	elemType := v.Type()
	elemDesc := elemType.Child(v.Child("points").Desc(), v.Child("points").Desc().Miter[0])

	first := newSubtreeValue(elemType, elemDesc)
	first.Child("x").SetFloat64(1)
	first.Child("y").SetFloat64(2)

	arr.Elements = []*Value{first, nil}
	v.Child("points").MarkValid()

	enc := NewEncoder(binary.BigEndian, nil)
	EncodeFull(enc, v)
	if !enc.Good() {
		t.Fatalf("encode faulted: %v", enc.Err())
	}

	got := NewValue(container)
	dec := NewDecoder(enc.Bytes(), binary.BigEndian, nil)
	DecodeFull(dec, got)
	if !dec.Good() {
		t.Fatalf("decode faulted: %v", dec.Err())
	}

	gotArr := got.Child("points").Array()
	if gotArr.Len() != 2 {
		t.Fatalf("expected 2 elements, got %d", gotArr.Len())
	}
	if gotArr.Elements[1] != nil {
		t.Error("expected second element to decode as absent (nil)")
	}
	if gotArr.Elements[0] == nil {
		t.Fatal("expected first element present")
	}
	if gotArr.Elements[0].Child("x").Float64() != 1 || gotArr.Elements[0].Child("y").Float64() != 2 {
		t.Errorf("element 0 mismatch: x=%v y=%v",
			gotArr.Elements[0].Child("x").Float64(), gotArr.Elements[0].Child("y").Float64())
	}
}
