// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvdata

// StructBuilder assembles a Struct or Union FieldDesc tree without
// going through the wire type codec — a convenience for Sources that
// construct their PV type once at startup rather than decoding it off
// a connection. Build mirrors DecodeType's flattening algorithm
// (Miter/Mlookup/Hash/NumIndex) exactly, so a tree built this way is
// indistinguishable from one that arrived over the wire.
type StructBuilder struct {
	id      string
	members []builderMember
}

type memberKind uint8

const (
	kindScalar memberKind = iota
	kindScalarArray
	kindStruct
	kindStructArray
	kindUnion
	kindUnionArray
	kindAny
	kindAnyArray
)

type builderMember struct {
	name   string
	kind   memberKind
	code   TypeCode
	nested *StructBuilder
}

// NewStructBuilder starts a Struct definition with the given type ID
// (e.g. "epics:nt/NTScalar:1.0"). An empty id is valid for anonymous
// structures.
func NewStructBuilder(id string) *StructBuilder {
	return &StructBuilder{id: id}
}

// NewUnionBuilder starts a Union definition; members are added the
// same way as a Struct, but Build (called via AddUnion/AddUnionArray
// or BuildUnion) produces a Union node.
func NewUnionBuilder(id string) *StructBuilder {
	return &StructBuilder{id: id}
}

func (sb *StructBuilder) AddScalar(name string, code TypeCode) *StructBuilder {
	sb.members = append(sb.members, builderMember{name: name, kind: kindScalar, code: code})
	return sb
}

func (sb *StructBuilder) AddScalarArray(name string, code TypeCode) *StructBuilder {
	sb.members = append(sb.members, builderMember{name: name, kind: kindScalarArray, code: code})
	return sb
}

func (sb *StructBuilder) AddStruct(name string, nested *StructBuilder) *StructBuilder {
	sb.members = append(sb.members, builderMember{name: name, kind: kindStruct, nested: nested})
	return sb
}

func (sb *StructBuilder) AddStructArray(name string, nested *StructBuilder) *StructBuilder {
	sb.members = append(sb.members, builderMember{name: name, kind: kindStructArray, nested: nested})
	return sb
}

func (sb *StructBuilder) AddUnion(name string, nested *StructBuilder) *StructBuilder {
	sb.members = append(sb.members, builderMember{name: name, kind: kindUnion, nested: nested})
	return sb
}

func (sb *StructBuilder) AddUnionArray(name string, nested *StructBuilder) *StructBuilder {
	sb.members = append(sb.members, builderMember{name: name, kind: kindUnionArray, nested: nested})
	return sb
}

func (sb *StructBuilder) AddAny(name string) *StructBuilder {
	sb.members = append(sb.members, builderMember{name: name, kind: kindAny})
	return sb
}

func (sb *StructBuilder) AddAnyArray(name string) *StructBuilder {
	sb.members = append(sb.members, builderMember{name: name, kind: kindAnyArray})
	return sb
}

// Build flattens the definition into a Struct-rooted Type.
func (sb *StructBuilder) Build() *Type {
	return sb.buildRooted(Struct)
}

// BuildUnion flattens the definition into a Union-rooted Type.
func (sb *StructBuilder) BuildUnion() *Type {
	return sb.buildRooted(Union)
}

func (sb *StructBuilder) buildRooted(code TypeCode) *Type {
	var nodes []FieldDesc
	buildCompound(&nodes, sb, -1, code)
	typ := &Type{Nodes: nodes}
	typ.CalculateOffsets()
	return typ
}

func buildNode(nodes *[]FieldDesc, parent int, m builderMember) int {
	selfIndex := len(*nodes)
	switch m.kind {
	case kindScalar:
		*nodes = append(*nodes, FieldDesc{Code: m.code, Hash: uint64(m.code), Index: selfIndex, Parent: parent, NumIndex: 1})
		return selfIndex
	case kindScalarArray:
		code := m.code | arrayBit
		*nodes = append(*nodes, FieldDesc{Code: code, Hash: uint64(code), Index: selfIndex, Parent: parent, NumIndex: 1})
		return selfIndex
	case kindAny:
		*nodes = append(*nodes, FieldDesc{Code: Any, Hash: uint64(Any), Index: selfIndex, Parent: parent, NumIndex: 1})
		return selfIndex
	case kindAnyArray:
		// Like DecodeType, give AnyA a single Any element node.
		*nodes = append(*nodes, FieldDesc{
			Code:     AnyA,
			Miter:    []MiterEntry{{Name: "", Rel: 1}},
			Hash:     uint64(AnyA) ^ uint64(Any),
			Index:    selfIndex,
			Parent:   parent,
			NumIndex: 2,
		})
		*nodes = append(*nodes, FieldDesc{Code: Any, Hash: uint64(Any), Index: selfIndex + 1, Parent: selfIndex, NumIndex: 1})
		return selfIndex
	case kindStruct:
		return buildCompound(nodes, m.nested, parent, Struct)
	case kindUnion:
		return buildCompound(nodes, m.nested, parent, Union)
	case kindStructArray:
		return buildCompoundArray(nodes, m.nested, parent, Struct)
	case kindUnionArray:
		return buildCompoundArray(nodes, m.nested, parent, Union)
	}
	panic("pvdata: unreachable builder member kind")
}

func buildCompoundArray(nodes *[]FieldDesc, nested *StructBuilder, parent int, elemCode TypeCode) int {
	selfIndex := len(*nodes)
	arrCode := elemCode | arrayBit
	*nodes = append(*nodes, FieldDesc{Code: arrCode, Index: selfIndex, Parent: parent})
	childIndex := buildCompound(nodes, nested, selfIndex, elemCode)
	self := &(*nodes)[selfIndex]
	self.Miter = []MiterEntry{{Name: "", Rel: childIndex - selfIndex}}
	self.Hash = uint64(arrCode) ^ (*nodes)[childIndex].Hash
	self.NumIndex = len(*nodes) - selfIndex
	return selfIndex
}

func buildCompound(nodes *[]FieldDesc, sb *StructBuilder, parent int, code TypeCode) int {
	selfIndex := len(*nodes)
	*nodes = append(*nodes, FieldDesc{
		Code:    code,
		ID:      sb.id,
		Index:   selfIndex,
		Parent:  parent,
		Mlookup: make(map[string]int),
	})
	hash := uint64(code) ^ fnv64a(sb.id)
	for _, m := range sb.members {
		childIndex := buildNode(nodes, selfIndex, m)
		self := &(*nodes)[selfIndex]
		child := &(*nodes)[childIndex]
		rel := childIndex - selfIndex
		hash ^= fnv64a(m.name) ^ child.Hash
		self.Miter = append(self.Miter, MiterEntry{Name: m.name, Rel: rel})
		self.Mlookup[m.name] = rel
		if child.Code == code && child.Mlookup != nil {
			for subName, subRel := range child.Mlookup {
				self.Mlookup[m.name+"."+subName] = rel + subRel
			}
		}
	}
	self := &(*nodes)[selfIndex]
	self.Hash = hash
	self.NumIndex = len(*nodes) - selfIndex
	return selfIndex
}
