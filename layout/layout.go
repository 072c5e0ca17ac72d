// Copyright 2025 goat Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package layout implements the MemoryLayout algebra the classifier and
// binding calculators in package sysv walk: scalar values, fixed-length
// sequences (C arrays), and groups (C structs and unions), each carrying
// the byte size and alignment a psABI classifier needs.
package layout

import "fmt"

// Kind discriminates the three layout shapes the classifier recognizes.
type Kind int

const (
	Value Kind = iota
	Sequence
	Group
)

func (k Kind) String() string {
	switch k {
	case Value:
		return "Value"
	case Sequence:
		return "Sequence"
	case Group:
		return "Group"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ValueClass is the ABI-class annotation carried by a scalar Value layout.
// It is a narrower enumeration than sysv.ArgumentClass: only the classes a
// single scalar can originate as appear here.
type ValueClass int

const (
	Integer ValueClass = iota
	SSE
	X87
	Pointer
	ComplexX87
)

func (c ValueClass) String() string {
	switch c {
	case Integer:
		return "INTEGER"
	case SSE:
		return "SSE"
	case X87:
		return "X87"
	case Pointer:
		return "POINTER"
	case ComplexX87:
		return "COMPLEX_X87"
	default:
		return fmt.Sprintf("ValueClass(%d)", int(c))
	}
}

// Layout is an immutable node in the MemoryLayout algebra. Only the fields
// relevant to the node's Kind are meaningful; the zero value is not a valid
// Layout and every Layout must be produced through the New* constructors.
type Layout struct {
	kind Kind
	name string
	size uint64
	alig uint64

	// Value
	class    ValueClass
	hasClass bool

	// Sequence
	elem  *Layout
	count uint64

	// Group
	union      bool
	members    []Layout
	complexX87 bool

	// padding marks a member layout that occupies space but carries no
	// classification-relevant bits; isPadding(l) reports this flag.
	padding bool
}

// NewValue builds a scalar layout of size and alignment byteSize/align,
// annotated with the given ABI class. Sizes larger than 8 for class
// Integer are legal (e.g. __int128), as is the 16-byte long double of
// class X87; every other class is expected to describe an at-most-8-byte
// scalar, matching the psABI's primitive eightbyte-sized types.
func NewValue(name string, byteSize, align uint64, class ValueClass) Layout {
	return Layout{kind: Value, name: name, size: byteSize, alig: align, class: class, hasClass: true}
}

// NewUnannotatedValue builds a scalar layout with no ABI-class annotation.
// Classifying it is an UnsupportedLayout error; this constructor exists so
// malformed input layouts (e.g. from a buggy front end) can be constructed
// for negative tests.
func NewUnannotatedValue(name string, byteSize, align uint64) Layout {
	return Layout{kind: Value, name: name, size: byteSize, alig: align}
}

// NewPadding builds a Value-shaped layout that the group classifier
// (classifyGroup in package sysv) skips entirely: it reserves byteSize bytes of space
// (e.g. trailing struct padding to satisfy alignment) without
// contributing to any eightbyte's class.
func NewPadding(byteSize, align uint64) Layout {
	return Layout{kind: Value, size: byteSize, alig: align, padding: true}
}

// NewSequence builds a fixed-length array layout of count repetitions of
// elem. byteSize is derived as count*elem.ByteSize(); align is elem's
// alignment, matching C array layout rules.
func NewSequence(name string, elem Layout, count uint64) Layout {
	return Layout{
		kind:  Sequence,
		name:  name,
		size:  count * elem.size,
		alig:  elem.alig,
		elem:  &elem,
		count: count,
	}
}

// NewStruct builds a struct-shaped group layout: members occupy
// successive, non-overlapping byte ranges. byteSize/align must already
// include any trailing padding and the struct's overall alignment;
// callers that want the padding to participate in classification should
// add explicit NewPadding members rather than relying on byteSize alone.
func NewStruct(name string, byteSize, align uint64, members []Layout) Layout {
	return Layout{kind: Group, name: name, size: byteSize, alig: align, members: members}
}

// NewUnion builds a union-shaped group layout: every member overlays byte
// offset 0.
func NewUnion(name string, byteSize, align uint64, members []Layout) Layout {
	return Layout{kind: Group, name: name, size: byteSize, alig: align, members: members, union: true}
}

// NewComplexX87Struct builds the group layout the classifier recognizes as
// a `long double _Complex`: a struct whose classification short-circuits
// to [X87, X87UP, X87, X87UP] regardless of its declared members. members
// is retained only for binding/dereference purposes (it should describe
// two consecutive long double fields).
func NewComplexX87Struct(name string, members []Layout) Layout {
	return Layout{kind: Group, name: name, size: 32, alig: 16, members: members, complexX87: true}
}

func (l Layout) Kind() Kind { return l.kind }
func (l Layout) Name() string {
	if l.name == "" {
		return "<anonymous>"
	}
	return l.name
}
func (l Layout) ByteSize() uint64 { return l.size }
func (l Layout) Align() uint64    { return l.alig }

// ValueClassOf returns the Value layout's ABI-class annotation. The second
// return value is false if l is not a Value layout or carries no
// annotation.
func (l Layout) ValueClassOf() (ValueClass, bool) {
	if l.kind != Value {
		return 0, false
	}
	return l.class, l.hasClass
}

// Element returns the array element layout. Panics if l is not a Sequence;
// callers should check Kind() first.
func (l Layout) Element() Layout {
	if l.kind != Sequence {
		panic("layout: Element called on non-Sequence layout")
	}
	return *l.elem
}

// Count returns the array element count.
func (l Layout) Count() uint64 {
	if l.kind != Sequence {
		panic("layout: Count called on non-Sequence layout")
	}
	return l.count
}

// Members returns the group's member layouts in declaration order.
func (l Layout) Members() []Layout {
	if l.kind != Group {
		panic("layout: Members called on non-Group layout")
	}
	return l.members
}

// IsUnion reports whether a Group layout is a union (overlaying members)
// rather than a struct (sequential members).
func (l Layout) IsUnion() bool { return l.kind == Group && l.union }

// IsComplexX87 reports whether a Group layout carries the synthetic
// COMPLEX_X87 annotation used for `long double _Complex`.
func (l Layout) IsComplexX87() bool { return l.kind == Group && l.complexX87 }

// IsPadding reports whether l is a member that should be skipped during
// classification: it occupies space but carries no class of its own.
func IsPadding(l Layout) bool { return l.padding }

// AlignUp rounds size up to the next multiple of align. align must be a
// positive power of two.
func AlignUp(size, align uint64) uint64 {
	return (size + align - 1) &^ (align - 1)
}

// Align returns the byte offset at which a member of layout l should be
// placed given the current running offset, aligning up to l's own
// alignment requirement. The union flag is accepted for parity with the
// struct member loop that calls it uniformly for both struct and union
// members (a union member is always aligned to its own requirement even
// though its offset is never advanced afterward); it does not otherwise
// change the computation, since bit-field packing is out of scope.
func Align(l Layout, _ bool, offset uint64) uint64 {
	return AlignUp(offset, l.alig)
}
