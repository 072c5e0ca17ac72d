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

package sysv

import (
	"fmt"

	"github.com/ajroetker/sysvabi/layout"
)

// CarrierType names the high-level Go type a Binding moves to or from.
// It drives the move width the downstream invoker uses; it never needs
// to be more specific than the psABI cares about.
type CarrierType int

const (
	CarrierInt8 CarrierType = iota
	CarrierInt16
	CarrierInt32
	CarrierInt64
	CarrierFloat32
	CarrierFloat64
	CarrierPointer
	CarrierBuffer
)

func (c CarrierType) String() string {
	switch c {
	case CarrierInt8:
		return "int8"
	case CarrierInt16:
		return "int16"
	case CarrierInt32:
		return "int32"
	case CarrierInt64:
		return "int64"
	case CarrierFloat32:
		return "float32"
	case CarrierFloat64:
		return "float64"
	case CarrierPointer:
		return "pointer"
	case CarrierBuffer:
		return "buffer"
	default:
		return fmt.Sprintf("CarrierType(%d)", int(c))
	}
}

// BindingOp discriminates the four Binding variants of spec §3.
type BindingOp int

const (
	OpMove BindingOp = iota
	OpDereference
	OpBoxAddress
	OpAllocateBuffer
)

func (op BindingOp) String() string {
	switch op {
	case OpMove:
		return "Move"
	case OpDereference:
		return "Dereference"
	case OpBoxAddress:
		return "BoxAddress"
	case OpAllocateBuffer:
		return "AllocateBuffer"
	default:
		return fmt.Sprintf("BindingOp(%d)", int(op))
	}
}

// Binding is one primitive data-movement instruction in a calling
// sequence. Only the fields relevant to Op are meaningful:
//
//   - Move: Storage, Carrier.
//   - Dereference: Storage, Offset, Size (Size <= 8).
//   - BoxAddress: none.
//   - AllocateBuffer: Layout.
type Binding struct {
	Op      BindingOp
	Storage VMStorage
	Carrier CarrierType
	Offset  uint64
	Size    uint64
	Layout  layout.Layout
}

func moveBinding(storage VMStorage, carrier CarrierType) Binding {
	return Binding{Op: OpMove, Storage: storage, Carrier: carrier}
}

func dereferenceBinding(storage VMStorage, offset, size uint64) Binding {
	return Binding{Op: OpDereference, Storage: storage, Offset: offset, Size: size}
}

func boxAddressBinding() Binding {
	return Binding{Op: OpBoxAddress}
}

func allocateBufferBinding(l layout.Layout) Binding {
	return Binding{Op: OpAllocateBuffer, Layout: l}
}

// carrierFor picks the Move carrier width for a classified scalar from
// its layout's byte size. POINTER and STRUCT paths set their own
// carriers explicitly.
func carrierFor(l layout.Layout, kind TypeKind) CarrierType {
	if kind == KindFloat {
		if l.ByteSize() <= 4 {
			return CarrierFloat32
		}
		return CarrierFloat64
	}
	switch {
	case l.ByteSize() <= 1:
		return CarrierInt8
	case l.ByteSize() <= 2:
		return CarrierInt16
	case l.ByteSize() <= 4:
		return CarrierInt32
	default:
		return CarrierInt64
	}
}

// BindingCalculator is the shared base of the unbox and box variants: it
// owns the StorageCalculator for its direction (spec §4.2) and exposes
// GetBindings over a layout.
type BindingCalculator struct {
	Storage *StorageCalculator
}

func newBindingCalculator(forArguments bool) BindingCalculator {
	return BindingCalculator{Storage: NewStorageCalculator(forArguments)}
}

// structOffsets walks a struct's eightbyte offsets in lockstep with its
// TypeClass.Classes, yielding the (offset, size) of each chunk plus,
// when that chunk actually consumes a storage (its class is other than
// NO_CLASS/SSEUP), the next entry from storages. This is the shared
// iteration both UnboxBindingCalculator and BoxBindingCalculator use to
// emit Dereference bindings (spec §4.3/§4.4).
func structOffsets(byteSize uint64, classes []ArgumentClass, storages []VMStorage, emit func(storage VMStorage, offset, size uint64)) {
	regIndex := 0
	offset := uint64(0)
	for _, c := range classes {
		size := byteSize - offset
		if size > 8 {
			size = 8
		}
		switch c {
		case NoClass, SSEUp:
			// No live data (NO_CLASS) or shares the previous SSE
			// eightbyte's register (SSEUP, unreachable for the Value
			// grammar this core supports but handled for completeness
			// of the class enumeration) — no binding emitted.
		default:
			emit(storages[regIndex], offset, size)
			regIndex++
		}
		offset += 8
	}
}

// UnboxBindingCalculator marshals a host carrier into native storage: it
// is used for downcall arguments and upcall returns (spec §4.3).
type UnboxBindingCalculator struct {
	BindingCalculator
}

func NewUnboxBindingCalculator(forArguments bool) *UnboxBindingCalculator {
	return &UnboxBindingCalculator{BindingCalculator: newBindingCalculator(forArguments)}
}

// GetBindings returns the ordered bindings that move l's value out of a
// host carrier (a buffer, for STRUCT; a scalar, otherwise) into the
// storages this call allocates for it.
func (u *UnboxBindingCalculator) GetBindings(l layout.Layout) ([]Binding, error) {
	tc, err := classifyLayout(l)
	if err != nil {
		return nil, err
	}
	switch tc.Kind {
	case KindStruct:
		regs := u.Storage.StructStorages(tc)
		var bindings []Binding
		structOffsets(l.ByteSize(), tc.Classes, regs, func(storage VMStorage, offset, size uint64) {
			bindings = append(bindings, dereferenceBinding(storage, offset, size))
		})
		return bindings, nil
	case KindPointer:
		storage := u.Storage.NextStorage(StorageInteger)
		return []Binding{boxAddressBinding(), moveBinding(storage, CarrierInt64)}, nil
	case KindInteger:
		storage := u.Storage.NextStorage(StorageInteger)
		return []Binding{moveBinding(storage, carrierFor(l, tc.Kind))}, nil
	case KindFloat:
		storage := u.Storage.NextStorage(StorageVector)
		return []Binding{moveBinding(storage, carrierFor(l, tc.Kind))}, nil
	default:
		return nil, fmt.Errorf("%w: unhandled TypeClass kind %v", ErrUnsupportedLayout, tc.Kind)
	}
}

// BoxBindingCalculator marshals native storage into a host carrier: it
// is used for downcall returns and upcall arguments (spec §4.4).
type BoxBindingCalculator struct {
	BindingCalculator
}

func NewBoxBindingCalculator(forArguments bool) *BoxBindingCalculator {
	return &BoxBindingCalculator{BindingCalculator: newBindingCalculator(forArguments)}
}

// GetBindings returns the ordered bindings that materialize l's value
// from the storages this call allocates for it into a host carrier.
func (b *BoxBindingCalculator) GetBindings(l layout.Layout) ([]Binding, error) {
	tc, err := classifyLayout(l)
	if err != nil {
		return nil, err
	}
	switch tc.Kind {
	case KindStruct:
		regs := b.Storage.StructStorages(tc)
		bindings := []Binding{allocateBufferBinding(l)}
		structOffsets(l.ByteSize(), tc.Classes, regs, func(storage VMStorage, offset, size uint64) {
			bindings = append(bindings, dereferenceBinding(storage, offset, size))
		})
		return bindings, nil
	case KindPointer:
		storage := b.Storage.NextStorage(StorageInteger)
		return []Binding{moveBinding(storage, CarrierInt64), boxAddressBinding()}, nil
	case KindInteger:
		storage := b.Storage.NextStorage(StorageInteger)
		return []Binding{moveBinding(storage, carrierFor(l, tc.Kind))}, nil
	case KindFloat:
		storage := b.Storage.NextStorage(StorageVector)
		return []Binding{moveBinding(storage, carrierFor(l, tc.Kind))}, nil
	default:
		return nil, fmt.Errorf("%w: unhandled TypeClass kind %v", ErrUnsupportedLayout, tc.Kind)
	}
}
