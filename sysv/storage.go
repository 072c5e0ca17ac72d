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

import "fmt"

// StorageKind discriminates the three places a VMStorage can live.
type StorageKind int

const (
	StorageInteger StorageKind = iota
	StorageVector
	StorageStack
)

func (k StorageKind) String() string {
	switch k {
	case StorageInteger:
		return "INTEGER"
	case StorageVector:
		return "VECTOR"
	case StorageStack:
		return "STACK"
	default:
		return fmt.Sprintf("StorageKind(%d)", int(k))
	}
}

// VMStorage is a location that can hold an argument or return piece: an
// integer register, a vector register, or an 8-byte stack slot, each
// identified by an index within its kind.
type VMStorage struct {
	Kind  StorageKind
	Index int
}

func (s VMStorage) String() string {
	switch s.Kind {
	case StorageStack:
		return fmt.Sprintf("stack[%d]", s.Index)
	default:
		return fmt.Sprintf("%s[%d]", s.Kind, s.Index)
	}
}

const (
	maxIntegerArgRegs = 6
	maxVectorArgRegs  = 8
	maxIntegerRetRegs = 2
	maxVectorRetRegs  = 2
)

// StorageCalculator is the stateful, exclusively-owned allocator of
// integer registers, vector registers, and stack slots described in
// spec §4.2. It is created once per calling direction (arguments or
// return) and threaded by pointer through that direction's argument
// loop; it is never shared across goroutines.
type StorageCalculator struct {
	forArguments bool

	nIntegerReg int
	nVectorReg  int
	stackOffset int
}

// NewStorageCalculator creates a calculator for arguments (forArguments
// true) or for a return value (forArguments false). Return calculators
// never allocate stack slots — StackAlloc panics if called on one,
// since reaching it would mean a bug in this package, not bad input.
func NewStorageCalculator(forArguments bool) *StorageCalculator {
	return &StorageCalculator{forArguments: forArguments}
}

// NVectorReg reports how many vector registers have been allocated so
// far. The top-level arranger reads this to populate the synthetic
// variadic vector-count argument.
func (s *StorageCalculator) NVectorReg() int { return s.nVectorReg }

// NIntegerReg reports how many integer registers have been allocated so
// far.
func (s *StorageCalculator) NIntegerReg() int { return s.nIntegerReg }

func (s *StorageCalculator) maxRegisterArguments(kind StorageKind) int {
	if s.forArguments {
		if kind == StorageInteger {
			return maxIntegerArgRegs
		}
		return maxVectorArgRegs
	}
	if kind == StorageInteger {
		return maxIntegerRetRegs
	}
	return maxVectorRetRegs
}

func (s *StorageCalculator) registerCount(kind StorageKind) int {
	if kind == StorageInteger {
		return s.nIntegerReg
	}
	return s.nVectorReg
}

func (s *StorageCalculator) incrementRegisterCount(kind StorageKind) {
	if kind == StorageInteger {
		s.nIntegerReg++
	} else {
		s.nVectorReg++
	}
}

// StackAlloc allocates the next 8-byte stack slot. It panics if called on
// a return calculator: the psABI never returns values on the stack, so
// reaching this path for a return is an invariant violation in this
// package, not a recoverable condition.
func (s *StorageCalculator) StackAlloc() VMStorage {
	if !s.forArguments {
		panic("sysv: StackAlloc called on a return StorageCalculator")
	}
	storage := VMStorage{Kind: StorageStack, Index: s.stackOffset}
	s.stackOffset++
	return storage
}

// NextStorage allocates the next register of the given kind, falling
// back to a stack slot once that kind's per-direction cap is reached
// (arguments only; on a return calculator, exhausting the cap reaches
// StackAlloc, which panics).
func (s *StorageCalculator) NextStorage(kind StorageKind) VMStorage {
	count := s.registerCount(kind)
	if count < s.maxRegisterArguments(kind) {
		s.incrementRegisterCount(kind)
		return VMStorage{Kind: kind, Index: count}
	}
	return s.StackAlloc()
}

// StructStorages implements the psABI's all-or-nothing aggregate rule
// (spec §4.2): either every eightbyte of typeClass fits in registers of
// its own kind, with enough of *both* kinds available simultaneously, or
// the whole aggregate spills to the stack as one contiguous run of
// slots.
//
// The returned slice has one entry per eightbyte that actually consumes
// a storage location. In the stack branch every eightbyte is MEMORY, so
// every eightbyte consumes a slot and the slice has len(typeClass.Classes)
// entries. In the register branch, NO_CLASS and SSEUP eightbytes consume
// nothing — NO_CLASS carries no live data, and SSEUP shares the vector
// register allocated to the SSE eightbyte immediately before it — so the
// slice is shorter than typeClass.Classes whenever either appears. The
// binding calculator (binding.go) walks typeClass.Classes in lockstep to
// know which offset chunks draw from this slice.
func (s *StorageCalculator) StructStorages(typeClass TypeClass) []VMStorage {
	if typeClass.InMemory() {
		return s.spillToStack(len(typeClass.Classes))
	}

	nInt := typeClass.numClasses(Integer) + typeClass.numClasses(Pointer)
	if s.nIntegerReg+nInt > s.maxRegisterArguments(StorageInteger) {
		return s.spillToStack(len(typeClass.Classes))
	}

	nVec := typeClass.numClasses(SSE)
	if s.nVectorReg+nVec > s.maxRegisterArguments(StorageVector) {
		return s.spillToStack(len(typeClass.Classes))
	}

	storages := make([]VMStorage, 0, nInt+nVec)
	for _, c := range typeClass.Classes {
		switch c {
		case SSE:
			storages = append(storages, s.NextStorage(StorageVector))
		case Integer, Pointer:
			storages = append(storages, s.NextStorage(StorageInteger))
		default:
			// NO_CLASS, SSEUP: no storage of their own.
		}
	}
	return storages
}

func (s *StorageCalculator) spillToStack(n int) []VMStorage {
	storages := make([]VMStorage, n)
	for i := range storages {
		storages[i] = s.StackAlloc()
	}
	return storages
}
