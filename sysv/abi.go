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

import "github.com/ajroetker/sysvabi/layout"

// ABIDescriptor names the concrete registers and stack layout of a
// calling convention (spec §4.5). Only one instance is meaningful for
// this core — SysV — but the type is kept generic so an external
// non-SysV arranger (out of scope here) could reuse it.
type ABIDescriptor struct {
	InputIntegerRegs  []VMStorage
	InputVectorRegs   []VMStorage
	OutputIntegerRegs []VMStorage
	OutputVectorRegs  []VMStorage
	VolatileIntegerRegs []VMStorage
	VolatileVectorRegs  []VMStorage
	StackAlignment    uint64
	ShadowSpace       uint64
}

func integerRegs(indices ...int) []VMStorage {
	out := make([]VMStorage, len(indices))
	for i, idx := range indices {
		out[i] = VMStorage{Kind: StorageInteger, Index: idx}
	}
	return out
}

func vectorRegs(indices ...int) []VMStorage {
	out := make([]VMStorage, len(indices))
	for i, idx := range indices {
		out[i] = VMStorage{Kind: StorageVector, Index: idx}
	}
	return out
}

// SysV is the System V AMD64 ABI descriptor (spec §4.5): rdi, rsi, rdx,
// rcx, r8, r9 for integer arguments (rax is used only for the synthetic
// variadic vector-count argument, not listed here since NextStorage
// never needs to name it); xmm0..xmm7 for vector arguments; rax/rdx and
// xmm0/xmm1 for integer/vector returns; r10/r11 and xmm8..xmm15 as
// caller-volatile scratch; 16-byte stack alignment; no shadow space.
var SysV = ABIDescriptor{
	InputIntegerRegs:    integerRegs(0, 1, 2, 3, 4, 5), // rdi, rsi, rdx, rcx, r8, r9
	InputVectorRegs:     vectorRegs(0, 1, 2, 3, 4, 5, 6, 7),
	OutputIntegerRegs:   integerRegs(0, 1), // rax, rdx
	OutputVectorRegs:    vectorRegs(0, 1),
	VolatileIntegerRegs: integerRegs(10, 11), // r10, r11 (named by native index, not argument slot)
	VolatileVectorRegs:  vectorRegs(8, 9, 10, 11, 12, 13, 14, 15),
	StackAlignment:      16,
	ShadowSpace:         0,
}

// RAXStorage is the scratch integer storage the psABI uses for the AL
// byte of variadic calls' vector-register count; it is not one of
// SysV's InputIntegerRegs because it is never allocated through
// NextStorage — the arranger binds it directly (spec §4.5).
var RAXStorage = VMStorage{Kind: StorageInteger, Index: -1}

// Signature is the host-language view of a call site: its parameter
// carrier kinds, measured only by presence/absence of a return — the
// arranger needs arity and return-presence, not full Go reflect types,
// since carriers are driven by the C descriptor's layouts.
type Signature struct {
	ParameterCount int
	HasReturn      bool
}

// FunctionDescriptor is the C-side view of a call site (spec §3): the
// ordered argument layouts and an optional return layout.
type FunctionDescriptor struct {
	ArgumentLayouts []layout.Layout
	ReturnLayout    *layout.Layout
}
