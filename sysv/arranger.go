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

// CallingSequence is the finished, immutable output of the arranger
// (spec §3): one ordered binding list per argument (including any
// synthetic ones), plus an optional return binding list.
type CallingSequence struct {
	ArgumentBindings [][]Binding
	ReturnBindings   []Binding
	HasReturn        bool
}

// NativeBuffer stands in for the out-of-scope "abstract memory segment"
// data type (spec §1, §6): an external collaborator's handle to a native
// buffer, from which a base address can be read.
type NativeBuffer interface {
	BaseAddress() uintptr
}

// BufferAllocator stands in for "native buffer allocation from a
// layout" (spec §6). This core never allocates a buffer itself, and
// ArrangeDowncall/ArrangeUpcall do not call this interface either: an
// in-memory return is described only by the hidden-pointer argument and
// the handle's InMemoryReturn flag.
type BufferAllocator interface {
	Allocate(l layout.Layout) (NativeBuffer, error)
}

// CopyBytesFunc stands in for "raw-memory copy (dest-address, src-buffer,
// size)" (spec §6).
type CopyBytesFunc func(dest uintptr, src NativeBuffer, size uint64)

// Invoker stands in for ProgrammableInvoker (spec §6): an external
// collaborator that actually loads registers and performs the native
// CALL. This core never implements one — doing so is explicitly out of
// scope (spec §1) — it only knows how to ask an InvokerFactory to build
// one from a finished CallingSequence.
type Invoker interface {
	Invoke(args []uintptr) ([]uintptr, error)
}

// InvokerFactory builds an Invoker from a finished calling sequence. The
// factory, like Invoker itself, is supplied by an external collaborator;
// this package ships none.
type InvokerFactory func(abi ABIDescriptor, addr uint64, cs CallingSequence) (Invoker, error)

// UpcallTarget stands in for the host-provided function an upcall calls
// back into.
type UpcallTarget interface {
	Call(args []any) (any, error)
}

// UpcallHandler stands in for ProgrammableUpcallHandler (spec §6): the
// native-callable entry point an external JIT builds for an upcall.
type UpcallHandler interface {
	Entry() uintptr
}

// UpcallHandlerFactory builds an UpcallHandler from a finished calling
// sequence and its host-side target.
type UpcallHandlerFactory func(abi ABIDescriptor, target UpcallTarget, cs CallingSequence) (UpcallHandler, error)

// Options configure the optional external collaborators ArrangeDowncall
// and ArrangeUpcall may be given. All are optional: the arranger itself
// never calls the native-execution machinery, and every CallHandle/
// UpcallHandle is fully described by its CallingSequence and
// ABIDescriptor whether or not these are supplied.
type Options struct {
	InvokerFactory       InvokerFactory
	UpcallHandlerFactory UpcallHandlerFactory
	BufferAllocator      BufferAllocator
	CopyBytes            CopyBytesFunc
}

// Option mutates an Options value.
type Option func(*Options)

// WithInvokerFactory supplies the external collaborator ArrangeDowncall
// uses to turn a finished CallHandle into something a caller can
// actually invoke.
func WithInvokerFactory(f InvokerFactory) Option {
	return func(o *Options) { o.InvokerFactory = f }
}

// WithUpcallHandlerFactory supplies the external collaborator
// ArrangeUpcall uses to turn a finished UpcallHandle into a native
// entry point.
func WithUpcallHandlerFactory(f UpcallHandlerFactory) Option {
	return func(o *Options) { o.UpcallHandlerFactory = f }
}

// WithBufferAllocator records a buffer allocator in Options. Neither
// ArrangeDowncall nor ArrangeUpcall reads it: no in-memory-return buffer
// is allocated and no invoker wrapping is done.
func WithBufferAllocator(a BufferAllocator) Option {
	return func(o *Options) { o.BufferAllocator = a }
}

// WithCopyBytes records a raw-memory copy function in Options. Neither
// ArrangeDowncall nor ArrangeUpcall reads it: an upcall's in-memory
// return is not copied into the caller's destination by this package.
func WithCopyBytes(f CopyBytesFunc) Option {
	return func(o *Options) { o.CopyBytes = f }
}

// hiddenPointerLayout is the synthetic leading argument injected when a
// return is classified in-memory (spec §4.5 step 3): an 8-byte pointer
// value with no further structure.
func hiddenPointerLayout() layout.Layout {
	return layout.NewValue("__retbuf", 8, 8, layout.Pointer)
}

// CallHandle is the call-site artifact ArrangeDowncall returns (spec
// §4.5, §6). It owns its CallingSequence and ABIDescriptor; by itself it
// performs no native call — that is the job of the Invoker an external
// collaborator builds from it via InvokerFactory.
type CallHandle struct {
	ABI            ABIDescriptor
	Addr           uint64
	Sequence       CallingSequence
	InMemoryReturn bool
	ReturnLayout   *layout.Layout
	NVectorReg     int
	Invoker        Invoker
}

// Bindings returns the handle's finished calling sequence.
func (h *CallHandle) Bindings() CallingSequence { return h.Sequence }

// isInMemoryReturn reports whether cDesc's return layout is a struct
// whose classification forces MEMORY (spec §4.5 step 2).
func isInMemoryReturn(ret *layout.Layout) (bool, error) {
	if ret == nil || ret.Kind() != layout.Group {
		return false, nil
	}
	tc, err := classifyLayout(*ret)
	if err != nil {
		return false, err
	}
	return tc.InMemory(), nil
}

func validateSignature(hostSig Signature, cDesc FunctionDescriptor) error {
	if hostSig.ParameterCount != len(cDesc.ArgumentLayouts) {
		return fmt.Errorf("%w: host signature has %d parameters, C descriptor has %d arguments",
			ErrArityMismatch, hostSig.ParameterCount, len(cDesc.ArgumentLayouts))
	}
	if hostSig.HasReturn != (cDesc.ReturnLayout != nil) {
		return fmt.Errorf("%w: host signature HasReturn=%v, C descriptor return layout present=%v",
			ErrReturnPresenceMismatch, hostSig.HasReturn, cDesc.ReturnLayout != nil)
	}
	return nil
}

// ArrangeDowncall builds the calling sequence for a call from the host
// runtime into native C code (spec §4.5). addr is the native function's
// address; hostSig and cDesc must agree on arity and return presence.
func ArrangeDowncall(addr uint64, hostSig Signature, cDesc FunctionDescriptor, opts ...Option) (*CallHandle, error) {
	if err := validateSignature(hostSig, cDesc); err != nil {
		return nil, err
	}
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	argCalc := NewUnboxBindingCalculator(true)
	retCalc := NewBoxBindingCalculator(false)

	imr, err := isInMemoryReturn(cDesc.ReturnLayout)
	if err != nil {
		return nil, err
	}

	var argumentBindings [][]Binding
	var returnBindings []Binding
	hasReturn := false

	switch {
	case imr:
		b, err := argCalc.GetBindings(hiddenPointerLayout())
		if err != nil {
			return nil, err
		}
		argumentBindings = append(argumentBindings, b)
	case cDesc.ReturnLayout != nil:
		b, err := retCalc.GetBindings(*cDesc.ReturnLayout)
		if err != nil {
			return nil, err
		}
		returnBindings = b
		hasReturn = true
	}

	for _, arg := range cDesc.ArgumentLayouts {
		b, err := argCalc.GetBindings(arg)
		if err != nil {
			return nil, err
		}
		argumentBindings = append(argumentBindings, b)
	}

	// Synthetic trailing argument: the psABI-mandated AL value carrying
	// the count of vector registers used, for variadic calls (spec §4.5
	// step 5). Harmless for non-variadic calls.
	argumentBindings = append(argumentBindings, []Binding{moveBinding(RAXStorage, CarrierInt64)})

	cs := CallingSequence{
		ArgumentBindings: argumentBindings,
		ReturnBindings:   returnBindings,
		HasReturn:        hasReturn,
	}

	handle := &CallHandle{
		ABI:            SysV,
		Addr:           addr,
		Sequence:       cs,
		InMemoryReturn: imr,
		ReturnLayout:   cDesc.ReturnLayout,
		NVectorReg:     argCalc.Storage.NVectorReg(),
	}

	if o.InvokerFactory != nil {
		inv, err := o.InvokerFactory(handle.ABI, addr, cs)
		if err != nil {
			return nil, err
		}
		handle.Invoker = inv
	}

	return handle, nil
}

// UpcallHandle is the call-site artifact ArrangeUpcall returns (spec
// §4.5, §6), symmetric to CallHandle.
type UpcallHandle struct {
	ABI            ABIDescriptor
	Target         UpcallTarget
	Sequence       CallingSequence
	InMemoryReturn bool
	ReturnLayout   *layout.Layout
	Handler        UpcallHandler
}

// Bindings returns the handle's finished calling sequence.
func (h *UpcallHandle) Bindings() CallingSequence { return h.Sequence }

// ArrangeUpcall builds the calling sequence for a native call back into
// a host-provided function (spec §4.5): symmetric to ArrangeDowncall,
// with box/unbox swapped and no synthetic vector-count argument (the
// callee, not the caller, reads rax for a variadic call; an upcall is
// always fully typed from the host's side).
func ArrangeUpcall(target UpcallTarget, hostSig Signature, cDesc FunctionDescriptor, opts ...Option) (*UpcallHandle, error) {
	if err := validateSignature(hostSig, cDesc); err != nil {
		return nil, err
	}
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	argCalc := NewBoxBindingCalculator(true)
	retCalc := NewUnboxBindingCalculator(false)

	imr, err := isInMemoryReturn(cDesc.ReturnLayout)
	if err != nil {
		return nil, err
	}

	var argumentBindings [][]Binding
	var returnBindings []Binding
	hasReturn := false

	switch {
	case imr:
		b, err := argCalc.GetBindings(hiddenPointerLayout())
		if err != nil {
			return nil, err
		}
		argumentBindings = append(argumentBindings, b)
	case cDesc.ReturnLayout != nil:
		b, err := retCalc.GetBindings(*cDesc.ReturnLayout)
		if err != nil {
			return nil, err
		}
		returnBindings = b
		hasReturn = true
	}

	for _, arg := range cDesc.ArgumentLayouts {
		b, err := argCalc.GetBindings(arg)
		if err != nil {
			return nil, err
		}
		argumentBindings = append(argumentBindings, b)
	}

	cs := CallingSequence{
		ArgumentBindings: argumentBindings,
		ReturnBindings:   returnBindings,
		HasReturn:        hasReturn,
	}

	handle := &UpcallHandle{
		ABI:            SysV,
		Target:         target,
		Sequence:       cs,
		InMemoryReturn: imr,
		ReturnLayout:   cDesc.ReturnLayout,
	}

	if o.UpcallHandlerFactory != nil {
		h, err := o.UpcallHandlerFactory(handle.ABI, target, cs)
		if err != nil {
			return nil, err
		}
		handle.Handler = h
	}

	return handle, nil
}
