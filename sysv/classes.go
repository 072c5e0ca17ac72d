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

// Package sysv implements the core of a System V AMD64 C ABI call
// arranger: classifying MemoryLayout trees into per-eightbyte ABI
// classes, assigning argument/return storages under the psABI's register
// exhaustion rules, and emitting the ordered bindings a downstream
// invoker uses to marshal values into machine registers and stack slots.
package sysv

import "fmt"

// ArgumentClass is one of the nine psABI eightbyte classes.
type ArgumentClass int

const (
	NoClass ArgumentClass = iota
	Integer
	SSE
	SSEUp
	X87
	X87Up
	ComplexX87
	Pointer
	Memory
)

func (c ArgumentClass) String() string {
	switch c {
	case NoClass:
		return "NO_CLASS"
	case Integer:
		return "INTEGER"
	case SSE:
		return "SSE"
	case SSEUp:
		return "SSEUP"
	case X87:
		return "X87"
	case X87Up:
		return "X87UP"
	case ComplexX87:
		return "COMPLEX_X87"
	case Pointer:
		return "POINTER"
	case Memory:
		return "MEMORY"
	default:
		return fmt.Sprintf("ArgumentClass(%d)", int(c))
	}
}

// merge implements the symmetric, idempotent psABI eightbyte merge table
// (spec §3): two fields that share an eightbyte combine to a single
// class. The receiver and argument are interchangeable.
func (c ArgumentClass) merge(other ArgumentClass) ArgumentClass {
	if c == other {
		return c
	}
	if c == NoClass {
		return other
	}
	if other == NoClass {
		return c
	}
	if c == Memory || other == Memory {
		return Memory
	}
	if c == Integer || other == Integer {
		return Integer
	}
	if isX87Family(c) || isX87Family(other) {
		return Memory
	}
	return SSE
}

func isX87Family(c ArgumentClass) bool {
	return c == X87 || c == X87Up || c == ComplexX87
}
