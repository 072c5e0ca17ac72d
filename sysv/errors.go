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

import "errors"

// Error kinds raised by the classifier and arranger. All are programmer
// errors: none is retried, and classification itself never silently
// degrades to one of these — an invalid class vector under the psABI
// fixups deterministically collapses to all-MEMORY, which is a
// successful classification, not an error.
var (
	// ErrUnsupportedLayout is returned for an unrecognized layout node
	// kind, a Value layout missing its ABI-class annotation, or an
	// unhandled TypeClass.Kind reaching a binding calculator.
	ErrUnsupportedLayout = errors.New("sysv: unsupported layout")

	// ErrMalformedLayout is returned when classification encounters a
	// leading X87UP eightbyte, which signals malformed input rather
	// than a layout this core simply doesn't support.
	ErrMalformedLayout = errors.New("sysv: malformed layout")

	// ErrArityMismatch is returned when the host signature's parameter
	// count disagrees with the C descriptor's argument count.
	ErrArityMismatch = errors.New("sysv: arity mismatch between host signature and C descriptor")

	// ErrReturnPresenceMismatch is returned when the host signature's
	// return type presence disagrees with the C descriptor's return
	// layout presence.
	ErrReturnPresenceMismatch = errors.New("sysv: return presence mismatch between host signature and C descriptor")
)
