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

// Package dump renders a finished sysv.CallingSequence as a
// pseudo-instruction listing, the way the teacher renders a translated
// function as Go assembly text before handing it to asmfmt for final
// column alignment.
package dump

import (
	"fmt"
	"strings"

	"github.com/klauspost/asmfmt"

	"github.com/ajroetker/sysvabi/sysv"
)

// amd64IntegerArgNames mirrors the teacher's amd64Registers table: the
// Plan9 assembler names of the SysV integer argument registers, in
// allocation order.
var amd64IntegerArgNames = []string{"DI", "SI", "DX", "CX", "R8", "R9"}

func storageName(s sysv.VMStorage) string {
	switch s.Kind {
	case sysv.StorageInteger:
		if s == sysv.RAXStorage {
			return "AL"
		}
		if s.Index >= 0 && s.Index < len(amd64IntegerArgNames) {
			return amd64IntegerArgNames[s.Index]
		}
		return fmt.Sprintf("R%d", s.Index)
	case sysv.StorageVector:
		return fmt.Sprintf("X%d", s.Index)
	case sysv.StorageStack:
		return fmt.Sprintf("%d(SP)", s.Index*8)
	default:
		return s.String()
	}
}

func moveMnemonic(c sysv.CarrierType) string {
	switch c {
	case sysv.CarrierInt8:
		return "MOVB"
	case sysv.CarrierInt16:
		return "MOVW"
	case sysv.CarrierInt32:
		return "MOVL"
	case sysv.CarrierFloat32:
		return "MOVSS"
	case sysv.CarrierFloat64:
		return "MOVSD"
	default:
		return "MOVQ"
	}
}

// renderBinding writes one binding as a commented pseudo-instruction
// line under label, the name of the argument or return slot it belongs
// to (e.g. "arg0", "ret").
func renderBinding(w *strings.Builder, label string, b sysv.Binding) {
	switch b.Op {
	case sysv.OpMove:
		fmt.Fprintf(w, "\t%s\t%s, %s // move %s\n", moveMnemonic(b.Carrier), label, storageName(b.Storage), label)
	case sysv.OpDereference:
		fmt.Fprintf(w, "\tMOVQ\t%s+%d(FP), %s // dereference %d bytes of %s\n", label, b.Offset, storageName(b.Storage), b.Size, label)
	case sysv.OpBoxAddress:
		fmt.Fprintf(w, "\tLEAQ\t%s, AX // address-of %s\n", label, label)
	case sysv.OpAllocateBuffer:
		fmt.Fprintf(w, "\t// ALLOCATE $%d // %s buffer for %s\n", b.Layout.ByteSize(), b.Layout.Name(), label)
	default:
		fmt.Fprintf(w, "\t// unknown binding op %v for %s\n", b.Op, label)
	}
}

// Sprint renders cs as an asmfmt-formatted pseudo-instruction listing:
// one comment block of Move/Dereference/BoxAddress/AllocateBuffer lines
// per argument, then the return bindings if any. The result is not
// executable assembly — it is a human-readable trace of the calling
// sequence a call arranger produced, wrapped in a TEXT block purely so
// asmfmt recognizes it as an assembly file and aligns its columns.
func Sprint(cs sysv.CallingSequence) (string, error) {
	var body strings.Builder
	for i, bindings := range cs.ArgumentBindings {
		label := fmt.Sprintf("arg%d", i)
		for _, b := range bindings {
			renderBinding(&body, label, b)
		}
	}
	if cs.HasReturn {
		for _, b := range cs.ReturnBindings {
			renderBinding(&body, "ret", b)
		}
	}

	var src strings.Builder
	src.WriteString("TEXT ·CallingSequence(SB), NOSPLIT, $0-0\n")
	src.WriteString(body.String())
	src.WriteString("\tRET\n")

	formatted, err := asmfmt.Format(strings.NewReader(src.String()))
	if err != nil {
		return "", fmt.Errorf("dump: formatting calling sequence: %w", err)
	}
	return string(formatted), nil
}
