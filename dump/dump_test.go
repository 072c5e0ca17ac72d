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

package dump

import (
	"strings"
	"testing"

	"github.com/ajroetker/sysvabi/layout"
	"github.com/ajroetker/sysvabi/sysv"
)

func TestSprint_SingleIntArg_MentionsDI(t *testing.T) {
	handle, err := sysv.ArrangeDowncall(0x1000,
		sysv.Signature{ParameterCount: 1, HasReturn: true},
		sysv.FunctionDescriptor{
			ArgumentLayouts: []layout.Layout{layout.NewValue("x", 4, 4, layout.Integer)},
			ReturnLayout:    ptr(layout.NewValue("ret", 4, 4, layout.Integer)),
		},
	)
	if err != nil {
		t.Fatalf("ArrangeDowncall() error = %v", err)
	}
	out, err := Sprint(handle.Sequence)
	if err != nil {
		t.Fatalf("Sprint() error = %v", err)
	}
	if !strings.Contains(out, "DI") {
		t.Errorf("Sprint() output missing DI:\n%s", out)
	}
	if !strings.Contains(out, "TEXT") || !strings.Contains(out, "RET") {
		t.Errorf("Sprint() output missing TEXT/RET frame:\n%s", out)
	}
}

func TestSprint_StructArg_MentionsDereference(t *testing.T) {
	handle, err := sysv.ArrangeDowncall(0x2000,
		sysv.Signature{ParameterCount: 1},
		sysv.FunctionDescriptor{
			ArgumentLayouts: []layout.Layout{
				layout.NewStruct("pair", 16, 8, []layout.Layout{
					layout.NewValue("a", 8, 8, layout.Integer),
					layout.NewValue("b", 8, 8, layout.Integer),
				}),
			},
		},
	)
	if err != nil {
		t.Fatalf("ArrangeDowncall() error = %v", err)
	}
	out, err := Sprint(handle.Sequence)
	if err != nil {
		t.Fatalf("Sprint() error = %v", err)
	}
	if !strings.Contains(out, "dereference") {
		t.Errorf("Sprint() output missing dereference comment:\n%s", out)
	}
}

func TestSprint_VectorArg_UsesXRegisterName(t *testing.T) {
	handle, err := sysv.ArrangeDowncall(0x3000,
		sysv.Signature{ParameterCount: 1},
		sysv.FunctionDescriptor{
			ArgumentLayouts: []layout.Layout{layout.NewValue("d", 8, 8, layout.SSE)},
		},
	)
	if err != nil {
		t.Fatalf("ArrangeDowncall() error = %v", err)
	}
	out, err := Sprint(handle.Sequence)
	if err != nil {
		t.Fatalf("Sprint() error = %v", err)
	}
	if !strings.Contains(out, "X0") {
		t.Errorf("Sprint() output missing X0:\n%s", out)
	}
}

func ptr(l layout.Layout) *layout.Layout { return &l }
