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
	"errors"
	"reflect"
	"testing"

	"github.com/ajroetker/sysvabi/layout"
)

func int64Field(name string) layout.Layout  { return layout.NewValue(name, 8, 8, layout.Integer) }
func int32Field(name string) layout.Layout  { return layout.NewValue(name, 4, 4, layout.Integer) }
func floatField(name string) layout.Layout  { return layout.NewValue(name, 4, 4, layout.SSE) }
func doubleField(name string) layout.Layout { return layout.NewValue(name, 8, 8, layout.SSE) }

func TestClassifyType_Value(t *testing.T) {
	tests := []struct {
		name string
		l    layout.Layout
		want []ArgumentClass
	}{
		{"int32", int32Field("x"), []ArgumentClass{Integer}},
		{"int64", int64Field("x"), []ArgumentClass{Integer}},
		{"int128", layout.NewValue("x", 16, 16, layout.Integer), []ArgumentClass{Integer, Integer}},
		{"double", doubleField("x"), []ArgumentClass{SSE}},
		{"pointer", layout.NewValue("x", 8, 8, layout.Pointer), []ArgumentClass{Pointer}},
		{"long double", layout.NewValue("x", 16, 16, layout.X87), []ArgumentClass{X87, X87Up}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := classifyType(tt.l)
			if err != nil {
				t.Fatalf("classifyType() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("classifyType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyType_Value_MissingAnnotation(t *testing.T) {
	_, err := classifyType(layout.NewUnannotatedValue("x", 4, 4))
	if !errors.Is(err, ErrUnsupportedLayout) {
		t.Errorf("err = %v, want ErrUnsupportedLayout", err)
	}
}

// Scenario 3 (spec §8): struct { int64; int64 } -> two INTEGER eightbytes.
func TestClassifyType_Struct_TwoInt64(t *testing.T) {
	s := layout.NewStruct("pair", 16, 8, []layout.Layout{int64Field("a"), int64Field("b")})
	got, err := classifyType(s)
	if err != nil {
		t.Fatalf("classifyType() error = %v", err)
	}
	want := []ArgumentClass{Integer, Integer}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("classifyType() = %v, want %v", got, want)
	}
}

// Scenario 4 (spec §8): struct { int64; int64; int64 } -> 3 eightbytes,
// leading class not SSE after the >2-eightbyte rule check -> MEMORY.
func TestClassifyType_Struct_ThreeInt64_ForcesMemory(t *testing.T) {
	s := layout.NewStruct("triple", 24, 8, []layout.Layout{int64Field("a"), int64Field("b"), int64Field("c")})
	got, err := classifyType(s)
	if err != nil {
		t.Fatalf("classifyType() error = %v", err)
	}
	want := []ArgumentClass{Memory, Memory, Memory}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("classifyType() = %v, want %v", got, want)
	}
}

// Scenario 5 (spec §8): struct { float; float } -> one SSE eightbyte.
func TestClassifyType_Struct_TwoFloats(t *testing.T) {
	s := layout.NewStruct("pair", 8, 4, []layout.Layout{floatField("a"), floatField("b")})
	got, err := classifyType(s)
	if err != nil {
		t.Fatalf("classifyType() error = %v", err)
	}
	want := []ArgumentClass{SSE}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("classifyType() = %v, want %v", got, want)
	}
}

func TestClassifyType_Array_LargerThanEightEightbytes_IsMemory(t *testing.T) {
	elem := int64Field("e")
	arr := layout.NewSequence("big", elem, 9) // 72 bytes -> 9 eightbytes
	got, err := classifyType(arr)
	if err != nil {
		t.Fatalf("classifyType() error = %v", err)
	}
	if len(got) != 9 {
		t.Fatalf("len(got) = %d, want 9", len(got))
	}
	for i, c := range got {
		if c != Memory {
			t.Errorf("got[%d] = %v, want MEMORY", i, c)
		}
	}
}

func TestClassifyType_Union_MembersOverlayOffsetZero(t *testing.T) {
	// A union of an int32 and a float both land at offset 0 and merge
	// into a single eightbyte; INTEGER wins over SSE per the merge table.
	u := layout.NewUnion("u", 4, 4, []layout.Layout{int32Field("i"), floatField("f")})
	got, err := classifyType(u)
	if err != nil {
		t.Fatalf("classifyType() error = %v", err)
	}
	want := []ArgumentClass{Integer}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("classifyType() = %v, want %v", got, want)
	}
}

func TestClassifyType_Struct_PaddingMemberSkipped(t *testing.T) {
	s := layout.NewStruct("padded", 16, 8, []layout.Layout{
		int64Field("a"),
		layout.NewPadding(8, 8),
	})
	got, err := classifyType(s)
	if err != nil {
		t.Fatalf("classifyType() error = %v", err)
	}
	want := []ArgumentClass{Integer, NoClass}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("classifyType() = %v, want %v", got, want)
	}
}

func TestApplyPsAbiFixups_LeadingX87UpIsMalformed(t *testing.T) {
	// A leading X87UP cannot arise from a well-formed X87 Value (which
	// always emits [X87, X87UP] together starting at offset 0), so the
	// error path is exercised directly against the fixup helper.
	_, err := applyPsAbiFixups([]ArgumentClass{X87Up, Integer})
	if !errors.Is(err, ErrMalformedLayout) {
		t.Errorf("err = %v, want ErrMalformedLayout", err)
	}
}

func TestApplyPsAbiFixups_X87UpNotPrecededByX87_IsMemory(t *testing.T) {
	got, err := applyPsAbiFixups([]ArgumentClass{Integer, X87Up})
	if err != nil {
		t.Fatalf("applyPsAbiFixups() error = %v", err)
	}
	want := []ArgumentClass{Memory, Memory}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("applyPsAbiFixups() = %v, want %v", got, want)
	}
}

func TestClassifyLayout_Kinds(t *testing.T) {
	tests := []struct {
		name string
		l    layout.Layout
		want TypeKind
	}{
		{"pointer", layout.NewValue("p", 8, 8, layout.Pointer), KindPointer},
		{"integer", int32Field("i"), KindInteger},
		{"float", doubleField("d"), KindFloat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := classifyLayout(tt.l)
			if err != nil {
				t.Fatalf("classifyLayout() error = %v", err)
			}
			if tc.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", tc.Kind, tt.want)
			}
		})
	}
}

func TestClassifyLayout_Struct(t *testing.T) {
	s := layout.NewStruct("pair", 16, 8, []layout.Layout{int64Field("a"), int64Field("b")})
	tc, err := classifyLayout(s)
	if err != nil {
		t.Fatalf("classifyLayout() error = %v", err)
	}
	if tc.Kind != KindStruct {
		t.Errorf("Kind = %v, want KindStruct", tc.Kind)
	}
	if tc.InMemory() {
		t.Error("expected two-int64 struct not to be in-memory")
	}
}

func TestClassifyLayout_ComplexLongDouble(t *testing.T) {
	ld := layout.NewValue("re", 16, 16, layout.X87)
	g := layout.NewComplexX87Struct("cld", []layout.Layout{ld, layout.NewValue("im", 16, 16, layout.X87)})
	tc, err := classifyLayout(g)
	if err != nil {
		t.Fatalf("classifyLayout() error = %v", err)
	}
	want := []ArgumentClass{X87, X87Up, X87, X87Up}
	if !reflect.DeepEqual(tc.Classes, want) {
		t.Errorf("Classes = %v, want %v", tc.Classes, want)
	}
}

func TestMerge_Table(t *testing.T) {
	tests := []struct {
		name string
		a, b ArgumentClass
		want ArgumentClass
	}{
		{"same", Integer, Integer, Integer},
		{"noclass absorbs", NoClass, SSE, SSE},
		{"memory dominates", Memory, Integer, Memory},
		{"integer dominates sse", Integer, SSE, Integer},
		{"integer dominates x87", Integer, X87, Integer},
		{"x87 meets sse is memory", X87, SSE, Memory},
		{"x87up meets integer is integer", X87Up, Integer, Integer},
		{"sse meets sse is sse", SSE, SSE, SSE},
		{"pointer meets noclass", Pointer, NoClass, Pointer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.merge(tt.b); got != tt.want {
				t.Errorf("%v.merge(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.merge(tt.a); got != tt.want {
				t.Errorf("%v.merge(%v) = %v, want %v (merge must be symmetric)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}
