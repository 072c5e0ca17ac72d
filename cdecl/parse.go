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

// Package cdecl parses a C function definition (and any struct/union
// typedefs it references) into the layout.Layout argument and return
// trees package sysv classifies. It is the C-facing front end of this
// module: where the teacher's own main.go parses whole translation
// units into Go-assembly stubs, cdecl parses a single declaration far
// enough to build an ABI-ready call descriptor.
package cdecl

import (
	"fmt"
	"strings"

	"modernc.org/cc/v4"

	"github.com/ajroetker/sysvabi/layout"
)

// Declaration is the result of parsing one C function: its argument
// layouts in declaration order, its return layout (nil for void), and
// whether it was declared variadic (a trailing "...").
type Declaration struct {
	Name      string
	Arguments []layout.Layout
	Return    *layout.Layout
	Variadic  bool
}

// ErrUnsupportedCType is returned for C constructs this front end does
// not translate: bit-fields, variable-length arrays, and any `_Complex`
// type other than `long double _Complex` — all explicit non-goals of
// this module (spec §1).
var ErrUnsupportedCType = fmt.Errorf("cdecl: unsupported C type")

// stdintPrologue provides the fixed-width typedefs real C headers would
// pull in from <stdint.h>, the same way the teacher's main.go injects
// them (see its parseSource) so a prototype string doesn't need its own
// #include to use int32_t, int64_t, etc.
const stdintPrologue = `
typedef signed char int8_t;
typedef short int16_t;
typedef int int32_t;
typedef long int64_t;
typedef unsigned char uint8_t;
typedef unsigned short uint16_t;
typedef unsigned int uint32_t;
typedef unsigned long uint64_t;
`

// Parse parses a single C function definition, optionally preceded by
// struct/union typedefs it depends on, and returns its call descriptor.
// The function must have a body (even an empty one) — cdecl is grounded
// on the teacher's own FuncDef-only extraction in main.go's
// convertFunction, which never looks at prototype-only declarations.
func Parse(prototype string, structDefs string) (Declaration, error) {
	cfg, err := cc.NewConfig("linux", "amd64")
	if err != nil {
		return Declaration{}, fmt.Errorf("cdecl: configuring C parser: %w", err)
	}

	var src strings.Builder
	src.WriteString(stdintPrologue)
	src.WriteString(structDefs)
	src.WriteString("\n")
	src.WriteString(prototype)

	ast, err := cc.Translate(cfg, []cc.Source{
		{Name: "<predefined>", Value: cfg.Predefined},
		{Name: "<builtin>", Value: cc.Builtin},
		{Name: "<prototype>", Value: src.String()},
	})
	if err != nil {
		return Declaration{}, fmt.Errorf("cdecl: parsing prototype: %w", err)
	}

	for tu := ast.TranslationUnit; tu != nil; tu = tu.TranslationUnit {
		ed := tu.ExternalDeclaration
		if ed.Case != cc.ExternalDeclarationFuncDef {
			continue
		}
		return declarationFromFuncDef(ed.FunctionDefinition)
	}
	return Declaration{}, fmt.Errorf("cdecl: no function definition found in prototype")
}

func declarationFromFuncDef(fd *cc.FunctionDefinition) (Declaration, error) {
	declarator := fd.Declarator
	fnType0 := declarator.Type()
	if fnType0.Kind() != cc.Function {
		return Declaration{}, fmt.Errorf("%w: declarator is not a function", ErrUnsupportedCType)
	}
	fnType, ok := fnType0.(*cc.FunctionType)
	if !ok {
		return Declaration{}, fmt.Errorf("%w: declarator is not a function", ErrUnsupportedCType)
	}

	decl := Declaration{Name: declarator.Name()}

	resultType := fnType.Result()
	if resultType != nil && resultType.Kind() != cc.Void {
		retLayout, err := layoutFromType(resultType, "__return")
		if err != nil {
			return Declaration{}, err
		}
		decl.Return = &retLayout
	}

	params := fnType.Parameters()
	decl.Arguments = make([]layout.Layout, 0, len(params))
	for _, p := range params {
		l, err := layoutFromType(p.Type(), p.Name())
		if err != nil {
			return Declaration{}, err
		}
		decl.Arguments = append(decl.Arguments, l)
	}
	decl.Variadic = fnType.IsVariadic()

	return decl, nil
}

// layoutFromType maps a resolved cc.Type into the layout.Layout grammar
// the classifier walks. Bit-fields and variable-length arrays are
// rejected with ErrUnsupportedCType since both are explicit non-goals
// (spec §1); everything else follows the psABI's scalar class
// assignment (spec §4.1: INTEGER for the integral kinds and pointers
// classify as POINTER rather than INTEGER, SSE for float/double, X87
// for long double).
func layoutFromType(t cc.Type, name string) (layout.Layout, error) {
	size := uint64(t.Size())
	align := uint64(t.Align())
	if align == 0 {
		align = 1
	}

	switch t.Kind() {
	case cc.Bool, cc.Char, cc.SChar, cc.UChar,
		cc.Short, cc.UShort,
		cc.Int, cc.UInt, cc.Enum,
		cc.Long, cc.ULong, cc.LongLong, cc.ULongLong:
		return layout.NewValue(name, size, align, layout.Integer), nil
	case cc.Float:
		return layout.NewValue(name, size, align, layout.SSE), nil
	case cc.Double:
		return layout.NewValue(name, size, align, layout.SSE), nil
	case cc.LongDouble:
		return layout.NewValue(name, 16, 16, layout.X87), nil
	case cc.Ptr:
		return layout.NewValue(name, 8, 8, layout.Pointer), nil
	case cc.Array:
		return arrayLayout(t, name)
	case cc.Struct, cc.Union:
		return structLayout(t, name)
	default:
		return layout.Layout{}, fmt.Errorf("%w: kind %v for %q", ErrUnsupportedCType, t.Kind(), name)
	}
}

func arrayLayout(t cc.Type, name string) (layout.Layout, error) {
	at, ok := t.(*cc.ArrayType)
	if !ok {
		return layout.Layout{}, fmt.Errorf("%w: array %q", ErrUnsupportedCType, name)
	}
	if at.Len() < 0 {
		return layout.Layout{}, fmt.Errorf("%w: variable-length array %q", ErrUnsupportedCType, name)
	}
	elem, err := layoutFromType(at.Elem(), name+"[]")
	if err != nil {
		return layout.Layout{}, err
	}
	return layout.NewSequence(name, elem, uint64(at.Len())), nil
}

// structLayout walks a struct or union's fields in declaration order,
// synthesizing explicit layout.NewPadding members to cover the gaps
// cc/v4's Field.Offset() reveals between them (and after the last one,
// up to the type's overall size) — the layout.Layout grammar has no
// implicit padding, unlike a real C struct, so every unnamed byte
// becomes a padding member and the member list covers the struct's
// whole size. The classifier itself skips padding members and places
// each named member by its own alignment.
func structLayout(t cc.Type, name string) (layout.Layout, error) {
	if complexLD, ok := complexLongDoubleLayout(t, name); ok {
		return complexLD, nil
	}

	size := uint64(t.Size())
	align := uint64(t.Align())

	var n int
	fieldByIndex := func(i int) *cc.Field { return nil }
	switch x := t.(type) {
	case *cc.StructType:
		n = x.NumFields()
		fieldByIndex = x.FieldByIndex
	case *cc.UnionType:
		n = x.NumFields()
		fieldByIndex = x.FieldByIndex
	default:
		return layout.Layout{}, fmt.Errorf("%w: struct/union %q", ErrUnsupportedCType, name)
	}
	members := make([]layout.Layout, 0, n+1)

	var offset uint64
	for i := 0; i < n; i++ {
		f := fieldByIndex(i)
		if f.IsBitfield() {
			return layout.Layout{}, fmt.Errorf("%w: bit-field %q", ErrUnsupportedCType, f.Name())
		}
		fieldOffset := uint64(f.Offset())
		if fieldOffset > offset {
			members = append(members, layout.NewPadding(fieldOffset-offset, 1))
		}
		fl, err := layoutFromType(f.Type(), f.Name())
		if err != nil {
			return layout.Layout{}, err
		}
		members = append(members, fl)
		offset = fieldOffset + fl.ByteSize()
	}
	if size > offset {
		members = append(members, layout.NewPadding(size-offset, 1))
	}

	if t.Kind() == cc.Union {
		return layout.NewUnion(name, size, align, members), nil
	}
	return layout.NewStruct(name, size, align, members), nil
}
