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

package cdecl

import (
	"modernc.org/cc/v4"

	"github.com/ajroetker/sysvabi/layout"
)

// complexLongDoubleLayout recognizes the compiler's representation of
// `long double _Complex`: a two-member struct of long doubles, each
// holding the real and imaginary part. cc/v4 has no distinct Kind for
// `_Complex` types, so this is a narrow, name-independent shape match
// rather than a general complex-number feature — the only case this
// front end treats as COMPLEX_X87 rather than an ordinary two-member
// struct of X87 values.
func complexLongDoubleLayout(t cc.Type, name string) (layout.Layout, bool) {
	st, ok := t.(*cc.StructType)
	if !ok || t.Kind() != cc.Struct || st.NumFields() != 2 {
		return layout.Layout{}, false
	}
	a, b := st.FieldByIndex(0), st.FieldByIndex(1)
	if a.Type().Kind() != cc.LongDouble || b.Type().Kind() != cc.LongDouble {
		return layout.Layout{}, false
	}
	re, _ := layoutFromType(a.Type(), a.Name())
	im, _ := layoutFromType(b.Type(), b.Name())
	return layout.NewComplexX87Struct(name, []layout.Layout{re, im}), true
}
