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

// Command abiarrange parses a single C function prototype, arranges its
// System V AMD64 calling sequence, and prints the resulting binding
// listing to stdout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajroetker/sysvabi/cdecl"
	"github.com/ajroetker/sysvabi/dump"
	"github.com/ajroetker/sysvabi/sysv"
)

var command = &cobra.Command{
	Use:  "abiarrange proto [-s structs.h]",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		structsPath, _ := cmd.PersistentFlags().GetString("structs")
		variadicArgs, _ := cmd.PersistentFlags().GetInt("variadic-args")

		var structDefs string
		if structsPath != "" {
			b, err := os.ReadFile(structsPath)
			if err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			structDefs = string(b)
		}

		decl, err := cdecl.Parse(args[0], structDefs)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		sig := sysv.Signature{ParameterCount: len(decl.Arguments), HasReturn: decl.Return != nil}
		desc := sysv.FunctionDescriptor{ArgumentLayouts: decl.Arguments, ReturnLayout: decl.Return}
		handle, err := sysv.ArrangeDowncall(0, sig, desc)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		if variadicArgs >= 0 && decl.Variadic {
			_, _ = fmt.Fprintf(os.Stderr, "note: %s is variadic, arranged vector-register count is %d\n", decl.Name, handle.NVectorReg)
		}

		out, err := dump.Sprint(handle.Sequence)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Print(out)
	},
}

func init() {
	command.PersistentFlags().StringP("structs", "s", "", "path to a header fragment with struct/union definitions the prototype depends on")
	command.PersistentFlags().IntP("variadic-args", "v", -1, "when >= 0 and the prototype is variadic, print the arranged vector-register count to stderr (the value itself is not used)")
}

func main() {
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
