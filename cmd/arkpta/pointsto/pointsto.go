// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pointsto implements the frontend that prints the points-to sets computed by the pointer analysis.
package pointsto

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awslabs/ar-pta/analysis/ir"
	"github.com/awslabs/ar-pta/analysis/pta"
	"github.com/awslabs/ar-pta/analysis/rendering"
	"github.com/awslabs/ar-pta/cmd/arkpta/tools"
	"github.com/awslabs/ar-pta/internal/formatutil"
	"github.com/awslabs/ar-pta/internal/funcutil"
)

const usage = `Print the objects the locals of a program may point to.
Usage:
  arkpta pointsto [options] program.yaml
Locals are named function.local, for instance main.x or A.m.this.
Examples:
Print every non-empty points-to set
  % arkpta pointsto program.yaml
Print the points-to set of two locals in each context, and whether they may alias
  % arkpta pointsto -local main.x -local main.y -alias program.yaml
Print what the field owner of the objects main.x points to may point to
  % arkpta pointsto -local main.x -field owner program.yaml
`

// LocalNames represents the locals requested on the command line.
type LocalNames []string

func (e *LocalNames) String() string {
	if e == nil {
		return "[]"
	}
	return fmt.Sprintf("%v", []string(*e))
}

// Set adds value to e.
// This method satisfies the flag.Value interface.
func (e *LocalNames) Set(value string) error {
	*e = append(*e, value)
	return nil
}

// Flags represents the parsed pointsto sub-command flags.
type Flags struct {
	tools.CommonFlags
	locals     LocalNames
	field      string
	alias      bool
	outputJSON bool
}

// NewFlags returns the parsed pointsto sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("pointsto")
	var locals LocalNames
	flags.FlagSet.Var(&locals, "local", "local to print, as function.local (can be repeated)")
	field := flags.FlagSet.String("field", "", "also print the points-to set of this field of each object")
	alias := flags.FlagSet.Bool("alias", false, "print whether each pair of requested locals may alias")
	outputJSON := flags.FlagSet.Bool("json", false, "output results as JSON")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	if *field != "" && len(locals) == 0 {
		return Flags{}, fmt.Errorf("-field requires at least one -local")
	}
	return Flags{CommonFlags: common, locals: locals, field: *field, alias: *alias, outputJSON: *outputJSON}, nil
}

// LocalPointsTo is the points-to set of a local in one context
type LocalPointsTo struct {
	Local   string   `json:"local"`
	Context string   `json:"context"`
	Tokens  []string `json:"tokens"`
	// Fields maps each token to the points-to set of the requested field, when one is requested
	Fields map[string][]string `json:"fields,omitempty"`
}

// Run runs the pointer analysis and prints the points-to sets requested by flags.
func Run(flags Flags) error {
	ctx, cancel := tools.SignalContext()
	defer cancel()
	return run(ctx, os.Stdout, flags)
}

func run(ctx context.Context, w io.Writer, flags Flags) error {
	state, err := tools.LoadAnalyzerState(flags.CommonFlags)
	if err != nil {
		return err
	}
	locals, err := lookupLocals(state.Program, flags.locals)
	if err != nil {
		return err
	}
	runErr := state.RunPointerAnalysis(ctx)
	res := state.Result
	if res == nil {
		return fmt.Errorf("pointer analysis failed: %w", runErr)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, formatutil.Yellow("Partial result: %v")+"\n", runErr)
	}

	if len(locals) == 0 {
		return rendering.WritePointsTo(res, w)
	}
	sets := Collect(res, locals, flags.field)
	if flags.outputJSON {
		b, err := json.MarshalIndent(sets, "", "  ")
		if err != nil {
			return fmt.Errorf("could not marshal points-to sets: %v", err)
		}
		fmt.Fprintf(w, "%s\n", b)
	} else {
		for _, s := range sets {
			fmt.Fprintf(w, "%s %s: [%s]\n", formatutil.Bold(s.Local), s.Context, strings.Join(s.Tokens, ", "))
			for _, tok := range s.Tokens {
				if fields, ok := s.Fields[tok]; ok {
					fmt.Fprintf(w, "  %s.%s: [%s]\n", tok, flags.field, strings.Join(fields, ", "))
				}
			}
		}
	}
	if flags.alias {
		for i, a := range locals {
			for _, b := range locals[i+1:] {
				fmt.Fprintf(w, "%s.%s, %s.%s: may alias %t\n", a.Func.Name, a.Name, b.Func.Name, b.Name,
					res.MayAlias(a, b))
			}
		}
	}
	return nil
}

// Collect returns the points-to sets of the locals, in every context their function has been analysed in. If field is
// not empty, the sets of that field of every object are collected as well.
func Collect(res *pta.Result, locals []*ir.Local, field string) []LocalPointsTo {
	var sets []LocalPointsTo
	for _, l := range locals {
		f, ok := res.Funcs.ID(l.Func)
		if !ok {
			continue
		}
		for _, n := range res.CallGraph.NodesOf(f) {
			ctx := res.CallGraph.Node(n).Context
			tokens := res.PointsTo(ctx, l)
			set := LocalPointsTo{
				Local:   l.Func.Name + "." + l.Name,
				Context: res.Contexts.String(ctx),
				Tokens:  funcutil.Map(tokens, (*pta.Token).String),
			}
			if field != "" {
				set.Fields = map[string][]string{}
				for _, tok := range tokens {
					set.Fields[tok.String()] = funcutil.Map(res.FieldPointsTo(tok.ID, field), (*pta.Token).String)
				}
			}
			sets = append(sets, set)
		}
	}
	return sets
}

func lookupLocals(p *ir.Program, names []string) ([]*ir.Local, error) {
	var locals []*ir.Local
	for _, name := range names {
		i := strings.LastIndex(name, ".")
		if i <= 0 || i == len(name)-1 {
			return nil, fmt.Errorf("local %q is not of the form function.local", name)
		}
		f := p.Function(name[:i])
		if f == nil {
			return nil, fmt.Errorf("no function named %s", name[:i])
		}
		l := f.LookupLocal(name[i+1:])
		if l == nil {
			return nil, fmt.Errorf("function %s has no local %s", f.Name, name[i+1:])
		}
		locals = append(locals, l)
	}
	return locals, nil
}
