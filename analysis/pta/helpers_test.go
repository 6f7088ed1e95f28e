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

package pta

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/awslabs/ar-pta/analysis/config"
	"github.com/awslabs/ar-pta/analysis/ir"
	"golang.org/x/exp/slices"
)

func loadProgram(t *testing.T, src string) *ir.Program {
	t.Helper()
	p, err := ir.LoadProgram(t.Name(), []byte(src))
	if err != nil {
		t.Fatalf("failed to load program: %v", err)
	}
	return p
}

func testConfig() *config.Config {
	c := config.NewDefault()
	c.LogLevel = int(config.ErrLevel)
	return c
}

func testLogger(c *config.Config) *config.LogGroup {
	l := config.NewLogGroup(c)
	l.SetAllOutput(io.Discard)
	return l
}

// analyze runs the analysis to its fixpoint and fails the test if it does not get there
func analyze(t *testing.T, p *ir.Program, c *config.Config) *Result {
	t.Helper()
	res, err := Analyze(context.Background(), p, c, testLogger(c))
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	if !res.Complete {
		t.Fatalf("analysis did not reach its fixpoint")
	}
	return res
}

func stmtOf(t *testing.T, p *ir.Program, fn string, i int) ir.Stmt {
	t.Helper()
	f := p.Function(fn)
	if f == nil || i >= len(f.Body) {
		t.Fatalf("no statement %d in %s", i, fn)
	}
	return f.Body[i]
}

func localOf(t *testing.T, p *ir.Program, fn string, name string) *ir.Local {
	t.Helper()
	f := p.Function(fn)
	if f == nil {
		t.Fatalf("no function %s", fn)
	}
	l := f.LookupLocal(name)
	if l == nil {
		t.Fatalf("no local %s in %s", name, fn)
	}
	return l
}

// classesOf returns the sorted class names of the tokens. Tokens without class are named by their kind.
func classesOf(tokens []*Token) []string {
	var res []string
	for _, tok := range tokens {
		name := tok.Kind().String()
		if tok.Site.Class != nil {
			name = tok.Site.Class.Name
		}
		if !slices.Contains(res, name) {
			res = append(res, name)
		}
	}
	slices.Sort(res)
	return res
}

func expectClasses(t *testing.T, res *Result, p *ir.Program, fn string, local string, want ...string) {
	t.Helper()
	got := classesOf(res.PointsToAnyContext(localOf(t, p, fn, local)))
	if !slices.Equal(got, want) {
		t.Errorf("%s.%s points to %v, expected %v", fn, local, got, want)
	}
}

func expectCallees(t *testing.T, res *Result, p *ir.Program, fn string, i int, want ...string) {
	t.Helper()
	got := res.CalleeNamesAt(stmtOf(t, p, fn, i))
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !slices.Equal(got, want) {
		t.Errorf("callees of %s: got %v, expected %v", stmtOf(t, p, fn, i), got, want)
	}
}

// dump returns a deterministic rendering of the facts of the result: the function-level edges and the points-to set
// of every local
func dump(res *Result) []string {
	var lines []string
	for caller, callees := range res.CallGraph.FuncEdges() {
		for callee := range callees {
			lines = append(lines, fmt.Sprintf("%s -> %s", res.Funcs.Name(caller), res.Funcs.Name(callee)))
		}
	}
	for _, f := range res.Program.Functions {
		for _, l := range f.Locals() {
			var toks []string
			for _, tok := range res.PointsToAnyContext(l) {
				toks = append(toks, tok.String())
			}
			if len(toks) > 0 {
				slices.Sort(toks)
				lines = append(lines, fmt.Sprintf("%s.%s: %v", f.Name, l.Name, toks))
			}
		}
	}
	slices.Sort(lines)
	return lines
}
