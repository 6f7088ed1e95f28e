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

package reachability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/contexts"
	"github.com/awslabs/ar-pta/analysis/ir"
	"golang.org/x/exp/slices"
)

// buildGraph returns a call graph over the functions f0 ... f(n-1) rooted at f0. The edges are given per function;
// f(n-1) is never reached.
func buildGraph(t *testing.T, n int, edges [][2]int) (*callgraph.Graph, *callgraph.FuncTable) {
	p := ir.NewProgram("test")
	for i := 0; i < n; i++ {
		if _, err := p.NewFunction(fmt.Sprintf("f%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	funcs := callgraph.NewFuncTableFor(p)
	cg := callgraph.NewGraph()
	root, _ := cg.AddNode(0, contexts.Empty)
	cg.AddRoot(root)
	for i, e := range edges {
		// two contexts per callee to check that the function-level view merges them
		caller, _ := cg.AddNode(callgraph.FuncID(e[0]), contexts.Empty)
		for ctx := contexts.ContextID(0); ctx < 2; ctx++ {
			callee, _ := cg.AddNode(callgraph.FuncID(e[1]), ctx)
			cg.AddEdge(callgraph.CSCallSite{Context: contexts.Empty, Site: callgraph.CallSiteID(i)}, caller, callee)
		}
	}
	return cg, funcs
}

// f0 -> f1 -> f2 -> f1, f2 -> f3 -> f3, f4 -> f0, and f5 isolated
var testEdges = [][2]int{{0, 1}, {1, 2}, {2, 1}, {2, 3}, {3, 3}, {4, 0}}

func TestFindReachable(t *testing.T) {
	cg, _ := buildGraph(t, 6, testEdges)
	reachable := FindReachable(cg)
	for f := callgraph.FuncID(0); f < 4; f++ {
		if !reachable[f] {
			t.Errorf("f%d should be reachable", f)
		}
	}
	if reachable[4] || reachable[5] {
		t.Errorf("f4 and f5 are not reachable from the root")
	}
}

func TestIsReachable(t *testing.T) {
	cg, _ := buildGraph(t, 6, testEdges)
	tests := []struct {
		from, to callgraph.FuncID
		want     bool
	}{
		{0, 3, true},
		{2, 1, true},
		{3, 3, true},
		{1, 1, true},
		{3, 1, false},
		{4, 3, true},
		{0, 4, false},
		{0, 5, false},
		{5, 5, false},
	}
	for _, test := range tests {
		if got := IsReachable(cg, test.from, test.to); got != test.want {
			t.Errorf("IsReachable(f%d, f%d) = %v, expected %v", test.from, test.to, got, test.want)
		}
	}
}

func TestPath(t *testing.T) {
	cg, funcs := buildGraph(t, 6, testEdges)
	if path := Path(cg, funcs, 4, 3); !slices.Equal(path, []string{"f4", "f0", "f1", "f2", "f3"}) {
		t.Errorf("unexpected path %v", path)
	}
	if path := Path(cg, funcs, 3, 0); path != nil {
		t.Errorf("expected no path, got %v", path)
	}
	if path := Path(cg, funcs, 2, 2); !slices.Equal(path, []string{"f2"}) {
		t.Errorf("unexpected path %v", path)
	}
}

func TestRecursiveFunctions(t *testing.T) {
	cg, funcs := buildGraph(t, 6, testEdges)
	if got := RecursiveFunctions(cg, funcs); !slices.Equal(got, []string{"f1", "f2", "f3"}) {
		t.Errorf("unexpected recursive functions %v", got)
	}
}

func TestReachableFunctionsAnalysis(t *testing.T) {
	cg, funcs := buildGraph(t, 6, testEdges)
	var buf bytes.Buffer
	if err := ReachableFunctionsAnalysis(&buf, cg, funcs, false); err != nil {
		t.Fatal(err)
	}
	if got := strings.Fields(buf.String()); !slices.Equal(got, []string{"f0", "f1", "f2", "f3"}) {
		t.Errorf("unexpected output %q", buf.String())
	}
	buf.Reset()
	if err := ReachableFunctionsAnalysis(&buf, cg, funcs, true); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != `["f0","f1","f2","f3"]` {
		t.Errorf("unexpected json output %q", got)
	}
}

func TestDependencyGraph(t *testing.T) {
	cg, funcs := buildGraph(t, 6, testEdges)
	dg := FunctionDependencies(cg, funcs)
	if callers := dg.Callers("f1"); !slices.Equal(callers, []string{"f0", "f2"}) {
		t.Errorf("unexpected callers of f1 %v", callers)
	}
	if _, ok := dg.Cycles(); !ok {
		t.Errorf("expected a cycle")
	}
	var buf bytes.Buffer
	if err := dg.WriteGraphviz(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, edge := range []string{`"f0" -> "f1"`, `"f3" -> "f3"`, `"f4" -> "f0"`} {
		if !strings.Contains(out, edge) {
			t.Errorf("missing edge %s in\n%s", edge, out)
		}
	}

	acyclic := NewDependencyGraph()
	acyclic.Add("a", "b")
	acyclic.Add("a", "c")
	acyclic.Add("b", "c")
	acyclic.Add("a", "b")
	if name, ok := acyclic.Cycles(); ok {
		t.Errorf("unexpected cycle through %s", name)
	}
	if callers := acyclic.Callers("c"); !slices.Equal(callers, []string{"a", "b"}) {
		t.Errorf("unexpected callers of c %v", callers)
	}
}
