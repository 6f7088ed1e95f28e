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

package graphutil

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/contexts"
	"github.com/awslabs/ar-pta/analysis/ir"
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
	gonum "gonum.org/v1/gonum/graph"
)

// buildGraph returns a call graph over the functions f0 ... f(n-1) with the given function-level edges. Each
// function has one node, in the empty context.
func buildGraph(t *testing.T, n int, edges [][2]int) (*callgraph.Graph, *callgraph.FuncTable) {
	p := ir.NewProgram("test")
	for i := 0; i < n; i++ {
		if _, err := p.NewFunction(fmt.Sprintf("f%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	funcs := callgraph.NewFuncTableFor(p)
	cg := callgraph.NewGraph()
	for i, e := range edges {
		caller, _ := cg.AddNode(callgraph.FuncID(e[0]), contexts.Empty)
		callee, _ := cg.AddNode(callgraph.FuncID(e[1]), contexts.Empty)
		cg.AddEdge(callgraph.CSCallSite{Context: contexts.Empty, Site: callgraph.CallSiteID(i)}, caller, callee)
	}
	return cg, funcs
}

var testEdges = [][2]int{{0, 1}, {1, 2}, {2, 1}, {2, 3}, {3, 3}, {3, 4}, {4, 2}}

func TestFuncGraph(t *testing.T) {
	cg, funcs := buildGraph(t, 6, testEdges)
	g := NewFuncGraph(cg, funcs)
	if g.Order() != 6 {
		t.Errorf("expected order 6, got %d", g.Order())
	}
	nodes := g.Nodes()
	if nodes.Len() != 5 {
		t.Errorf("expected 5 reached functions, got %d", nodes.Len())
	}
	var names []string
	for nodes.Next() {
		names = append(names, nodes.Node().(FNode).Name)
	}
	if !slices.Equal(names, []string{"f0", "f1", "f2", "f3", "f4"}) {
		t.Errorf("unexpected nodes %v", names)
	}
	if nodes.Len() != 0 || nodes.Node() != nil {
		t.Errorf("exhausted iterator should be empty")
	}
	nodes.Reset()
	if nodes.Len() != 5 {
		t.Errorf("reset iterator should have all nodes")
	}
	if ids := idsOf(g.From(2)); !slices.Equal(ids, []int64{1, 3}) {
		t.Errorf("unexpected successors of f2 %v", ids)
	}
	if ids := idsOf(g.To(2)); !slices.Equal(ids, []int64{1, 4}) {
		t.Errorf("unexpected predecessors of f2 %v", ids)
	}
	if !g.HasEdgeFromTo(3, 3) || g.HasEdgeFromTo(4, 3) || !g.HasEdgeBetween(4, 3) {
		t.Errorf("unexpected edges")
	}
	if g.Edge(0, 2) != nil || g.Edge(0, 1) == nil || g.Node(5) != nil {
		t.Errorf("unexpected edge or node lookups")
	}

	stats := graph.Check(g)
	if stats.Size != len(testEdges) || stats.Loops != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func idsOf(nodes gonum.Nodes) []int64 {
	var res []int64
	for nodes.Next() {
		res = append(res, nodes.Node().ID())
	}
	return res
}

func TestFindAllElementaryCycles(t *testing.T) {
	cg, funcs := buildGraph(t, 6, testEdges)
	cycles := FindAllElementaryCycles(NewFuncGraph(cg, funcs))
	results := make([]string, len(cycles))
	for i, cycle := range cycles {
		var s []string
		for _, n := range cycle {
			s = append(s, strconv.Itoa(int(n)))
		}
		results[i] = strings.Join(s, "")
	}
	sort.Strings(results)
	expected := []string{"121", "2342", "33"}
	if !slices.Equal(results, expected) {
		t.Fatalf("expected cycles %v, got %v", expected, results)
	}
}

func TestAcyclicGraphHasNoCycle(t *testing.T) {
	cg, funcs := buildGraph(t, 4, [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}})
	if cycles := FindAllElementaryCycles(NewFuncGraph(cg, funcs)); len(cycles) != 0 {
		t.Errorf("expected no cycle, got %v", cycles)
	}
}
