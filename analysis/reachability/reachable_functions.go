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

// Package reachability answers reachability questions on call graphs: which functions the entry points reach,
// whether one function reaches another, and which functions are recursive.
package reachability

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/internal/funcutil"
	"github.com/awslabs/ar-pta/internal/graphutil"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// FindReachable returns the functions reachable from the roots of the call graph
func FindReachable(cg *callgraph.Graph) map[callgraph.FuncID]bool {
	edges := cg.FuncEdges()
	reachable := make(map[callgraph.FuncID]bool)
	frontier := make([]callgraph.FuncID, 0)
	for _, root := range cg.Roots() {
		frontier = append(frontier, cg.Node(root).Func)
	}

	// compute the fixedpoint
	for len(frontier) != 0 {
		f := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if reachable[f] {
			continue
		}
		reachable[f] = true
		for next := range edges[f] {
			if !reachable[next] {
				frontier = append(frontier, next)
			}
		}
	}
	return reachable
}

// IsReachable returns true if there is a path from the function from to the function to in the call graph. A
// function reaches itself.
func IsReachable(cg *callgraph.Graph, from callgraph.FuncID, to callgraph.FuncID) bool {
	if len(cg.NodesOf(from)) == 0 || len(cg.NodesOf(to)) == 0 {
		return false
	}
	g := graphutil.NewFuncGraph(cg, nil)
	bfs := traverse.BreadthFirst{}
	found := bfs.Walk(g, g.Node(int64(from)), func(n graph.Node, _ int) bool {
		return n.ID() == int64(to)
	})
	return found != nil
}

// Path returns a shortest chain of calls from the function from to the function to, both included, or nil if there
// is none
func Path(cg *callgraph.Graph, funcs *callgraph.FuncTable, from callgraph.FuncID, to callgraph.FuncID) []string {
	if len(cg.NodesOf(from)) == 0 {
		return nil
	}
	g := graphutil.NewFuncGraph(cg, funcs)
	parent := map[int64]int64{}
	bfs := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			if _, seen := parent[e.To().ID()]; !seen {
				parent[e.To().ID()] = e.From().ID()
			}
			return true
		},
	}
	if bfs.Walk(g, g.Node(int64(from)), func(n graph.Node, _ int) bool { return n.ID() == int64(to) }) == nil {
		return nil
	}
	path := []string{funcs.Name(to)}
	for cur := int64(to); cur != int64(from); {
		cur = parent[cur]
		path = append(path, funcs.Name(callgraph.FuncID(cur)))
	}
	funcutil.Reverse(path)
	return path
}

// RecursiveFunctions returns the names of the functions that may call themselves, directly or not, sorted
func RecursiveFunctions(cg *callgraph.Graph, funcs *callgraph.FuncTable) []string {
	g := graphutil.NewFuncGraph(cg, funcs)
	recursive := map[string]bool{}
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) > 1 || g.HasEdgeFromTo(scc[0].ID(), scc[0].ID()) {
			for _, n := range scc {
				recursive[funcs.Name(callgraph.FuncID(n.ID()))] = true
			}
		}
	}
	return funcutil.SetToOrderedSlice(recursive)
}

// ReachableFunctionsAnalysis writes the names of the functions reachable from the roots of the call graph, sorted
// alphabetically, one per line or as a json array
func ReachableFunctionsAnalysis(w io.Writer, cg *callgraph.Graph, funcs *callgraph.FuncTable, jsonFlag bool) error {
	reachable := FindReachable(cg)
	names := map[string]bool{}
	for f := range reachable {
		names[funcs.Name(f)] = true
	}
	functionNames := funcutil.SetToOrderedSlice(names)

	if jsonFlag {
		buf, err := json.Marshal(functionNames)
		if err != nil {
			return fmt.Errorf("could not marshal reachable functions: %w", err)
		}
		_, err = fmt.Fprintln(w, string(buf))
		return err
	}
	for _, name := range functionNames {
		if _, err := fmt.Fprintf(w, "%s\n", name); err != nil {
			return err
		}
	}
	return nil
}
