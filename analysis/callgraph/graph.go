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

package callgraph

import (
	"fmt"
	"sync"

	"github.com/awslabs/ar-pta/analysis/contexts"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// NodeID identifies a node of a Graph
type NodeID int

// A Node is a function analysed in a calling context
type Node struct {
	ID      NodeID
	Func    FuncID
	Context contexts.ContextID
}

// CSCallSite is a call site qualified by the context of its caller
type CSCallSite struct {
	Context contexts.ContextID
	Site    CallSiteID
}

func (c CSCallSite) String() string {
	return fmt.Sprintf("#%d@%d", c.Site, c.Context)
}

// An Edge links a context-qualified call site in Caller to the Callee node
type Edge struct {
	Site   CSCallSite
	Caller NodeID
	Callee NodeID
}

type nodeKey struct {
	f   FuncID
	ctx contexts.ContextID
}

// Graph is the context-sensitive call graph. Nodes and edges are deduplicated and never removed. It is safe for
// concurrent use.
type Graph struct {
	mu        sync.RWMutex
	nodes     []*Node
	nodeIndex map[nodeKey]NodeID
	byFunc    map[FuncID][]NodeID
	roots     []NodeID
	edges     []Edge
	edgeIndex map[Edge]int
	out       map[NodeID][]int
	in        map[NodeID][]int
	bySite    map[CSCallSite][]int
	bySiteID  map[CallSiteID][]int
}

// NewGraph returns an empty call graph
func NewGraph() *Graph {
	return &Graph{
		nodeIndex: map[nodeKey]NodeID{},
		byFunc:    map[FuncID][]NodeID{},
		edgeIndex: map[Edge]int{},
		out:       map[NodeID][]int{},
		in:        map[NodeID][]int{},
		bySite:    map[CSCallSite][]int{},
		bySiteID:  map[CallSiteID][]int{},
	}
}

// AddNode returns the node of f in ctx and true if the node did not exist
func (g *Graph) AddNode(f FuncID, ctx contexts.ContextID) (NodeID, bool) {
	k := nodeKey{f, ctx}
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.nodeIndex[k]; ok {
		return id, false
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{ID: id, Func: f, Context: ctx})
	g.nodeIndex[k] = id
	g.byFunc[f] = append(g.byFunc[f], id)
	return id, true
}

// AddRoot marks the node as an entry of the graph
func (g *Graph) AddRoot(id NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !slices.Contains(g.roots, id) {
		g.roots = append(g.roots, id)
	}
}

// AddEdge adds an edge from the call site to the callee. Returns true if the edge is new.
func (g *Graph) AddEdge(site CSCallSite, caller NodeID, callee NodeID) bool {
	e := Edge{Site: site, Caller: caller, Callee: callee}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.edgeIndex[e]; ok {
		return false
	}
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.edgeIndex[e] = idx
	g.out[caller] = append(g.out[caller], idx)
	g.in[callee] = append(g.in[callee], idx)
	g.bySite[site] = append(g.bySite[site], idx)
	g.bySiteID[site.Site] = append(g.bySiteID[site.Site], idx)
	return true
}

// Node returns the node with identifier id, or nil
func (g *Graph) Node(id NodeID) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// LookupNode returns the node of f in ctx, if it exists
func (g *Graph) LookupNode(f FuncID, ctx contexts.ContextID) (NodeID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.nodeIndex[nodeKey{f, ctx}]
	return id, ok
}

// NodesOf returns the nodes of the function f, one per context it has been reached in
func (g *Graph) NodesOf(f FuncID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.byFunc[f])
}

// Nodes returns all the nodes, in creation order
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.nodes)
}

// Edges returns all the edges, in creation order
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.edges)
}

// Roots returns the entry nodes
func (g *Graph) Roots() []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.roots)
}

// NumNodes returns the number of nodes
func (g *Graph) NumNodes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// NumEdges returns the number of edges
func (g *Graph) NumEdges() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

func (g *Graph) edgesAt(indices []int) []Edge {
	res := make([]Edge, len(indices))
	for i, idx := range indices {
		res[i] = g.edges[idx]
	}
	return res
}

// Out returns the edges leaving the node
func (g *Graph) Out(id NodeID) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgesAt(g.out[id])
}

// In returns the edges entering the node
func (g *Graph) In(id NodeID) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgesAt(g.in[id])
}

// Callees returns the callee nodes of a context-qualified call site
func (g *Graph) Callees(site CSCallSite) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var res []NodeID
	for _, idx := range g.bySite[site] {
		res = append(res, g.edges[idx].Callee)
	}
	return res
}

// CalleesOf returns the functions the call site may invoke in any context, sorted by identifier
func (g *Graph) CalleesOf(site CallSiteID) []FuncID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := map[FuncID]bool{}
	for _, idx := range g.bySiteID[site] {
		set[g.nodes[g.edges[idx].Callee].Func] = true
	}
	res := maps.Keys(set)
	slices.Sort(res)
	return res
}

// ReachedFuncs returns the functions that have at least one node, sorted by identifier
func (g *Graph) ReachedFuncs() []FuncID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	res := maps.Keys(g.byFunc)
	slices.Sort(res)
	return res
}

// FuncEdges returns the context-insensitive projection of the graph: for each caller function, the set of callee
// functions
func (g *Graph) FuncEdges() map[FuncID]map[FuncID]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	res := map[FuncID]map[FuncID]bool{}
	for _, e := range g.edges {
		caller := g.nodes[e.Caller].Func
		if res[caller] == nil {
			res[caller] = map[FuncID]bool{}
		}
		res[caller][g.nodes[e.Callee].Func] = true
	}
	return res
}
