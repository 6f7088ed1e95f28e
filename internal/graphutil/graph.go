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

// Package graphutil contains graph algorithms over the function-level view of call graphs.
package graphutil

import (
	"github.com/awslabs/ar-pta/analysis/callgraph"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
)

// FGraph is the function-level view of a context-sensitive call graph: there is an edge from f to g when some node
// of f calls some node of g. It implements both the gonum graph.Directed interface and the yourbasic graph.Iterator
// interface, so that the algorithms of both libraries apply to it. Node identifiers are function identifiers.
type FGraph struct {
	// The order of the graph
	order int

	// Funcs is the table naming the nodes
	Funcs *callgraph.FuncTable

	// IDMap maps from node IDs to FNodes
	IDMap map[int64]FNode

	// Keys are all the node IDs, sorted
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between IDMap[x] and IDMap[y]
	Edges map[int64]map[int64]bool
}

// NewFuncGraph returns the function-level view of the call graph. Only the functions reached in the call graph are
// nodes. When funcs is nil, the nodes have no name.
func NewFuncGraph(cg *callgraph.Graph, funcs *callgraph.FuncTable) FGraph {
	idmap := map[int64]FNode{}
	edges := map[int64]map[int64]bool{}
	order := 0
	for _, f := range cg.ReachedFuncs() {
		id := int64(f)
		n := FNode{Func: f}
		if funcs != nil {
			n.Name = funcs.Name(f)
		}
		idmap[id] = n
		edges[id] = map[int64]bool{}
		if int(f) >= order {
			order = int(f) + 1
		}
	}
	if funcs != nil && funcs.Len() > order {
		order = funcs.Len()
	}
	for caller, callees := range cg.FuncEdges() {
		for callee := range callees {
			edges[int64(caller)][int64(callee)] = true
		}
	}
	keys := maps.Keys(idmap)
	slices.Sort(keys)
	return FGraph{
		order: order,
		Funcs: funcs,
		IDMap: idmap,
		Edges: edges,
		Keys:  keys,
	}
}

// Subgraph returns the subgraph of original induced by the nodes in include
func Subgraph(original FGraph, include []int64) FGraph {
	idmap := make(map[int64]FNode, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	keys := slices.Clone(include)

	for _, i := range include {
		idmap[i] = original.IDMap[i]
	}

	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if _, ok := idmap[e]; ok {
				edges[i][e] = true
			}
		}
	}

	return FGraph{
		order: original.Order(),
		Funcs: original.Funcs,
		IDMap: idmap,
		Edges: edges,
		Keys:  keys,
	}
}

// Order returns the number of identifiers a node may have. Part of the yourbasic graph.Iterator interface.
func (c FGraph) Order() int {
	return c.order
}

// Visit calls do for each neighbor w of v, with the cost c of the edge, until do returns true.
// Part of the yourbasic graph.Iterator interface.
func (c FGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range c.successors(int64(v)) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

func (c FGraph) successors(v int64) []int64 {
	succ := maps.Keys(c.Edges[v])
	slices.Sort(succ)
	return succ
}

func (c FGraph) predecessors(v int64) []int64 {
	var pred []int64
	for _, u := range c.Keys {
		if c.Edges[u][v] {
			pred = append(pred, u)
		}
	}
	return pred
}

// Node returns the node with the given ID, or nil. Part of the gonum graph.Graph interface.
func (c FGraph) Node(id int64) graph.Node {
	n, ok := c.IDMap[id]
	if !ok {
		return nil
	}
	return n
}

// Nodes returns all the nodes of the graph. Part of the gonum graph.Graph interface.
func (c FGraph) Nodes() graph.Nodes {
	return c.nodeSet(c.Keys)
}

// From returns the successors of the node. Part of the gonum graph.Graph interface.
func (c FGraph) From(id int64) graph.Nodes {
	return c.nodeSet(c.successors(id))
}

// To returns the predecessors of the node. Part of the gonum graph.Directed interface.
func (c FGraph) To(id int64) graph.Nodes {
	return c.nodeSet(c.predecessors(id))
}

// HasEdgeBetween returns true if there is an edge in either direction. Part of the gonum graph.Graph interface.
func (c FGraph) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// HasEdgeFromTo returns true if there is an edge from u to v. Part of the gonum graph.Directed interface.
func (c FGraph) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// Edge returns the edge from u to v, or nil. Part of the gonum graph.Graph interface.
func (c FGraph) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return FEdge{from: c.IDMap[uid], to: c.IDMap[vid]}
	}
	return nil
}

func (c FGraph) nodeSet(ids []int64) *NodeSet {
	return &NodeSet{nodes: c.IDMap, ids: ids, cur: -1}
}

// FNode is a function of the call graph
type FNode struct {
	Func callgraph.FuncID
	Name string
}

// ID returns the identifier of the function
func (n FNode) ID() int64 {
	return int64(n.Func)
}

func (n FNode) String() string {
	return n.Name
}

// NodeSet is an iterator over nodes. It implements gonum's graph.Nodes.
type NodeSet struct {
	// nodes maps identifiers to nodes
	nodes map[int64]FNode

	// ids are the identifiers of the nodes in the iterator
	ids []int64

	// cur is the current index of the iterator, -1 before the first call to Next
	cur int
}

// Next advances the iterator and returns true if there is a node at the new position
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	ns.cur = len(ns.ids)
	return false
}

// Len returns the number of nodes remaining in the iterator
func (ns *NodeSet) Len() int {
	if ns.cur >= len(ns.ids) {
		return 0
	}
	return len(ns.ids) - ns.cur - 1
}

// Reset moves the iterator back to its initial state
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node returns the current node, or nil
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return ns.nodes[ns.ids[ns.cur]]
}

// FEdge is a function-level call edge
type FEdge struct {
	from FNode
	to   FNode
}

// From returns the caller
func (e FEdge) From() graph.Node {
	return e.from
}

// To returns the callee
func (e FEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns the edge from the callee to the caller
func (e FEdge) ReversedEdge() graph.Edge {
	return FEdge{from: e.to, to: e.from}
}
