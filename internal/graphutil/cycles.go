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
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
)

// FindAllElementaryCycles returns the elementary cycles of the graph, using Johnson's algorithm.
// A cycle is returned as the list of its nodes, starting and ending with its least node. Self-loops are cycles of
// length one.
//
// See "Finding all the elementary circuits of a directed graph", Donald B. Johnson, 1975.
func FindAllElementaryCycles(cg FGraph) [][]int64 {
	s := &state{cycles: [][]int64{}}
	for i, start := range cg.Keys {
		fg := Subgraph(cg, cg.Keys[i:])
		var component []int64
		for _, c := range graph.StrongComponents(fg) {
			if slices.Contains(c, int(start)) {
				for _, n := range c {
					component = append(component, int64(n))
				}
				break
			}
		}
		if len(component) < 2 && !cg.Edges[start][start] {
			continue
		}
		slices.Sort(component)
		s.stack = []int64{}
		s.blocked = map[int64]bool{}
		s.blist = map[int64]map[int64]bool{}
		s.circuit(start, start, Subgraph(fg, component))
	}
	return s.cycles
}

type state struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *state) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *state) circuit(v int64, start int64, g FGraph) bool {
	f := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for _, w := range g.successors(v) {
		if w == start {
			cycle := append(slices.Clone(s.stack), w)
			s.cycles = append(s.cycles, cycle)
			f = true
		} else if !s.blocked[w] {
			if s.circuit(w, start, g) {
				f = true
			}
		}
	}

	if f {
		s.unblock(v)
	} else {
		for _, w := range g.successors(v) {
			if s.blist[w] == nil {
				s.blist[w] = map[int64]bool{}
			}
			s.blist[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return f
}
