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
	"fmt"
	"io"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Entry is an entry of a dependency graph, containing the name of the function along with the functions it calls
// and the functions that call it.
type Entry struct {
	name         string
	dependsOn    []*Entry
	dependedOnBy []*Entry
	visited      bool
	done         bool
}

// A DependencyGraph records the calls between functions, ignoring contexts
type DependencyGraph map[string]*Entry

// NewDependencyGraph returns a new DependencyGraph
func NewDependencyGraph() DependencyGraph {
	return make(DependencyGraph)
}

// FunctionDependencies returns the dependency graph of the functions of the call graph
func FunctionDependencies(cg *callgraph.Graph, funcs *callgraph.FuncTable) DependencyGraph {
	dg := NewDependencyGraph()
	for _, f := range cg.ReachedFuncs() {
		dg.entry(funcs.Name(f))
	}
	for caller, callees := range cg.FuncEdges() {
		for callee := range callees {
			dg.Add(funcs.Name(caller), funcs.Name(callee))
		}
	}
	return dg
}

func (dg DependencyGraph) entry(name string) *Entry {
	e, ok := dg[name]
	if !ok {
		e = &Entry{name: name}
		dg[name] = e
	}
	return e
}

// Add adds a dependency to the graph
func (dg DependencyGraph) Add(depender string, dependee string) {
	e := dg.entry(depender)
	d := dg.entry(dependee)
	if slices.Contains(e.dependsOn, d) {
		return // if a->b is present assume b<-a is too
	}
	e.dependsOn = append(e.dependsOn, d)
	d.dependedOnBy = append(d.dependedOnBy, e)
}

// Callers returns the sorted names of the functions calling the function
func (dg DependencyGraph) Callers(name string) []string {
	e, ok := dg[name]
	if !ok {
		return nil
	}
	var res []string
	for _, d := range e.dependedOnBy {
		res = append(res, d.name)
	}
	slices.Sort(res)
	return res
}

// Cycles returns the name of a function on a cycle of the graph, or false if the graph is acyclic
func (dg DependencyGraph) Cycles() (string, bool) {
	for _, e := range dg {
		e.visited, e.done = false, false
	}
	names := maps.Keys(dg)
	slices.Sort(names)
	for _, name := range names {
		if found, ok := dg.findCycles(dg[name]); ok {
			return found, true
		}
	}
	return "", false
}

func (dg DependencyGraph) findCycles(e *Entry) (string, bool) {
	if e.done {
		return "", false
	}
	if e.visited {
		return e.name, true
	}
	e.visited = true
	defer func() { e.visited = false }()
	for _, d := range e.dependsOn {
		if found, ok := dg.findCycles(d); ok {
			return found, true
		}
	}
	e.done = true
	return "", false
}

// WriteGraphviz writes the graph in the graphviz format
func (dg DependencyGraph) WriteGraphviz(w io.Writer) error {
	sum := 0
	for _, e := range dg {
		sum += len(e.dependsOn)
	}
	rows := make([]string, 0, sum)
	for source, entry := range dg {
		if len(entry.dependsOn) == 0 && len(entry.dependedOnBy) == 0 {
			rows = append(rows, fmt.Sprintf("%q", source))
		}
		for _, target := range entry.dependsOn {
			rows = append(rows, fmt.Sprintf("%q -> %q", source, target.name))
		}
	}
	slices.Sort(rows)

	if _, err := fmt.Fprint(w, "digraph dependency {\n"); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "\t%s\n", row); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "}\n")
	return err
}
