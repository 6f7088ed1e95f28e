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
	"time"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/contexts"
	"github.com/awslabs/ar-pta/analysis/ir"
	"github.com/awslabs/ar-pta/analysis/reachability"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
)

// Result is the outcome of a run: the call graph, the points-to facts and the diagnostics. When Complete is false,
// the run was stopped before the fixpoint and the facts are an under-approximation of it.
type Result struct {
	Program     *ir.Program
	Funcs       *callgraph.FuncTable
	Sites       *callgraph.CallSiteTable
	Contexts    *contexts.Table
	Policy      contexts.Policy
	Store       *Store
	CallGraph   *callgraph.Graph
	Resolver    *Resolver
	Diagnostics []Diagnostic
	Stats       Stats
	Complete    bool
}

func (sh *sharedState) result(complete bool, elapsed time.Duration) *Result {
	sh.diagMu.Lock()
	diags := slices.Clone(sh.diagnostics)
	sh.diagMu.Unlock()
	return &Result{
		Program:     sh.program,
		Funcs:       sh.funcs,
		Sites:       sh.sites,
		Contexts:    sh.contexts,
		Policy:      sh.policy,
		Store:       sh.store,
		CallGraph:   sh.graph,
		Resolver:    sh.resolver,
		Diagnostics: diags,
		Stats:       sh.stats(elapsed),
		Complete:    complete,
	}
}

// CalleesOf returns the functions the call site invokes in any context
func (r *Result) CalleesOf(site callgraph.CallSiteID) []callgraph.FuncID {
	return r.CallGraph.CalleesOf(site)
}

// CalleesAt returns the functions the call statement invokes in any context. The statement has no callee if it
// was never reached.
func (r *Result) CalleesAt(stmt ir.Stmt) []callgraph.FuncID {
	id, ok := r.Sites.Lookup(stmt)
	if !ok {
		return nil
	}
	return r.CalleesOf(id)
}

// CalleeNamesAt returns the sorted names of the functions the call statement invokes
func (r *Result) CalleeNamesAt(stmt ir.Stmt) []string {
	var names []string
	for _, f := range r.CalleesAt(stmt) {
		names = append(names, r.Funcs.Name(f))
	}
	slices.Sort(names)
	return names
}

// PointsTo returns the tokens the local may point to when its function is analysed in ctx
func (r *Result) PointsTo(ctx contexts.ContextID, l *ir.Local) []*Token {
	return r.Store.Tokens(r.Store.PointsToLocation(LocalLocation(ctx, l)))
}

// PointsToAnyContext returns the tokens the local may point to in any context its function has been reached in
func (r *Result) PointsToAnyContext(l *ir.Local) []*Token {
	return r.Store.Tokens(r.pointsToAnyContext(l))
}

func (r *Result) pointsToAnyContext(l *ir.Local) *intsets.Sparse {
	res := &intsets.Sparse{}
	f, ok := r.Funcs.ID(l.Func)
	if !ok {
		return res
	}
	for _, n := range r.CallGraph.NodesOf(f) {
		res.UnionWith(r.Store.PointsToLocation(LocalLocation(r.CallGraph.Node(n).Context, l)))
	}
	return res
}

// MayAlias returns true if the two locals may point to a common object, in any contexts
func (r *Result) MayAlias(a *ir.Local, b *ir.Local) bool {
	return r.pointsToAnyContext(a).Intersects(r.pointsToAnyContext(b))
}

// FieldPointsTo returns the tokens the field of the token may point to
func (r *Result) FieldPointsTo(t TokenID, field string) []*Token {
	return r.Store.Tokens(r.Store.PointsToLocation(FieldLocation(t, field)))
}

// IsReachable returns true if the function to is reachable from the function from in the call graph
func (r *Result) IsReachable(from *ir.Function, to *ir.Function) bool {
	f, ok1 := r.Funcs.ID(from)
	t, ok2 := r.Funcs.ID(to)
	return ok1 && ok2 && reachability.IsReachable(r.CallGraph, f, t)
}

// ReachedFunctions returns the functions that have been reached in at least one context
func (r *Result) ReachedFunctions() []*ir.Function {
	var res []*ir.Function
	for _, f := range r.CallGraph.ReachedFuncs() {
		res = append(res, r.Funcs.Func(f))
	}
	return res
}
