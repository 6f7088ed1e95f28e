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
	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/contexts"
	"github.com/awslabs/ar-pta/analysis/ir"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
)

// reader returns the points-to set of a location. The solver's reader records the location as a dependency of the
// work item being processed.
type reader func(l Location) *intsets.Sparse

// targetKind is the kind of a callee found by dispatch
type targetKind int

const (
	// methodTarget is a member declared by the class of the receiver or one of its ancestors
	methodTarget targetKind = iota
	// functionTarget is a function token: a closure or a bound function stored in a property, or the target of a
	// pointer call
	functionTarget
	// functionBuiltin is call, apply or bind applied to a function token
	functionBuiltin
	// containerBuiltin is a method of Array, Set or Map applied to a container token
	containerBuiltin
	// topTarget is a call on the unknown token
	topTarget
)

// A dispatchTarget is one way a dynamic call site may be resolved for one token
type dispatchTarget struct {
	kind     targetKind
	callee   callgraph.FuncID
	receiver TokenID
	hasRecv  bool
	fn       TokenID
	method   string
}

// Resolver resolves dynamic call sites from points-to facts
type Resolver struct {
	funcs *callgraph.FuncTable
	store *Store
}

// NewResolver returns a resolver reading the facts of store
func NewResolver(funcs *callgraph.FuncTable, store *Store) *Resolver {
	return &Resolver{funcs: funcs, store: store}
}

// ResolveCallees returns the functions the dynamic call site may invoke when its caller is analysed in ctx, given
// the current points-to facts. The result is sorted and only grows as facts grow.
func (r *Resolver) ResolveCallees(dyn *callgraph.DynCallSite, ctx contexts.ContextID) []callgraph.FuncID {
	read := r.store.PointsToLocation
	set := map[callgraph.FuncID]bool{}
	if ref, ok := dyn.Target.(*ir.FuncRef); ok {
		set[r.funcs.Register(ref.Func)] = true
	}
	for _, t := range r.targets(ctx, dyn, read, nil) {
		switch t.kind {
		case methodTarget:
			set[t.callee] = true
		case functionTarget:
			for _, f := range r.functionsOf(t.fn, read, map[TokenID]bool{}) {
				set[f] = true
			}
		case functionBuiltin:
			if t.method != "bind" {
				for _, f := range r.functionsOf(t.fn, read, map[TokenID]bool{}) {
					set[f] = true
				}
			}
		case containerBuiltin:
			if op, ok := containerOps[t.method]; ok && op.callback && len(dyn.Args) > 0 {
				if ref, ok := dyn.Args[0].(*ir.FuncRef); ok {
					set[r.funcs.Register(ref.Func)] = true
				}
				cbs, _ := r.valuePoints(ctx, dyn.Args[0], read)
				for _, cb := range r.store.Tokens(cbs) {
					if cb.IsFunction() {
						for _, f := range r.functionsOf(cb.ID, read, map[TokenID]bool{}) {
							set[f] = true
						}
					}
				}
			}
		}
	}
	res := maps.Keys(set)
	slices.Sort(res)
	return res
}

// targets returns the dispatch targets of the dynamic call site in ctx. For pointer calls, target is the
// points-to set of the call target when the caller already evaluated it, nil otherwise.
func (r *Resolver) targets(ctx contexts.ContextID, dyn *callgraph.DynCallSite, read reader,
	target *intsets.Sparse) []dispatchTarget {
	var res []dispatchTarget
	if dyn.Kind == callgraph.PointerCall {
		if dyn.Unanalyzable {
			return []dispatchTarget{{kind: topTarget}}
		}
		if target == nil {
			target, _ = r.valuePoints(ctx, dyn.Target, read)
		}
		for _, tok := range r.store.Tokens(target) {
			switch {
			case tok.ID == TopToken:
				res = append(res, dispatchTarget{kind: topTarget})
			case tok.IsFunction():
				res = append(res, dispatchTarget{kind: functionTarget, fn: tok.ID})
			}
		}
		return res
	}
	if dyn.Receiver.Primitive {
		return nil
	}
	recv := read(LocalLocation(ctx, dyn.Receiver))
	for _, tok := range r.store.Tokens(recv) {
		res = append(res, r.methodTargets(tok, dyn.Method, read)...)
	}
	return res
}

// methodTargets returns the targets of the member call tok.method(...)
func (r *Resolver) methodTargets(tok *Token, method string, read reader) []dispatchTarget {
	if tok.ID == TopToken {
		return []dispatchTarget{{kind: topTarget}}
	}
	var res []dispatchTarget
	declared := false
	switch {
	case tok.IsFunction():
		if functionOps[method] {
			return []dispatchTarget{{kind: functionBuiltin, fn: tok.ID, method: method}}
		}
	case tok.Site.Class != nil:
		if m := tok.Site.Class.LookupMethod(method); m != nil {
			declared = true
			res = append(res, dispatchTarget{
				kind:     methodTarget,
				callee:   r.funcs.Register(m),
				receiver: tok.ID,
				hasRecv:  true,
			})
		}
	}
	if !declared && tok.IsContainer() {
		if _, ok := containerOps[method]; ok {
			res = append(res, dispatchTarget{kind: containerBuiltin, receiver: tok.ID, hasRecv: true, method: method})
		}
	}
	// function-valued properties
	for _, f := range r.store.Tokens(read(FieldLocation(tok.ID, method))) {
		if f.IsFunction() {
			res = append(res, dispatchTarget{kind: functionTarget, fn: f.ID, receiver: tok.ID, hasRecv: true})
		}
	}
	return res
}

// functionsOf returns the functions a function token invokes. Bound tokens are followed to their targets.
func (r *Resolver) functionsOf(t TokenID, read reader, seen map[TokenID]bool) []callgraph.FuncID {
	if seen[t] {
		return nil
	}
	seen[t] = true
	tok := r.store.TokenInfo(t)
	switch tok.Kind() {
	case ClosureKind:
		return []callgraph.FuncID{r.funcs.Register(tok.Site.Func)}
	case BoundKind:
		var res []callgraph.FuncID
		for _, target := range read(FieldLocation(t, boundTargetField)).AppendTo(nil) {
			res = append(res, r.functionsOf(target, read, seen)...)
		}
		return res
	}
	return nil
}

// valuePoints returns the points-to set of a value that reads the store. Returns false for values that create
// tokens (allocations, function references) and for unknown values, which the solver evaluates itself.
func (r *Resolver) valuePoints(ctx contexts.ContextID, v ir.Value, read reader) (*intsets.Sparse, bool) {
	switch v := v.(type) {
	case *ir.Local:
		if v.Primitive {
			return &intsets.Sparse{}, true
		}
		return read(LocalLocation(ctx, v)), true
	case *ir.Const, *ir.OpExpr:
		return &intsets.Sparse{}, true
	case *ir.Cast:
		return r.valuePoints(ctx, v.X, read)
	case *ir.FieldRef:
		return r.fieldPoints(ctx, v.Base, v.Field, read), true
	case *ir.ArrayRef:
		return r.fieldPoints(ctx, v.Base, ElemField, read), true
	case *ir.StaticFieldRef:
		return read(StaticLocation(v.Class, v.Field)), true
	case *ir.GlobalRef:
		if v.Name == globalThisName {
			return singleton(GlobalThisToken), true
		}
		return read(GlobalLocation(v.Name)), true
	case *ir.FuncRef:
		// closures created in a call target position are evaluated by the solver
		return &intsets.Sparse{}, false
	}
	return &intsets.Sparse{}, false
}

// fieldPoints returns the union of the field of the objects base points to. Loading from the unknown token yields
// the unknown token.
func (r *Resolver) fieldPoints(ctx contexts.ContextID, base *ir.Local, field string, read reader) *intsets.Sparse {
	res := &intsets.Sparse{}
	if base.Primitive {
		return res
	}
	for _, o := range read(LocalLocation(ctx, base)).AppendTo(nil) {
		if o == TopToken {
			res.Insert(TopToken)
			continue
		}
		res.UnionWith(read(FieldLocation(o, field)))
	}
	return res
}
