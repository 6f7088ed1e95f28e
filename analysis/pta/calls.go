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
	"sync/atomic"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/contexts"
	"github.com/awslabs/ar-pta/analysis/ir"
	"golang.org/x/tools/container/intsets"
)

// callInfo is the call being processed
type callInfo struct {
	item    workItem
	cs      callgraph.CSCallSite
	caller  callgraph.NodeID
	site    *callgraph.CallSite
	dynamic bool
}

// callArgs are the points-to sets of the arguments of a call. Parameters past the end of args receive rest when
// it is not nil.
type callArgs struct {
	args []*intsets.Sparse
	rest *intsets.Sparse
}

// callInput is what a callee receives
type callInput struct {
	callArgs
	this    *intsets.Sparse
	hint    contexts.CalleeHint
	closure *Token
}

// processCall applies the call rule: resolve the callees, add the edges, pass arguments and collect returned values
func (s *Solver) processCall(item workItem, site callgraph.Site) error {
	base := site.Base()
	caller, ok := s.sh.graph.LookupNode(item.fn, item.ctx)
	if !ok {
		return invariantError(s.sh.funcs, item, "caller is not a node of the call graph")
	}
	c := &callInfo{
		item:    item,
		cs:      callgraph.CSCallSite{Context: item.ctx, Site: base.ID},
		caller:  caller,
		site:    base,
		dynamic: site.Dynamic(),
	}
	args, err := s.evalArgs(c)
	if err != nil {
		return err
	}
	ret := &intsets.Sparse{}
	if !site.Dynamic() {
		in := callInput{callArgs: args}
		// super calls and constructor chaining pass the receiver of the caller
		callee, callerFn := s.sh.funcs.Func(base.Callee), s.sh.funcs.Func(item.fn)
		if callee != nil && callee.Class != nil && !callee.Static && callerFn.This != nil {
			in.this = s.read(LocalLocation(item.ctx, callerFn.This))
		}
		r, err := s.invoke(c, base.Callee, in)
		if err != nil {
			return err
		}
		ret.UnionWith(r)
	} else {
		dyn := site.(*callgraph.DynCallSite)
		var target *intsets.Sparse
		if dyn.Kind == callgraph.PointerCall && !dyn.Unanalyzable {
			if target, err = s.eval(item, base.Stmt, dyn.Target); err != nil {
				return err
			}
		}
		for _, t := range s.sh.resolver.targets(item.ctx, dyn, s.read, target) {
			r, err := s.dispatch(c, t, args)
			if err != nil {
				return err
			}
			ret.UnionWith(r)
		}
	}
	if base.Result != nil {
		return s.write(item, base.Stmt, base.Result, ret)
	}
	return nil
}

func (s *Solver) evalArgs(c *callInfo) (callArgs, error) {
	if c.site.ArgsUnknown {
		s.diagnose(UnknownArguments, c.site.Stmt, "spread arguments, parameters may be any object")
		return callArgs{rest: singleton(TopToken)}, nil
	}
	args := callArgs{args: make([]*intsets.Sparse, len(c.site.Args))}
	for i, a := range c.site.Args {
		pts, err := s.eval(c.item, c.site.Stmt, a)
		if err != nil {
			return args, err
		}
		args.args[i] = pts
	}
	return args, nil
}

// dispatch invokes one target of a dynamic call
func (s *Solver) dispatch(c *callInfo, t dispatchTarget, args callArgs) (*intsets.Sparse, error) {
	switch t.kind {
	case topTarget:
		s.diagnose(UnanalyzableCall, c.site.Stmt, "the callee of %s may be any function", c.site.Stmt)
		return singleton(TopToken), nil
	case methodTarget:
		in := callInput{callArgs: args, this: singleton(t.receiver), hint: s.receiverHint(t.receiver)}
		return s.invoke(c, t.callee, in)
	case functionTarget:
		in := callInput{callArgs: args}
		if t.hasRecv {
			in.this = singleton(t.receiver)
			in.hint = s.receiverHint(t.receiver)
		}
		return s.callFunctionToken(c, t.fn, in, map[TokenID]bool{})
	case functionBuiltin:
		return s.applyFunctionBuiltin(c, t, args)
	case containerBuiltin:
		return s.applyContainerBuiltin(c, t, args)
	}
	return &intsets.Sparse{}, nil
}

func (s *Solver) receiverHint(t TokenID) contexts.CalleeHint {
	tok := s.sh.store.TokenInfo(t)
	return contexts.CalleeHint{
		HasReceiver:  true,
		Receiver:     contexts.Element(tok.Site.ID),
		ReceiverHeap: tok.Context,
	}
}

// callFunctionToken invokes the function a closure or bound token stands for. Bound tokens prepend their bound
// arguments and replace the receiver with their bound this.
func (s *Solver) callFunctionToken(c *callInfo, fn TokenID, in callInput, seen map[TokenID]bool) (*intsets.Sparse,
	error) {
	res := &intsets.Sparse{}
	if seen[fn] {
		return res, nil
	}
	seen[fn] = true
	tok := s.sh.store.TokenInfo(fn)
	switch tok.Kind() {
	case ClosureKind:
		in.closure = tok
		return s.invoke(c, s.sh.funcs.Register(tok.Site.Func), in)
	case BoundKind:
		prefix := make([]*intsets.Sparse, 0, tok.Site.BoundArgs+len(in.args))
		for i := 0; i < tok.Site.BoundArgs; i++ {
			prefix = append(prefix, s.read(FieldLocation(fn, boundArgField(i))))
		}
		next := callInput{
			callArgs: callArgs{args: append(prefix, in.args...), rest: in.rest},
			this:     s.read(FieldLocation(fn, boundThisField)),
			hint:     in.hint,
		}
		// arguments bound by a spread have unknown positions: every parameter may receive any argument
		if boundRest := s.read(FieldLocation(fn, boundRestField)); !boundRest.IsEmpty() {
			rest := &intsets.Sparse{}
			rest.Copy(boundRest)
			for _, a := range next.args {
				rest.UnionWith(a)
			}
			if in.rest != nil {
				rest.UnionWith(in.rest)
			}
			next.args, next.rest = nil, rest
		}
		for _, target := range s.read(FieldLocation(fn, boundTargetField)).AppendTo(nil) {
			r, err := s.callFunctionToken(c, target, next, seen)
			if err != nil {
				return nil, err
			}
			res.UnionWith(r)
		}
	}
	return res, nil
}

// invoke adds the edge from the call to the callee in its derived context, passes the inputs and returns the
// values the callee returns
func (s *Solver) invoke(c *callInfo, callee callgraph.FuncID, in callInput) (*intsets.Sparse, error) {
	fn := s.sh.funcs.Func(callee)
	if fn == nil {
		return nil, invariantError(s.sh.funcs, c.item, "unknown callee %d", callee)
	}
	calleeCtx := contexts.Empty
	if !s.isSingleton(callee, fn) {
		var err error
		calleeCtx, err = s.sh.policy.DeriveContext(c.item.ctx, contexts.Element(c.site.ID), in.hint)
		if err != nil {
			return nil, invariantError(s.sh.funcs, c.item, "%v", err)
		}
	}
	node, isNew := s.sh.graph.AddNode(callee, calleeCtx)
	if s.sh.graph.AddEdge(c.cs, c.caller, node) {
		if c.dynamic {
			atomic.AddInt64(&s.sh.dynamicEdges, 1)
		} else {
			atomic.AddInt64(&s.sh.staticEdges, 1)
		}
		if s.sh.logger.LogsDebug() {
			s.sh.logger.Debugf("Call edge %s %s -> %s %s at %s", s.sh.funcs.Name(c.item.fn),
				s.sh.contexts.String(c.item.ctx), fn.Name, s.sh.contexts.String(calleeCtx), ir.Location(c.site.Stmt))
		}
	}
	if isNew {
		if s.sh.logger.LogsDebug() {
			s.sh.logger.Debugf("Reached %s in context %s", fn.Name, s.sh.contexts.String(calleeCtx))
		}
		s.scheduleFunction(callee, calleeCtx)
	}
	if fn.External {
		if method := fn.StorageMethod(); method != "" {
			return s.applyStorage(c, method, in.callArgs), nil
		}
		return s.externalResult(c, fn)
	}
	if in.this != nil && fn.This != nil {
		s.add(LocalLocation(calleeCtx, fn.This), in.this)
	}
	for i, p := range fn.Params {
		if p.Primitive {
			continue
		}
		if i < len(in.args) {
			s.add(LocalLocation(calleeCtx, p), in.args[i])
		} else if in.rest != nil {
			s.add(LocalLocation(calleeCtx, p), in.rest)
		}
	}
	s.bindCaptures(c, fn, calleeCtx, in.closure)
	return s.read(LocalLocation(calleeCtx, fn.Return())), nil
}

// bindCaptures links the captured locals of fn in calleeCtx with the locals of the enclosing function, in the context
// the closure was created in. Values flow both ways, since closures share the variables they capture.
func (s *Solver) bindCaptures(c *callInfo, fn *ir.Function, calleeCtx contexts.ContextID, closure *Token) {
	for _, capture := range fn.Captures {
		if capture.Inner.Primitive || capture.Outer.Primitive {
			continue
		}
		var outer Location
		switch {
		case closure != nil:
			outer = LocalLocation(closure.Context, capture.Outer)
		case capture.Outer.Func == s.sh.funcs.Func(c.item.fn):
			outer = LocalLocation(c.item.ctx, capture.Outer)
		default:
			continue
		}
		inner := LocalLocation(calleeCtx, capture.Inner)
		s.add(inner, s.read(outer))
		s.add(outer, s.read(inner))
	}
}

// externalResult returns the token of the object an external function returns at the call site
func (s *Solver) externalResult(c *callInfo, fn *ir.Function) (*intsets.Sparse, error) {
	if fn.ReturnClass == nil {
		return &intsets.Sparse{}, nil
	}
	k := siteKey{stmt: c.site.Stmt, kind: ExternalKind, class: fn.ReturnClass}
	return s.allocate(c.item, k, func(site *AllocSite) {
		site.Container = fn.ReturnClass.ContainerKind()
	})
}

// isSingleton returns true if the function is analysed once, in the empty context
func (s *Solver) isSingleton(id callgraph.FuncID, fn *ir.Function) bool {
	if !s.sh.config.Pointer.SingletonStatics || !fn.Static || fn.External {
		return false
	}
	s.sh.singletonMu.Lock()
	defer s.sh.singletonMu.Unlock()
	b, ok := s.sh.singletons[id]
	if !ok {
		b = returnsOwnAllocation(fn)
		s.sh.singletons[id] = b
		if b {
			s.sh.logger.Debugf("%s is analysed as a singleton factory", fn.Name)
		}
	}
	return b
}

// returnsOwnAllocation returns true when the function returns a local holding an object it allocates or reads from
// a static field, possibly through copies
func returnsOwnAllocation(fn *ir.Function) bool {
	alloc := map[*ir.Local]bool{}
	for changed := true; changed; {
		changed = false
		for _, st := range fn.Body {
			a, ok := st.(*ir.AssignStmt)
			if !ok {
				continue
			}
			l, ok := a.Left.(*ir.Local)
			if !ok || alloc[l] {
				continue
			}
			right := a.Right
			if cast, ok := right.(*ir.Cast); ok {
				right = cast.X
			}
			switch r := right.(type) {
			case *ir.NewExpr, *ir.NewArrayExpr, *ir.StaticFieldRef:
				alloc[l] = true
				changed = true
			case *ir.Local:
				if alloc[r] {
					alloc[l] = true
					changed = true
				}
			}
		}
	}
	for _, st := range fn.Body {
		if ret, ok := st.(*ir.ReturnStmt); ok {
			if l, ok := ret.Result.(*ir.Local); ok && alloc[l] {
				return true
			}
		}
	}
	return false
}
