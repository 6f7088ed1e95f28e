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
	"github.com/awslabs/ar-pta/analysis/contexts"
	"github.com/awslabs/ar-pta/analysis/ir"
	"golang.org/x/tools/container/intsets"
)

// process applies the propagation rule of the statement of the work item
func (s *Solver) process(item workItem) error {
	fn := s.sh.funcs.Func(item.fn)
	if fn == nil || item.stmt < 0 || item.stmt >= len(fn.Body) {
		return invariantError(s.sh.funcs, item, "no such statement")
	}
	stmt := fn.Body[item.stmt]
	s.current = item
	if s.sh.logger.LogsTrace() {
		s.sh.logger.Tracef("[%s %s] %s", fn.Name, s.sh.contexts.String(item.ctx), stmt)
	}
	if site, isCall := s.sh.sites.SiteOf(item.fn, stmt, s.sh.funcs); isCall {
		return s.processCall(item, site)
	}
	switch st := stmt.(type) {
	case *ir.AssignStmt:
		pts, err := s.eval(item, stmt, st.Right)
		if err != nil {
			return err
		}
		return s.write(item, stmt, st.Left, pts)
	case *ir.ReturnStmt:
		if st.Result == nil {
			return nil
		}
		pts, err := s.eval(item, stmt, st.Result)
		if err != nil {
			return err
		}
		s.add(LocalLocation(item.ctx, fn.Return()), pts)
		return nil
	default:
		return invariantError(s.sh.funcs, item, "statement %s of type %T has no rule", stmt, stmt)
	}
}

// eval returns the points-to set of the value v of stmt. Allocations and function references return the token
// they create. Values the analysis does not model return the unknown token.
func (s *Solver) eval(item workItem, stmt ir.Stmt, v ir.Value) (*intsets.Sparse, error) {
	switch v := v.(type) {
	case *ir.NewExpr:
		kind := ObjectKind
		container := v.Class.ContainerKind()
		if container != ir.NotContainer {
			kind = ContainerKind
		}
		return s.allocate(item, siteKey{stmt: stmt, value: v, kind: kind, class: v.Class}, func(site *AllocSite) {
			site.Container = container
		})
	case *ir.NewArrayExpr:
		return s.allocate(item, siteKey{stmt: stmt, value: v, kind: ContainerKind}, func(site *AllocSite) {
			site.Container = ir.ArrayContainer
		})
	case *ir.FuncRef:
		// closures keep the full context they are created in, so that captured locals are read in it
		site := s.sh.store.AllocSite(siteKey{stmt: stmt, value: v, kind: ClosureKind}, func(site *AllocSite) {
			site.Func = v.Func
		})
		return singleton(s.sh.store.Token(site, item.ctx)), nil
	case ir.Invoke:
		// results of calls are written by the call rule
		return &intsets.Sparse{}, nil
	}
	if pts, ok := s.sh.resolver.valuePoints(item.ctx, v, s.read); ok {
		return pts, nil
	}
	s.diagnose(UnknownValue, stmt, "value %s is not modelled", v)
	return singleton(TopToken), nil
}

// allocate returns the token of the allocation site in the heap context of the work item
func (s *Solver) allocate(item workItem, k siteKey, init func(*AllocSite)) (*intsets.Sparse, error) {
	heap, err := s.sh.policy.HeapContext(item.ctx)
	if err != nil {
		return nil, invariantError(s.sh.funcs, item, "%v", err)
	}
	site := s.sh.store.AllocSite(k, init)
	return singleton(s.sh.store.Token(site, heap)), nil
}

// write unions pts into the location designated by left
func (s *Solver) write(item workItem, stmt ir.Stmt, left ir.Value, pts *intsets.Sparse) error {
	switch l := left.(type) {
	case *ir.Local:
		if !l.Primitive {
			s.add(LocalLocation(item.ctx, l), pts)
		}
	case *ir.FieldRef:
		s.storeField(item.ctx, stmt, l.Base, l.Field, pts)
	case *ir.ArrayRef:
		s.storeField(item.ctx, stmt, l.Base, ElemField, pts)
	case *ir.StaticFieldRef:
		s.add(StaticLocation(l.Class, l.Field), pts)
	case *ir.GlobalRef:
		if l.Name != globalThisName {
			s.add(GlobalLocation(l.Name), pts)
		}
	default:
		return invariantError(s.sh.funcs, item, "cannot assign to %s", left)
	}
	return nil
}

// storeField unions pts into the field of every object base points to. The base is read even when pts is empty,
// so that the store is applied again when the base grows.
func (s *Solver) storeField(ctx contexts.ContextID, stmt ir.Stmt, base *ir.Local, field string, pts *intsets.Sparse) {
	if base.Primitive {
		return
	}
	objects := s.read(LocalLocation(ctx, base))
	if pts.IsEmpty() {
		return
	}
	for _, o := range objects.AppendTo(nil) {
		if o == TopToken {
			s.diagnose(StoreThroughUnknown, stmt, "%s may be any object", base)
			continue
		}
		s.add(FieldLocation(o, field), pts)
	}
}
