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
	"context"
	"errors"
	"time"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/config"
	"github.com/awslabs/ar-pta/analysis/ir"
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Analyze runs the pointer analysis of the program to its fixpoint, or until the budget or ctx stops it (see
// [Solver.Run] for the errors). When the config asks for more than one worker, entry points that cannot share any
// function, class or global are solved concurrently, one solver per group, over a shared store.
func Analyze(ctx context.Context, program *ir.Program, cfg *config.Config, logger *config.LogGroup) (*Result, error) {
	s, err := NewSolver(program, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Pointer.Workers <= 1 {
		return s.Run(ctx)
	}
	groups := seedGroups(s.sh.funcs, s.entries)
	if len(groups) <= 1 {
		return s.Run(ctx)
	}
	return s.runGroups(ctx, groups)
}

func (s *Solver) runGroups(ctx context.Context, groups [][]callgraph.FuncID) (*Result, error) {
	workers := s.sh.config.Pointer.Workers
	s.sh.logger.Infof("Starting pointer analysis of %s: %d independent seed groups, %d workers...",
		s.sh.program.Name, len(groups), workers)
	start := time.Now()
	solvers := make([]*Solver, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, group := range groups {
		i, group := i, group
		solvers[i] = newGroupSolver(s.sh, group)
		g.Go(func() error {
			solvers[i].seed()
			return solvers[i].solve(gctx)
		})
	}
	err := g.Wait()
	if errors.Is(err, ErrInvariant) {
		return nil, err
	}
	complete := true
	for _, solver := range solvers {
		complete = complete && solver.state == FixedPoint
	}
	res := s.sh.result(complete, time.Since(start))
	if complete {
		s.sh.logger.Infof("Pointer analysis terminated (%.2f s)", res.Stats.Duration.Seconds())
		res.Stats.log(s.sh.logger)
	}
	return res, err
}

// seedGroups partitions the entries into groups such that the functions, classes, static fields and globals
// transitively referenced by the entries of a group are disjoint from those of the other groups. Solving groups
// separately then yields the same facts as solving them together.
func seedGroups(funcs *callgraph.FuncTable, entries []callgraph.FuncID) [][]callgraph.FuncID {
	index := map[any]int{}
	for i, e := range entries {
		index[entryKey{e}] = i
	}
	var edges [][2]int
	for i, e := range entries {
		for r := range resourcesOf(funcs.Func(e)) {
			id, ok := index[r]
			if !ok {
				id = len(index)
				index[r] = id
			}
			edges = append(edges, [2]int{i, id})
		}
	}
	g := graph.New(len(index))
	for _, e := range edges {
		g.AddBoth(e[0], e[1])
	}
	var groups [][]callgraph.FuncID
	for _, component := range graph.Components(g) {
		var group []callgraph.FuncID
		for _, v := range component {
			if v < len(entries) {
				group = append(group, entries[v])
			}
		}
		if len(group) > 0 {
			slices.Sort(group)
			groups = append(groups, group)
		}
	}
	slices.SortFunc(groups, func(a, b []callgraph.FuncID) bool { return a[0] < b[0] })
	return groups
}

type entryKey struct{ f callgraph.FuncID }

type staticKey struct {
	class *ir.Class
	field string
}

type globalKey struct{ name string }

// resourcesOf returns the functions, classes, static fields and globals the function may touch, transitively.
// Classes bring all the members of their super chain, since dispatch on their instances may reach any of them.
func resourcesOf(entry *ir.Function) map[any]bool {
	res := map[any]bool{}
	var work []*ir.Function
	visit := func(f *ir.Function) {
		if !res[f] {
			res[f] = true
			work = append(work, f)
		}
	}
	addClass := func(c *ir.Class) {
		for cur := c; cur != nil && !res[cur]; cur = cur.Super {
			res[cur] = true
			for _, m := range cur.Methods {
				visit(m)
			}
		}
	}
	visit(entry)
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		addClass(f.Class)
		addClass(f.ReturnClass)
		for _, c := range f.Captures {
			visit(c.Outer.Func)
		}
		for _, stmt := range f.Body {
			for _, v := range ir.Operands(stmt) {
				switch v := v.(type) {
				case *ir.StaticInvoke:
					visit(v.Callee)
				case *ir.FuncRef:
					visit(v.Func)
				case *ir.NewExpr:
					addClass(v.Class)
				case *ir.StaticFieldRef:
					res[staticKey{v.Class, v.Field}] = true
				case *ir.GlobalRef:
					res[globalKey{v.Name}] = true
				}
			}
		}
	}
	return res
}
