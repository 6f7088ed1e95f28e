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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/config"
	"github.com/awslabs/ar-pta/analysis/contexts"
	"github.com/awslabs/ar-pta/analysis/ir"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
)

// SolverState is the state of a solver
type SolverState int

const (
	// Pending solvers have not run, or have work items left
	Pending SolverState = iota
	// FixedPoint solvers have processed every work item. Their result is complete.
	FixedPoint
	// Stopped solvers have been stopped by the budget, a cancellation or an error. Their result is a sound
	// under-approximation of the fixpoint.
	Stopped
)

func (s SolverState) String() string {
	switch s {
	case Pending:
		return "pending"
	case FixedPoint:
		return "fixpoint"
	default:
		return "stopped"
	}
}

// A workItem is a statement of a function analysed in a context
type workItem struct {
	fn   callgraph.FuncID
	ctx  contexts.ContextID
	stmt int
}

type dependency struct {
	loc  LocID
	item workItem
}

type diagKey struct {
	kind DiagnosticKind
	stmt ir.Stmt
}

// sharedState is the part of the analysis shared by the solvers of independent seed groups. All its tables are safe
// for concurrent use.
type sharedState struct {
	program  *ir.Program
	config   *config.Config
	logger   *config.LogGroup
	funcs    *callgraph.FuncTable
	sites    *callgraph.CallSiteTable
	contexts *contexts.Table
	policy   contexts.Policy
	store    *Store
	graph    *callgraph.Graph
	resolver *Resolver

	diagMu      sync.Mutex
	diagnostics []Diagnostic
	diagSeen    map[diagKey]bool

	singletonMu sync.Mutex
	singletons  map[callgraph.FuncID]bool

	iterations   int64
	staticEdges  int64
	dynamicEdges int64
}

func newSharedState(program *ir.Program, cfg *config.Config, logger *config.LogGroup) (*sharedState, error) {
	table := contexts.NewTable()
	policy, err := contexts.NewPolicy(cfg.Pointer.ContextPolicy, cfg.Pointer.ContextDepth,
		cfg.Pointer.HeapContextDepth, table)
	if err != nil {
		return nil, fmt.Errorf("invalid pointer analysis options: %w", err)
	}
	funcs := callgraph.NewFuncTableFor(program)
	store := NewStore()
	return &sharedState{
		program:    program,
		config:     cfg,
		logger:     logger,
		funcs:      funcs,
		sites:      callgraph.NewCallSiteTable(),
		contexts:   table,
		policy:     policy,
		store:      store,
		graph:      callgraph.NewGraph(),
		resolver:   NewResolver(funcs, store),
		diagSeen:   map[diagKey]bool{},
		singletons: map[callgraph.FuncID]bool{},
	}, nil
}

// Solver runs the worklist fixpoint of the analysis. A solver is not safe for concurrent use.
type Solver struct {
	sh      *sharedState
	entries []callgraph.FuncID
	queue   []workItem
	head    int
	pending map[workItem]bool
	deps    map[LocID][]workItem
	depSeen map[dependency]bool
	current workItem
	state   SolverState
	seeded  bool
	elapsed time.Duration
}

// NewSolver returns a solver for the program. The entry points are the ones of the config, or the ones declared by
// the program when the config lists none. Returns an error wrapping ErrMissingEntryPoint if an entry point is
// unknown or if there is none.
func NewSolver(program *ir.Program, cfg *config.Config, logger *config.LogGroup) (*Solver, error) {
	sh, err := newSharedState(program, cfg, logger)
	if err != nil {
		return nil, err
	}
	entries, err := resolveEntries(program, cfg, sh.funcs)
	if err != nil {
		return nil, err
	}
	return newGroupSolver(sh, entries), nil
}

func newGroupSolver(sh *sharedState, entries []callgraph.FuncID) *Solver {
	return &Solver{
		sh:      sh,
		entries: entries,
		pending: map[workItem]bool{},
		deps:    map[LocID][]workItem{},
		depSeen: map[dependency]bool{},
		state:   Pending,
	}
}

func resolveEntries(program *ir.Program, cfg *config.Config, funcs *callgraph.FuncTable) ([]callgraph.FuncID, error) {
	var entries []callgraph.FuncID
	if len(cfg.EntryPoints) > 0 {
		for _, name := range cfg.EntryPoints {
			f := program.Function(name)
			if f == nil {
				return nil, fmt.Errorf("%w: no function named %s", ErrMissingEntryPoint, name)
			}
			entries = append(entries, funcs.Register(f))
		}
	} else {
		for _, f := range program.Entries {
			entries = append(entries, funcs.Register(f))
		}
	}
	// module bodies run when the program loads, whichever entry points are analysed
	for _, f := range program.Initializers {
		if id := funcs.Register(f); !slices.Contains(entries, id) {
			entries = append(entries, id)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: program %s declares none and the config lists none", ErrMissingEntryPoint,
			program.Name)
	}
	return entries, nil
}

// State returns the state of the solver
func (s *Solver) State() SolverState {
	return s.state
}

// Run runs the solver until the fixpoint, the iteration budget or the cancellation of ctx. The result is returned
// in every case but an invariant violation. When the budget stops the solver, the error wraps ErrBudgetExhausted;
// when ctx is cancelled, it wraps the error of ctx. In both cases, Resume continues the run.
func (s *Solver) Run(ctx context.Context) (*Result, error) {
	if !s.seeded {
		s.sh.logger.Infof("Starting pointer analysis of %s (policy %s, depth %d, heap depth %d)...",
			s.sh.program.Name, s.sh.policy.Name(), s.sh.config.Pointer.ContextDepth,
			s.sh.config.Pointer.HeapContextDepth)
		s.seed()
	}
	start := time.Now()
	err := s.solve(ctx)
	s.elapsed += time.Since(start)
	if errors.Is(err, ErrInvariant) {
		return nil, err
	}
	res := s.sh.result(s.state == FixedPoint, s.elapsed)
	if s.state == FixedPoint {
		s.sh.logger.Infof("Pointer analysis terminated (%.2f s)", s.elapsed.Seconds())
		res.Stats.log(s.sh.logger)
	}
	return res, err
}

// Resume continues a run stopped by the budget or a cancellation. The queue of work items is kept between runs, so
// the solver reaches the same fixpoint as an uninterrupted run.
func (s *Solver) Resume(ctx context.Context) (*Result, error) {
	if s.state == FixedPoint {
		return s.sh.result(true, s.elapsed), nil
	}
	s.sh.logger.Infof("Resuming pointer analysis with %d pending work items", len(s.queue)-s.head)
	return s.Run(ctx)
}

func (s *Solver) seed() {
	s.seeded = true
	for _, entry := range s.entries {
		node, isNew := s.sh.graph.AddNode(entry, contexts.Empty)
		s.sh.graph.AddRoot(node)
		if isNew {
			s.scheduleFunction(entry, contexts.Empty)
		}
	}
}

func (s *Solver) solve(ctx context.Context) error {
	budget := s.sh.config.Pointer.MaxIterations
	interval := s.sh.config.Pointer.CancelCheckInterval
	if interval <= 0 {
		interval = config.DefaultCancelCheckInterval
	}
	processed := 0
	s.state = Pending
	for s.head < len(s.queue) {
		if processed%interval == 0 {
			if err := ctx.Err(); err != nil {
				s.state = Stopped
				s.sh.logger.Warnf("Pointer analysis cancelled with %d pending work items", len(s.queue)-s.head)
				return fmt.Errorf("pointer analysis stopped: %w", err)
			}
		}
		if budget > 0 && processed >= budget {
			s.state = Stopped
			s.sh.logger.Warnf("Pointer analysis stopped after %d work items, %d pending", processed,
				len(s.queue)-s.head)
			return fmt.Errorf("%w after %d work items", ErrBudgetExhausted, processed)
		}
		item := s.pop()
		processed++
		atomic.AddInt64(&s.sh.iterations, 1)
		if err := s.process(item); err != nil {
			s.state = Stopped
			return err
		}
	}
	s.state = FixedPoint
	return nil
}

func (s *Solver) pop() workItem {
	item := s.queue[s.head]
	s.head++
	delete(s.pending, item)
	if s.head > 1024 && s.head*2 > len(s.queue) {
		s.queue = append(s.queue[:0], s.queue[s.head:]...)
		s.head = 0
	}
	return item
}

// schedule adds the item to the queue, unless it is already pending
func (s *Solver) schedule(item workItem) {
	if s.pending[item] {
		return
	}
	s.pending[item] = true
	s.queue = append(s.queue, item)
}

// scheduleFunction schedules every statement of the function in ctx
func (s *Solver) scheduleFunction(f callgraph.FuncID, ctx contexts.ContextID) {
	fn := s.sh.funcs.Func(f)
	for i := range fn.Body {
		s.schedule(workItem{fn: f, ctx: ctx, stmt: i})
	}
}

// read returns the points-to set of l and records that the current work item depends on it
func (s *Solver) read(l Location) *intsets.Sparse {
	id := s.sh.store.Loc(l)
	d := dependency{loc: id, item: s.current}
	if !s.depSeen[d] {
		s.depSeen[d] = true
		s.deps[id] = append(s.deps[id], s.current)
	}
	return s.sh.store.PointsTo(id)
}

// add unions pts into the set of l and schedules the work items depending on l if it grew
func (s *Solver) add(l Location, pts *intsets.Sparse) {
	if pts == nil || pts.IsEmpty() {
		return
	}
	id := s.sh.store.Loc(l)
	if s.sh.store.AddPointsTo(id, pts) {
		for _, item := range s.deps[id] {
			s.schedule(item)
		}
	}
}

// diagnose records a diagnostic, once per kind and statement
func (s *Solver) diagnose(kind DiagnosticKind, stmt ir.Stmt, format string, args ...any) {
	d := Diagnostic{
		Kind:    kind,
		Func:    s.current.fn,
		Context: s.current.ctx,
		Stmt:    stmt,
		Message: fmt.Sprintf(format, args...),
	}
	k := diagKey{kind: kind, stmt: stmt}
	s.sh.diagMu.Lock()
	defer s.sh.diagMu.Unlock()
	if s.sh.diagSeen[k] {
		return
	}
	s.sh.diagSeen[k] = true
	s.sh.diagnostics = append(s.sh.diagnostics, d)
	s.sh.logger.Warnf("%s", d)
}
