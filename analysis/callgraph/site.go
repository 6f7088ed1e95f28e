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

	"github.com/awslabs/ar-pta/analysis/ir"
)

// CallSiteID identifies a call statement in a CallSiteTable
type CallSiteID int

// A Site is a classified call statement: a *CallSite when the callee is fixed, a *DynCallSite otherwise
type Site interface {
	// Base returns the part common to static and dynamic call sites
	Base() *CallSite
	// Dynamic returns true when the callee must be resolved from points-to facts
	Dynamic() bool
	String() string
}

// CallSite is a call statement whose callee is fixed by the IR
type CallSite struct {
	ID     CallSiteID
	Stmt   ir.Stmt
	Caller FuncID

	// Callee is NoFunc for dynamic call sites
	Callee FuncID

	// Args are the argument operands. When ArgsUnknown is set, an argument is spread and the actual arguments
	// cannot be matched with parameters.
	Args        []ir.Value
	ArgsUnknown bool

	// Result is the value receiving the returned value, nil when the result is dropped
	Result ir.Value
}

// Base returns the call site itself
func (s *CallSite) Base() *CallSite { return s }

// Dynamic returns false
func (s *CallSite) Dynamic() bool { return false }

func (s *CallSite) String() string {
	return fmt.Sprintf("#%d %s", s.ID, ir.Location(s.Stmt))
}

// DynKind distinguishes method calls from calls through a value
type DynKind int

const (
	// MethodCall is a call o.m(...) dispatched on the objects o points to
	MethodCall DynKind = iota
	// PointerCall is a call through a local, a field or an element holding functions
	PointerCall
)

// DynCallSite is a call statement whose callees are resolved from points-to facts
type DynCallSite struct {
	CallSite
	Kind DynKind

	// Receiver and Method are set for method calls
	Receiver *ir.Local
	Method   string

	// Target is set for pointer calls
	Target ir.Value

	// Unanalyzable is set when the target of a pointer call cannot hold a function the analysis tracks
	Unanalyzable bool
}

// Dynamic returns true
func (s *DynCallSite) Dynamic() bool { return true }

// Classify returns the call site of stmt, or false if stmt is not a call. The identifier of the returned site is
// not assigned; use a CallSiteTable to intern sites.
func Classify(caller FuncID, stmt ir.Stmt, funcs *FuncTable) (Site, bool) {
	inv := ir.InvokeOf(stmt)
	if inv == nil {
		return nil, false
	}
	base := CallSite{
		ID:          -1,
		Stmt:        stmt,
		Caller:      caller,
		Callee:      NoFunc,
		Args:        inv.Arguments(),
		ArgsUnknown: inv.Spread(),
	}
	if base.ArgsUnknown {
		base.Args = nil
	}
	if a, ok := stmt.(*ir.AssignStmt); ok {
		base.Result = a.Left
	}
	switch inv := inv.(type) {
	case *ir.StaticInvoke:
		base.Callee = funcs.Register(inv.Callee)
		return &base, true
	case *ir.InstanceInvoke:
		return &DynCallSite{CallSite: base, Kind: MethodCall, Receiver: inv.Base, Method: inv.Method}, true
	case *ir.PtrInvoke:
		dyn := &DynCallSite{CallSite: base, Kind: PointerCall, Target: inv.Target}
		switch inv.Target.(type) {
		case *ir.Local, *ir.FieldRef, *ir.ArrayRef, *ir.StaticFieldRef, *ir.GlobalRef, *ir.FuncRef:
		default:
			dyn.Unanalyzable = true
		}
		return dyn, true
	}
	return nil, false
}

// CallSiteTable interns the call sites of a program. It is safe for concurrent use.
type CallSiteTable struct {
	mu     sync.RWMutex
	sites  []Site
	byStmt map[ir.Stmt]CallSiteID
}

// NewCallSiteTable returns an empty table
func NewCallSiteTable() *CallSiteTable {
	return &CallSiteTable{byStmt: map[ir.Stmt]CallSiteID{}}
}

// SiteOf returns the interned call site of stmt, classifying it on first use. Returns false if stmt is not a call.
func (t *CallSiteTable) SiteOf(caller FuncID, stmt ir.Stmt, funcs *FuncTable) (Site, bool) {
	t.mu.RLock()
	id, ok := t.byStmt[stmt]
	t.mu.RUnlock()
	if ok {
		return t.Site(id), true
	}
	site, isCall := Classify(caller, stmt, funcs)
	if !isCall {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byStmt[stmt]; ok {
		return t.sites[id], true
	}
	site.Base().ID = CallSiteID(len(t.sites))
	t.sites = append(t.sites, site)
	t.byStmt[stmt] = site.Base().ID
	return site, true
}

// Site returns the call site with identifier id, or nil
func (t *CallSiteTable) Site(id CallSiteID) Site {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id < 0 || int(id) >= len(t.sites) {
		return nil
	}
	return t.sites[id]
}

// Lookup returns the identifier of the call site of stmt, if it has been interned
func (t *CallSiteTable) Lookup(stmt ir.Stmt) (CallSiteID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byStmt[stmt]
	return id, ok
}

// Len returns the number of interned call sites
func (t *CallSiteTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sites)
}
