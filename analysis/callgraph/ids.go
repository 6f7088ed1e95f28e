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
	"sync"

	"github.com/awslabs/ar-pta/analysis/ir"
)

// FuncID identifies a function in a FuncTable
type FuncID int

// NoFunc is the callee of call sites that are not statically resolved
const NoFunc FuncID = -1

// FuncTable assigns identifiers to functions. Functions are keyed by their declaration, so that overloads sharing
// one body have the same identifier. It is safe for concurrent use.
type FuncTable struct {
	mu    sync.RWMutex
	funcs []*ir.Function
	ids   map[*ir.Function]FuncID
	names map[string]FuncID
}

// NewFuncTable returns an empty table
func NewFuncTable() *FuncTable {
	return &FuncTable{ids: map[*ir.Function]FuncID{}, names: map[string]FuncID{}}
}

// NewFuncTableFor returns a table in which every function of the program is registered in declaration order
func NewFuncTableFor(prog *ir.Program) *FuncTable {
	t := NewFuncTable()
	for _, f := range prog.Functions {
		t.Register(f)
	}
	return t
}

// Register returns the identifier of f, assigning a new one on first registration
func (t *FuncTable) Register(f *ir.Function) FuncID {
	t.mu.RLock()
	id, ok := t.ids[f]
	t.mu.RUnlock()
	if ok {
		return id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[f]; ok {
		return id
	}
	id = FuncID(len(t.funcs))
	t.funcs = append(t.funcs, f)
	t.ids[f] = id
	t.names[f.Name] = id
	return id
}

// Func returns the function with identifier id, or nil if there is none
func (t *FuncTable) Func(id FuncID) *ir.Function {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id < 0 || int(id) >= len(t.funcs) {
		return nil
	}
	return t.funcs[id]
}

// ID returns the identifier of f, if it is registered
func (t *FuncTable) ID(f *ir.Function) (FuncID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[f]
	return id, ok
}

// Lookup returns the identifier of the registered function with the given name
func (t *FuncTable) Lookup(name string) (FuncID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.names[name]
	return id, ok
}

// Name returns the name of the function with identifier id
func (t *FuncTable) Name(id FuncID) string {
	if f := t.Func(id); f != nil {
		return f.Name
	}
	return "<unknown>"
}

// Len returns the number of registered functions
func (t *FuncTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.funcs)
}
