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

package contexts

import (
	"fmt"
)

// CalleeHint carries what a policy may need to know about the call being analysed
type CalleeHint struct {
	// HasReceiver is true when the callee is dispatched on a receiver object
	HasReceiver bool
	// Receiver is the allocation site of the receiver object
	Receiver Element
	// ReceiverHeap is the heap context of the receiver object
	ReceiverHeap ContextID
}

// A Policy derives the contexts of callees and allocation tokens
type Policy interface {
	// Name returns the name of the policy, as used in the configuration
	Name() string

	// DeriveContext returns the context in which a callee reached from caller through site is analysed
	DeriveContext(caller ContextID, site Element, hint CalleeHint) (ContextID, error)

	// HeapContext returns the context attached to the objects allocated in a function analysed in ctx
	HeapContext(ctx ContextID) (ContextID, error)
}

// NewPolicy returns the policy with the given name. depth is the maximum length of the calling contexts and
// heapDepth the maximum length of the heap contexts.
func NewPolicy(name string, depth int, heapDepth int, table *Table) (Policy, error) {
	if depth < 0 || heapDepth < 0 {
		return nil, fmt.Errorf("negative context depth %d or heap depth %d", depth, heapDepth)
	}
	if heapDepth > depth {
		return nil, fmt.Errorf("heap depth %d exceeds context depth %d", heapDepth, depth)
	}
	switch {
	case name != "callsite" && name != "object" && name != "insensitive":
		return nil, fmt.Errorf("unknown context policy %q", name)
	case name == "insensitive" || depth == 0:
		return Insensitive{}, nil
	case name == "callsite":
		return &KCallSite{K: depth, H: heapDepth, table: table}, nil
	default:
		return &KObject{K: depth, H: heapDepth, table: table}, nil
	}
}

// Insensitive analyses every function in the empty context
type Insensitive struct{}

// Name returns "insensitive"
func (Insensitive) Name() string { return "insensitive" }

// DeriveContext always returns the empty context
func (Insensitive) DeriveContext(ContextID, Element, CalleeHint) (ContextID, error) { return Empty, nil }

// HeapContext always returns the empty context
func (Insensitive) HeapContext(ContextID) (ContextID, error) { return Empty, nil }

// KCallSite keeps the last K call sites of the call string. Allocation tokens keep the last H.
type KCallSite struct {
	K     int
	H     int
	table *Table
}

// Name returns "callsite"
func (p *KCallSite) Name() string { return "callsite" }

// DeriveContext appends site to the caller's call string and keeps the K most recent sites
func (p *KCallSite) DeriveContext(caller ContextID, site Element, _ CalleeHint) (ContextID, error) {
	prev := p.table.Elements(caller)
	elems := make([]Element, 0, len(prev)+1)
	elems = append(elems, prev...)
	elems = append(elems, site)
	return p.table.Intern(lastN(elems, p.K))
}

// HeapContext keeps the H most recent call sites of ctx
func (p *KCallSite) HeapContext(ctx ContextID) (ContextID, error) {
	return p.table.Intern(lastN(p.table.Elements(ctx), p.H))
}

// KObject qualifies a method by its receiver object: the allocation site of the receiver followed by the receiver's
// own heap context, truncated to K elements. Calls without receiver stay in the caller's context.
type KObject struct {
	K     int
	H     int
	table *Table
}

// Name returns "object"
func (p *KObject) Name() string { return "object" }

// DeriveContext returns the receiver-qualified context of the callee
func (p *KObject) DeriveContext(caller ContextID, _ Element, hint CalleeHint) (ContextID, error) {
	if !hint.HasReceiver {
		return caller, nil
	}
	heap := p.table.Elements(hint.ReceiverHeap)
	elems := make([]Element, 0, len(heap)+1)
	elems = append(elems, heap...)
	elems = append(elems, hint.Receiver)
	return p.table.Intern(lastN(elems, p.K))
}

// HeapContext keeps the H most recent elements of ctx
func (p *KObject) HeapContext(ctx ContextID) (ContextID, error) {
	return p.table.Intern(lastN(p.table.Elements(ctx), p.H))
}
