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

// Package contexts implements the calling contexts of the pointer analysis. A context is a bounded sequence of
// elements (call sites for call-string sensitivity, allocation sites for object sensitivity), interned into a
// [ContextID] by a [Table]. A [Policy] decides the context of a callee from the context of its caller.
package contexts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// ErrContextCollision is returned when two different element sequences are interned under the same identifier
var ErrContextCollision = errors.New("context collision")

// ContextID identifies an interned context
type ContextID int

// Empty is the identifier of the empty context. Entry points and context-insensitive callees are analysed in it.
const Empty ContextID = 0

// Element is one entry of a context: a call-site identifier or an allocation-site identifier, depending on the policy
type Element int

// A Table interns contexts. It is safe for concurrent use.
type Table struct {
	mu    sync.RWMutex
	elems [][]Element
	index map[string]ContextID
}

// NewTable returns a table containing only the empty context
func NewTable() *Table {
	return &Table{
		elems: [][]Element{nil},
		index: map[string]ContextID{"": Empty},
	}
}

func key(elems []Element) string {
	var b strings.Builder
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(e)))
	}
	return b.String()
}

// Intern returns the identifier of the context made of elems, allocating a new one on first use. The table keeps
// its own copy of elems.
func (t *Table) Intern(elems []Element) (ContextID, error) {
	k := key(elems)
	t.mu.RLock()
	id, ok := t.index[k]
	t.mu.RUnlock()
	if !ok {
		t.mu.Lock()
		id, ok = t.index[k]
		if !ok {
			id = ContextID(len(t.elems))
			t.elems = append(t.elems, slices.Clone(elems))
			t.index[k] = id
		}
		t.mu.Unlock()
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !slices.Equal(t.elems[id], elems) {
		return id, fmt.Errorf("%w: %v and %v share identifier %d", ErrContextCollision, elems, t.elems[id], id)
	}
	return id, nil
}

// Elements returns the elements of the context. The slice must not be modified.
func (t *Table) Elements(id ContextID) []Element {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(t.elems) {
		return nil
	}
	return t.elems[id]
}

// Len returns the number of contexts interned so far, the empty context included
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.elems)
}

// String prints the context as the list of its elements
func (t *Table) String(id ContextID) string {
	return "[" + strings.ReplaceAll(key(t.Elements(id)), ",", " ") + "]"
}

// lastN returns the last n elements of elems
func lastN(elems []Element, n int) []Element {
	if n <= 0 {
		return nil
	}
	if len(elems) <= n {
		return elems
	}
	return elems[len(elems)-n:]
}
