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
	"strconv"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/ir"
	"golang.org/x/tools/container/intsets"
)

// functionOps are the members of Function.prototype the analysis models
var functionOps = map[string]bool{"call": true, "apply": true, "bind": true}

// storeKind says which arguments of a container method are stored into the elements
type storeKind int

const (
	storeNone storeKind = iota
	storeAll
	storeSecond
)

// createKind says whether a container method returns a new container, and what fills it
type createKind int

const (
	createNone createKind = iota
	// createFromElems copies the elements of the receiver (and of the arguments, for concat)
	createFromElems
	// createFromCallback fills the new container with the values the callback returns
	createFromCallback
)

// containerOp models a method of Array, Set or Map
type containerOp struct {
	store    storeKind
	load     bool // the result is an element
	self     bool // the result is the receiver
	callback bool // the first argument is called with each element
	create   createKind
}

var containerOps = map[string]containerOp{
	"push":    {store: storeAll},
	"unshift": {store: storeAll},
	"add":     {store: storeAll, self: true},
	"set":     {store: storeSecond, self: true},
	"pop":     {load: true},
	"shift":   {load: true},
	"get":     {load: true},
	"at":      {load: true},
	"values":  {self: true},
	"keys":    {self: true},
	"entries": {self: true},
	"forEach": {callback: true},
	"some":    {callback: true},
	"every":   {callback: true},
	"find":    {callback: true, load: true},
	"filter":  {callback: true, create: createFromElems},
	"map":     {callback: true, create: createFromCallback},
	"slice":   {create: createFromElems},
	"concat":  {create: createFromElems},
}

// applyFunctionBuiltin models f.call(thisArg, ...args), f.apply(thisArg, array) and f.bind(thisArg, ...args)
func (s *Solver) applyFunctionBuiltin(c *callInfo, t dispatchTarget, args callArgs) (*intsets.Sparse, error) {
	var this *intsets.Sparse
	if len(args.args) > 0 {
		this = args.args[0]
	} else if args.rest != nil {
		// spread arguments: the receiver is one of them
		this = args.rest
	}
	switch t.method {
	case "call":
		in := callInput{this: this, callArgs: callArgs{rest: args.rest}}
		if len(args.args) > 1 {
			in.args = args.args[1:]
		}
		return s.callFunctionToken(c, t.fn, in, map[TokenID]bool{})
	case "apply":
		in := callInput{this: this, callArgs: callArgs{rest: args.rest}}
		if len(args.args) > 1 {
			in.rest = s.elementsOf(args.args[1])
		}
		return s.callFunctionToken(c, t.fn, in, map[TokenID]bool{})
	default:
		bound := 0
		if len(args.args) > 1 {
			bound = len(args.args) - 1
		}
		pts, err := s.allocate(c.item, siteKey{stmt: c.site.Stmt, kind: BoundKind}, func(site *AllocSite) {
			site.BoundArgs = bound
		})
		if err != nil {
			return nil, err
		}
		tok := pts.Min()
		s.add(FieldLocation(tok, boundTargetField), singleton(t.fn))
		if this != nil {
			s.add(FieldLocation(tok, boundThisField), this)
		}
		for i := 1; i < len(args.args); i++ {
			s.add(FieldLocation(tok, boundArgField(i-1)), args.args[i])
		}
		if args.rest != nil {
			s.add(FieldLocation(tok, boundRestField), args.rest)
		}
		return pts, nil
	}
}

// applyContainerBuiltin models the methods of Array, Set and Map on the container token t.receiver
func (s *Solver) applyContainerBuiltin(c *callInfo, t dispatchTarget, args callArgs) (*intsets.Sparse, error) {
	op := containerOps[t.method]
	elems := ElemLocation(t.receiver)
	res := &intsets.Sparse{}
	switch op.store {
	case storeAll:
		for _, a := range args.args {
			s.add(elems, a)
		}
		s.add(elems, args.rest)
	case storeSecond:
		if len(args.args) > 1 {
			s.add(elems, args.args[1])
		}
		s.add(elems, args.rest)
	}
	if op.self {
		res.Insert(t.receiver)
	}
	if op.load {
		res.UnionWith(s.read(elems))
	}
	results := &intsets.Sparse{}
	if op.callback && len(args.args) > 0 {
		in := callInput{callArgs: callArgs{args: []*intsets.Sparse{s.read(elems), {}, singleton(t.receiver)}}}
		if len(args.args) > 1 {
			in.this = args.args[1]
		}
		for _, cb := range s.sh.store.Tokens(args.args[0]) {
			if cb.ID == TopToken {
				s.diagnose(UnanalyzableCall, c.site.Stmt, "the callback of %s may be any function", t.method)
				continue
			}
			if !cb.IsFunction() {
				continue
			}
			r, err := s.callFunctionToken(c, cb.ID, in, map[TokenID]bool{})
			if err != nil {
				return nil, err
			}
			results.UnionWith(r)
		}
	}
	if op.create == createNone {
		return res, nil
	}
	pts, err := s.allocate(c.item, siteKey{stmt: c.site.Stmt, kind: ContainerKind}, func(site *AllocSite) {
		site.Container = ir.ArrayContainer
	})
	if err != nil {
		return nil, err
	}
	created := ElemLocation(pts.Min())
	switch op.create {
	case createFromElems:
		s.add(created, s.read(elems))
		if t.method == "concat" {
			for _, a := range args.args {
				for _, o := range s.sh.store.Tokens(a) {
					if o.IsContainer() {
						s.add(created, s.read(ElemLocation(o.ID)))
					} else {
						s.add(created, singleton(o.ID))
					}
				}
			}
		}
	case createFromCallback:
		s.add(created, results)
	}
	res.UnionWith(pts)
	return res, nil
}

// elementsOf returns the union of the elements of the containers in arrays. The unknown token has unknown
// elements.
func (s *Solver) elementsOf(arrays *intsets.Sparse) *intsets.Sparse {
	res := &intsets.Sparse{}
	for _, o := range arrays.AppendTo(nil) {
		if o == TopToken {
			res.Insert(TopToken)
			continue
		}
		res.UnionWith(s.read(ElemLocation(o)))
	}
	return res
}

// applyStorage models the static methods of AppStorage. Each property has one location for the whole program: set
// and setOrCreate store their second argument in it, get, link and prop return its objects, and link also stores
// back the objects later assigned to the local it initializes.
func (s *Solver) applyStorage(c *callInfo, method string, args callArgs) *intsets.Sparse {
	name, known := storageProperty(c.site)
	if !known {
		s.diagnose(UnknownStorageProperty, c.site.Stmt, "the property of %s is not a constant", c.site.Stmt)
		name = AnyStorageProperty
	}
	switch method {
	case "set", "setOrCreate":
		value := args.rest
		if len(args.args) > 1 {
			value = args.args[1]
		}
		s.add(StorageLocation(name), value)
		return &intsets.Sparse{}
	default:
		if !known {
			return singleton(TopToken)
		}
		res := s.read(StorageLocation(name))
		res.UnionWith(s.read(StorageLocation(AnyStorageProperty)))
		if l, ok := c.site.Result.(*ir.Local); ok && method == "link" && !l.Primitive {
			s.add(StorageLocation(name), s.read(LocalLocation(c.item.ctx, l)))
		}
		return res
	}
}

// storageProperty returns the property named by the first argument of a storage call, when it is a string literal
func storageProperty(site *callgraph.CallSite) (string, bool) {
	if site.ArgsUnknown || len(site.Args) == 0 {
		return "", false
	}
	c, ok := site.Args[0].(*ir.Const)
	if !ok {
		return "", false
	}
	name, err := strconv.Unquote(c.Text)
	if err != nil {
		return "", false
	}
	return name, true
}
