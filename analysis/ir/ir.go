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

package ir

import (
	"fmt"
	"sort"
	"strings"
)

// ReturnLocalName is the name of the synthetic local holding the values returned by a function
const ReturnLocalName = "%ret"

// ThisLocalName is the name of the local bound to the receiver of a call
const ThisLocalName = "this"

// ContainerKind distinguishes the builtin collection classes whose contents are modelled by one element location
type ContainerKind int

const (
	// NotContainer is the kind of ordinary classes
	NotContainer ContainerKind = iota
	// ArrayContainer is the kind of Array
	ArrayContainer
	// SetContainer is the kind of Set and WeakSet
	SetContainer
	// MapContainer is the kind of Map and WeakMap
	MapContainer
)

func (k ContainerKind) String() string {
	switch k {
	case ArrayContainer:
		return "array"
	case SetContainer:
		return "set"
	case MapContainer:
		return "map"
	default:
		return ""
	}
}

// builtinContainers are the classes the loader creates when the program references them without declaring them
var builtinContainers = map[string]ContainerKind{
	"Array":   ArrayContainer,
	"Set":     SetContainer,
	"WeakSet": SetContainer,
	"Map":     MapContainer,
	"WeakMap": MapContainer,
}

// A Program is a whole program handed to the analysis
type Program struct {
	// Name identifies the program in logs and reports
	Name string

	// Functions lists every function, in declaration order
	Functions []*Function

	// Classes lists every class, in declaration order
	Classes []*Class

	// Entries are the entry points declared by the program
	Entries []*Function

	// Initializers are the module bodies that export locals, in declaration order. They run when the program
	// loads, so the analysis treats them as additional roots.
	Initializers []*Function

	funcs   map[string]*Function
	classes map[string]*Class
}

// NewProgram returns an empty program
func NewProgram(name string) *Program {
	return &Program{
		Name:    name,
		funcs:   map[string]*Function{},
		classes: map[string]*Class{},
	}
}

// NewClass declares a class. Returns an error if a class with the same name exists.
func (p *Program) NewClass(name string, super *Class) (*Class, error) {
	if _, ok := p.classes[name]; ok {
		return nil, fmt.Errorf("class %s declared twice", name)
	}
	c := &Class{Name: name, Super: super, Methods: map[string]*Function{}, Container: builtinContainers[name]}
	p.classes[name] = c
	p.Classes = append(p.Classes, c)
	return c, nil
}

// Class returns the class with the given name, or nil
func (p *Program) Class(name string) *Class {
	return p.classes[name]
}

// ContainerClass returns the builtin container class with the given name, declaring it on first use.
// Returns nil if name is not a builtin container.
func (p *Program) ContainerClass(name string) *Class {
	if c := p.classes[name]; c != nil {
		return c
	}
	if _, ok := builtinContainers[name]; !ok {
		return nil
	}
	c, _ := p.NewClass(name, nil)
	return c
}

// StorageClassName is the class of the application-wide storage. Programs call its static methods without declaring
// them.
const StorageClassName = "AppStorage"

// storageMethods are the static methods of the application storage the analysis models
var storageMethods = map[string]bool{"setOrCreate": true, "link": true, "prop": true, "set": true, "get": true}

// StorageFunction returns the external function named AppStorage.method, declaring it and its class on first use.
// Returns nil if name is not a storage method.
func (p *Program) StorageFunction(name string) *Function {
	if f := p.funcs[name]; f != nil {
		return f
	}
	class, method, ok := strings.Cut(name, ".")
	if !ok || class != StorageClassName || !storageMethods[method] {
		return nil
	}
	c := p.classes[StorageClassName]
	if c == nil {
		c, _ = p.NewClass(StorageClassName, nil)
	}
	f, _ := p.NewFunction(name)
	f.Class = c
	f.Static = true
	f.External = true
	c.Methods[method] = f
	return f
}

// StorageMethod returns the name of the storage method f models, or the empty string when f is not one
func (f *Function) StorageMethod() string {
	if !f.External || !f.Static || f.Class == nil || f.Class.Name != StorageClassName {
		return ""
	}
	method := strings.TrimPrefix(f.Name, StorageClassName+".")
	if !storageMethods[method] {
		return ""
	}
	return method
}

// NewFunction declares a function. Returns an error if a function with the same name exists.
func (p *Program) NewFunction(name string) (*Function, error) {
	if _, ok := p.funcs[name]; ok {
		return nil, fmt.Errorf("function %s declared twice", name)
	}
	f := &Function{Name: name, locals: map[string]*Local{}}
	p.funcs[name] = f
	p.Functions = append(p.Functions, f)
	return f, nil
}

// Alias makes name refer to f. Overloaded declarations sharing one body are aliases of the same function.
func (p *Program) Alias(name string, f *Function) error {
	if g, ok := p.funcs[name]; ok && g != f {
		return fmt.Errorf("alias %s already names function %s", name, g.Name)
	}
	p.funcs[name] = f
	return nil
}

// Function returns the function with the given name or alias, or nil
func (p *Program) Function(name string) *Function {
	return p.funcs[name]
}

// A Class is a class declaration. Methods maps member names to their implementation in this class only.
type Class struct {
	Name      string
	Super     *Class
	Methods   map[string]*Function
	Container ContainerKind
}

// LookupMethod returns the implementation of the member name, searching the super chain.
// Returns nil if no class of the chain declares it.
func (c *Class) LookupMethod(name string) *Function {
	seen := map[*Class]bool{}
	for cur := c; cur != nil && !seen[cur]; cur = cur.Super {
		seen[cur] = true
		if m, ok := cur.Methods[name]; ok {
			return m
		}
	}
	return nil
}

// ContainerKind returns the container kind of the class or of its closest container ancestor
func (c *Class) ContainerKind() ContainerKind {
	seen := map[*Class]bool{}
	for cur := c; cur != nil && !seen[cur]; cur = cur.Super {
		seen[cur] = true
		if cur.Container != NotContainer {
			return cur.Container
		}
	}
	return NotContainer
}

func (c *Class) String() string {
	if c == nil {
		return "<nil class>"
	}
	return c.Name
}

// A Local is a variable of a function. Locals with Primitive set hold numbers, booleans or strings and are not
// tracked by the analysis.
type Local struct {
	Name      string
	Primitive bool
	Func      *Function
}

func (l *Local) isValue() {}

func (l *Local) String() string { return l.Name }

// A Capture binds a local of a closure to the local of the enclosing function it captures
type Capture struct {
	Inner *Local
	Outer *Local
}

// ExportName returns the global through which the export name of module is shared with its importers
func ExportName(module string, name string) string {
	return module + "." + name
}

// An Export makes the local of a module body visible to other modules under Name
type Export struct {
	Local *Local
	Name  string
}

// An Import binds a local to the export Name of Module
type Import struct {
	Local  *Local
	Module string
	Name   string
}

// A Function is a function, method or closure body. Functions declared without a body (SDK functions, ambient
// declarations) have External set.
type Function struct {
	Name   string
	Class  *Class
	Static bool

	// This is the receiver local, nil when the function never refers to this
	This *Local

	Params   []*Local
	Captures []Capture
	Body     []Stmt

	// Module is the module the function belongs to. Exports are only declared by module bodies.
	Module  string
	Exports []Export
	Imports []Import

	// External functions have no body. ReturnClass, if set, is the class of the objects they return.
	External    bool
	ReturnClass *Class

	locals map[string]*Local
	ret    *Local
}

// Local returns the local with the given name, creating it on first use
func (f *Function) Local(name string) *Local {
	if l, ok := f.locals[name]; ok {
		return l
	}
	l := &Local{Name: name, Func: f}
	f.locals[name] = l
	if name == ThisLocalName && f.This == nil {
		f.This = l
	}
	return l
}

// LookupLocal returns the local with the given name, or nil
func (f *Function) LookupLocal(name string) *Local {
	return f.locals[name]
}

// NewParam appends a parameter to the function
func (f *Function) NewParam(name string) *Local {
	l := f.Local(name)
	f.Params = append(f.Params, l)
	return l
}

// Return returns the synthetic local receiving the values of the return statements
func (f *Function) Return() *Local {
	if f.ret == nil {
		f.ret = &Local{Name: ReturnLocalName, Func: f}
	}
	return f.ret
}

// Emit appends the statement to the body of the function
func (f *Function) Emit(s Stmt) {
	s.setPos(f, len(f.Body))
	f.Body = append(f.Body, s)
}

// Locals returns the locals of the function sorted by name
func (f *Function) Locals() []*Local {
	res := make([]*Local, 0, len(f.locals))
	for _, l := range f.locals {
		res = append(res, l)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func (f *Function) String() string { return f.Name }
