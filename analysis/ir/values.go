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
	"strings"
)

// A Value is an operand of a statement
type Value interface {
	isValue()
	String() string
}

// Const is a literal. Constants never point to objects.
type Const struct {
	Text string
}

// FuncRef is a reference to a function used as a value. Evaluating it creates a closure.
type FuncRef struct {
	Func *Function
}

// NewExpr allocates an object of class Class
type NewExpr struct {
	Class *Class
}

// NewArrayExpr allocates an array literal
type NewArrayExpr struct{}

// FieldRef is the property Field of the object Base points to
type FieldRef struct {
	Base  *Local
	Field string
}

// StaticFieldRef is the static field Field of Class
type StaticFieldRef struct {
	Class *Class
	Field string
}

// GlobalRef is a global variable
type GlobalRef struct {
	Name string
}

// ArrayRef is an element of the container Base points to. All elements share one location, so Index is kept for
// printing only.
type ArrayRef struct {
	Base  *Local
	Index Value
}

// Cast is a type conversion. It does not change the points-to set of its operand.
type Cast struct {
	X Value
}

// OpExpr is a primitive operation (arithmetic, comparison, ...). Its result is never a reference.
type OpExpr struct {
	Op       string
	Operands []Value
}

func (*Const) isValue()          {}
func (*FuncRef) isValue()        {}
func (*NewExpr) isValue()        {}
func (*NewArrayExpr) isValue()   {}
func (*FieldRef) isValue()       {}
func (*StaticFieldRef) isValue() {}
func (*GlobalRef) isValue()      {}
func (*ArrayRef) isValue()       {}
func (*Cast) isValue()           {}
func (*OpExpr) isValue()         {}

func (c *Const) String() string          { return c.Text }
func (r *FuncRef) String() string        { return "&" + r.Func.Name }
func (e *NewExpr) String() string        { return "new " + e.Class.Name }
func (e *NewArrayExpr) String() string   { return "[]" }
func (r *FieldRef) String() string       { return r.Base.Name + "." + r.Field }
func (r *StaticFieldRef) String() string { return r.Class.Name + "::" + r.Field }
func (r *GlobalRef) String() string      { return "@" + r.Name }
func (c *Cast) String() string           { return "cast " + c.X.String() }

func (r *ArrayRef) String() string {
	if r.Index == nil {
		return r.Base.Name + "[]"
	}
	return r.Base.Name + "[" + r.Index.String() + "]"
}

func (e *OpExpr) String() string {
	if len(e.Operands) == 2 {
		return fmt.Sprintf("%s %s %s", e.Operands[0], e.Op, e.Operands[1])
	}
	return fmt.Sprintf("%s(%s)", e.Op, joinValues(e.Operands))
}

// An Invoke is a call expression
type Invoke interface {
	Value
	// Arguments returns the argument operands of the call
	Arguments() []Value
	// Spread returns true when an argument is spread, in which case the actual arguments are unknown
	Spread() bool
}

// StaticInvoke is a call whose callee is fixed by the IR
type StaticInvoke struct {
	Callee    *Function
	Args      []Value
	HasSpread bool
}

// InstanceInvoke calls the member Method of the objects Base points to
type InstanceInvoke struct {
	Base      *Local
	Method    string
	Args      []Value
	HasSpread bool
}

// PtrInvoke calls the functions Target points to. Target is usually a local, a field or an array element.
type PtrInvoke struct {
	Target    Value
	Args      []Value
	HasSpread bool
}

func (*StaticInvoke) isValue()   {}
func (*InstanceInvoke) isValue() {}
func (*PtrInvoke) isValue()      {}

func (i *StaticInvoke) Arguments() []Value   { return i.Args }
func (i *InstanceInvoke) Arguments() []Value { return i.Args }
func (i *PtrInvoke) Arguments() []Value      { return i.Args }

func (i *StaticInvoke) Spread() bool   { return i.HasSpread }
func (i *InstanceInvoke) Spread() bool { return i.HasSpread }
func (i *PtrInvoke) Spread() bool      { return i.HasSpread }

func (i *StaticInvoke) String() string {
	return fmt.Sprintf("call %s(%s)", i.Callee.Name, argString(i.Args, i.HasSpread))
}

func (i *InstanceInvoke) String() string {
	return fmt.Sprintf("%s.%s(%s)", i.Base.Name, i.Method, argString(i.Args, i.HasSpread))
}

func (i *PtrInvoke) String() string {
	if l, ok := i.Target.(*Local); ok {
		return fmt.Sprintf("%s(%s)", l.Name, argString(i.Args, i.HasSpread))
	}
	return fmt.Sprintf("(%s)(%s)", i.Target, argString(i.Args, i.HasSpread))
}

func joinValues(vs []Value) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = v.String()
	}
	return strings.Join(s, ", ")
}

// argString prints the arguments, the last one prefixed by ... when spread
func argString(args []Value, spread bool) string {
	s := joinValues(args)
	if spread && len(args) > 0 {
		last := args[len(args)-1].String()
		s = s[:len(s)-len(last)] + "..." + last
	}
	return s
}

// A Stmt is a statement of a function body
type Stmt interface {
	// Parent returns the function containing the statement
	Parent() *Function
	// Index returns the position of the statement in the body of its parent
	Index() int
	String() string
	setPos(f *Function, index int)
}

type stmtPos struct {
	parent *Function
	index  int
}

func (p *stmtPos) Parent() *Function { return p.parent }
func (p *stmtPos) Index() int        { return p.index }
func (p *stmtPos) setPos(f *Function, index int) {
	p.parent = f
	p.index = index
}

// AssignStmt writes the value of Right into Left. Left is a local, a field, an element, a static field or a global.
// When Right is an Invoke, the statement is a call whose result is assigned.
type AssignStmt struct {
	stmtPos
	Left  Value
	Right Value
}

// InvokeStmt is a call whose result is dropped
type InvokeStmt struct {
	stmtPos
	Call Invoke
}

// ReturnStmt returns Result, which is nil for a bare return
type ReturnStmt struct {
	stmtPos
	Result Value
}

func (s *AssignStmt) String() string { return s.Left.String() + " = " + s.Right.String() }
func (s *InvokeStmt) String() string { return s.Call.String() }

func (s *ReturnStmt) String() string {
	if s.Result == nil {
		return "return"
	}
	return "return " + s.Result.String()
}

// InvokeOf returns the call expression of a statement, or nil if the statement is not a call
func InvokeOf(s Stmt) Invoke {
	switch s := s.(type) {
	case *InvokeStmt:
		return s.Call
	case *AssignStmt:
		if inv, ok := s.Right.(Invoke); ok {
			return inv
		}
	}
	return nil
}

// Location returns a printable position of the statement
func Location(s Stmt) string {
	if s.Parent() == nil {
		return fmt.Sprintf("?:%d", s.Index())
	}
	return fmt.Sprintf("%s:%d", s.Parent().Name, s.Index())
}

// Operands returns every value of the statement, nested values included, in source order
func Operands(s Stmt) []Value {
	var res []Value
	var visit func(v Value)
	visit = func(v Value) {
		if v == nil {
			return
		}
		res = append(res, v)
		switch v := v.(type) {
		case *FieldRef:
			visit(v.Base)
		case *ArrayRef:
			visit(v.Base)
			visit(v.Index)
		case *Cast:
			visit(v.X)
		case *OpExpr:
			for _, o := range v.Operands {
				visit(o)
			}
		case *InstanceInvoke:
			visit(v.Base)
		case *PtrInvoke:
			visit(v.Target)
		}
		if inv, ok := v.(Invoke); ok {
			for _, a := range inv.Arguments() {
				visit(a)
			}
		}
	}
	switch s := s.(type) {
	case *AssignStmt:
		visit(s.Left)
		visit(s.Right)
	case *InvokeStmt:
		visit(s.Call)
	case *ReturnStmt:
		visit(s.Result)
	}
	return res
}
