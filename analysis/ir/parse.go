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
	"regexp"
	"strings"
)

var (
	identRegex  = regexp.MustCompile(`^[A-Za-z_$%][A-Za-z0-9_$%]*$`)
	numberRegex = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
	literals    = map[string]bool{"true": true, "false": true, "null": true, "undefined": true}
	binaryOps   = []string{" && ", " || ", " === ", " !== ", " == ", " != ", " <= ", " >= ", " < ", " > ", " + ",
		" - ", " * ", " / ", " % "}
)

// stmtParser parses the one-line statements of a function body
type stmtParser struct {
	prog *Program
	fn   *Function
}

// parseStmt parses text and appends the statement to the body of the function
func (p *stmtParser) parseStmt(text string) error {
	text = strings.TrimSpace(text)
	if text == "return" {
		p.fn.Emit(&ReturnStmt{})
		return nil
	}
	if strings.HasPrefix(text, "return ") {
		v, err := p.parseValue(strings.TrimSpace(text[len("return "):]))
		if err != nil {
			return err
		}
		p.fn.Emit(&ReturnStmt{Result: v})
		return nil
	}
	if i := assignIndex(text); i > 0 {
		left, err := p.parseLValue(strings.TrimSpace(text[:i]))
		if err != nil {
			return err
		}
		right, err := p.parseRValue(strings.TrimSpace(text[i+1:]))
		if err != nil {
			return err
		}
		p.fn.Emit(&AssignStmt{Left: left, Right: right})
		return nil
	}
	inv, err := p.parseInvoke(text)
	if err != nil {
		return err
	}
	if inv == nil {
		return fmt.Errorf("%q is neither an assignment, a call nor a return", text)
	}
	p.fn.Emit(&InvokeStmt{Call: inv})
	return nil
}

// assignIndex returns the index of the assignment operator of the statement, or -1
func assignIndex(text string) int {
	depth := 0
	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"':
			inString = !inString
		case inString:
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == '=' && depth == 0:
			if i+1 < len(text) && text[i+1] == '=' {
				return -1
			}
			if i > 0 && strings.ContainsRune("=!<>", rune(text[i-1])) {
				return -1
			}
			return i
		}
	}
	return -1
}

func (p *stmtParser) parseLValue(text string) (Value, error) {
	v, err := p.parseValue(text)
	if err != nil {
		return nil, err
	}
	switch v.(type) {
	case *Local, *FieldRef, *ArrayRef, *StaticFieldRef, *GlobalRef:
		return v, nil
	default:
		return nil, fmt.Errorf("%q cannot be assigned", text)
	}
}

func (p *stmtParser) parseRValue(text string) (Value, error) {
	switch {
	case text == "[]":
		return &NewArrayExpr{}, nil
	case strings.HasPrefix(text, "new "):
		name := strings.TrimSpace(text[len("new "):])
		c := p.prog.Class(name)
		if c == nil {
			c = p.prog.ContainerClass(name)
		}
		if c == nil {
			return nil, fmt.Errorf("unknown class %s", name)
		}
		return &NewExpr{Class: c}, nil
	case strings.HasPrefix(text, "cast "):
		x, err := p.parseValue(strings.TrimSpace(text[len("cast "):]))
		if err != nil {
			return nil, err
		}
		return &Cast{X: x}, nil
	}
	for _, op := range binaryOps {
		if i := topLevelIndex(text, op); i > 0 {
			l, err := p.parseValue(strings.TrimSpace(text[:i]))
			if err != nil {
				return nil, err
			}
			r, err := p.parseValue(strings.TrimSpace(text[i+len(op):]))
			if err != nil {
				return nil, err
			}
			return &OpExpr{Op: strings.TrimSpace(op), Operands: []Value{l, r}}, nil
		}
	}
	inv, err := p.parseInvoke(text)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		return inv, nil
	}
	return p.parseValue(text)
}

// parseValue parses an atom: a literal, a function reference, a global, a static field, an element, a field or a
// local
func (p *stmtParser) parseValue(text string) (Value, error) {
	switch {
	case text == "":
		return nil, fmt.Errorf("empty operand")
	case literals[text] || numberRegex.MatchString(text):
		return &Const{Text: text}, nil
	case len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"':
		return &Const{Text: text}, nil
	case text[0] == '&':
		f := p.prog.Function(text[1:])
		if f == nil {
			return nil, fmt.Errorf("unknown function %s", text[1:])
		}
		return &FuncRef{Func: f}, nil
	case text[0] == '@':
		if !identRegex.MatchString(text[1:]) {
			return nil, fmt.Errorf("invalid global %q", text)
		}
		return &GlobalRef{Name: text[1:]}, nil
	case strings.Contains(text, "::"):
		parts := strings.SplitN(text, "::", 2)
		c := p.prog.Class(parts[0])
		if c == nil {
			return nil, fmt.Errorf("unknown class %s", parts[0])
		}
		return &StaticFieldRef{Class: c, Field: parts[1]}, nil
	case strings.HasSuffix(text, "]"):
		open := strings.Index(text, "[")
		if open <= 0 {
			return nil, fmt.Errorf("invalid element reference %q", text)
		}
		base, err := p.local(text[:open])
		if err != nil {
			return nil, err
		}
		var index Value
		if inner := strings.TrimSpace(text[open+1 : len(text)-1]); inner != "" {
			if index, err = p.parseValue(inner); err != nil {
				return nil, err
			}
		}
		return &ArrayRef{Base: base, Index: index}, nil
	case strings.Contains(text, "."):
		i := strings.LastIndex(text, ".")
		base, err := p.local(text[:i])
		if err != nil {
			return nil, err
		}
		if !identRegex.MatchString(text[i+1:]) {
			return nil, fmt.Errorf("invalid field name in %q", text)
		}
		return &FieldRef{Base: base, Field: text[i+1:]}, nil
	default:
		return p.local(text)
	}
}

func (p *stmtParser) local(name string) (*Local, error) {
	if !identRegex.MatchString(name) {
		return nil, fmt.Errorf("invalid local name %q", name)
	}
	return p.fn.Local(name), nil
}

// parseInvoke parses a call expression. Returns nil, nil when text is not a call.
func (p *stmtParser) parseInvoke(text string) (Invoke, error) {
	if !strings.HasSuffix(text, ")") {
		return nil, nil
	}
	open := matchingOpen(text, len(text)-1)
	if open <= 0 {
		return nil, nil
	}
	head := strings.TrimSpace(text[:open])
	args, spread, err := p.parseArgs(text[open+1 : len(text)-1])
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(head, "call "):
		name := strings.TrimSpace(head[len("call "):])
		f := p.prog.Function(name)
		if f == nil {
			f = p.prog.StorageFunction(name)
		}
		if f == nil {
			return nil, fmt.Errorf("unknown function %s", name)
		}
		return &StaticInvoke{Callee: f, Args: args, HasSpread: spread}, nil
	case strings.HasPrefix(head, "(") && strings.HasSuffix(head, ")"):
		target, err := p.parseValue(strings.TrimSpace(head[1 : len(head)-1]))
		if err != nil {
			return nil, err
		}
		return &PtrInvoke{Target: target, Args: args, HasSpread: spread}, nil
	case strings.Contains(head, "."):
		i := strings.LastIndex(head, ".")
		base, err := p.local(head[:i])
		if err != nil {
			return nil, err
		}
		if !identRegex.MatchString(head[i+1:]) {
			return nil, fmt.Errorf("invalid method name in %q", text)
		}
		return &InstanceInvoke{Base: base, Method: head[i+1:], Args: args, HasSpread: spread}, nil
	case identRegex.MatchString(head):
		return &PtrInvoke{Target: p.fn.Local(head), Args: args, HasSpread: spread}, nil
	default:
		return nil, nil
	}
}

func (p *stmtParser) parseArgs(text string) ([]Value, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false, nil
	}
	var args []Value
	spread := false
	for _, a := range splitTopLevel(text, ',') {
		a = strings.TrimSpace(a)
		if strings.HasPrefix(a, "...") {
			spread = true
			a = a[3:]
		}
		v, err := p.parseValue(a)
		if err != nil {
			return nil, false, err
		}
		args = append(args, v)
	}
	return args, spread, nil
}

// matchingOpen returns the index of the parenthesis opening the one at index end
func matchingOpen(text string, end int) int {
	depth := 0
	for i := end; i >= 0; i-- {
		switch text[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func topLevelIndex(text string, sep string) int {
	depth := 0
	for i := 0; i+len(sep) <= len(text); i++ {
		switch text[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		}
		if depth == 0 && text[i:i+len(sep)] == sep {
			return i
		}
	}
	return -1
}

func splitTopLevel(text string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, text[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, text[start:])
}
