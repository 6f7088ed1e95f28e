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
	"fmt"

	"github.com/awslabs/ar-pta/analysis/contexts"
	"github.com/awslabs/ar-pta/analysis/ir"
)

// TokenID identifies an abstract object
type TokenID = int

const (
	// TopToken stands for any object. Values the analysis cannot model point to it.
	TopToken TokenID = 0
	// GlobalThisToken is the object bound to the global globalThis
	GlobalThisToken TokenID = 1
)

// globalThisName is the name of the global bound to GlobalThisToken
const globalThisName = "globalThis"

// TokenKind is the kind of the allocation site of a token
type TokenKind int

const (
	// TopKind is the kind of TopToken only
	TopKind TokenKind = iota
	// ObjectKind tokens are allocated by new expressions of ordinary classes
	ObjectKind
	// ContainerKind tokens are arrays, sets and maps; their contents are one element location
	ContainerKind
	// ClosureKind tokens are function values. Their context is the context they were created in.
	ClosureKind
	// BoundKind tokens are the result of Function.bind. Their target, this and arguments are stored in fields.
	BoundKind
	// ExternalKind tokens are the objects returned by functions without body
	ExternalKind
	// GlobalKind is the kind of GlobalThisToken
	GlobalKind
)

func (k TokenKind) String() string {
	switch k {
	case TopKind:
		return "top"
	case ObjectKind:
		return "object"
	case ContainerKind:
		return "container"
	case ClosureKind:
		return "closure"
	case BoundKind:
		return "bound"
	case ExternalKind:
		return "external"
	case GlobalKind:
		return "global"
	default:
		return "?"
	}
}

// AllocSiteID identifies an allocation site
type AllocSiteID int

// An AllocSite is a program point creating tokens. The set of allocation sites of a program is finite.
type AllocSite struct {
	ID        AllocSiteID
	Kind      TokenKind
	Stmt      ir.Stmt
	Class     *ir.Class
	Container ir.ContainerKind

	// Func is the function of a closure
	Func *ir.Function

	// BoundArgs is the number of arguments bound by a bind call
	BoundArgs int
}

// A Token is an abstract object: an allocation site qualified by a context
type Token struct {
	ID      TokenID
	Site    *AllocSite
	Context contexts.ContextID
}

// Kind returns the kind of the token
func (t *Token) Kind() TokenKind { return t.Site.Kind }

// IsFunction returns true for tokens that can be called
func (t *Token) IsFunction() bool {
	return t.Site.Kind == ClosureKind || t.Site.Kind == BoundKind
}

// IsContainer returns true for arrays, sets and maps
func (t *Token) IsContainer() bool {
	return t.Site.Container != ir.NotContainer
}

func (t *Token) String() string {
	var what string
	switch t.Site.Kind {
	case TopKind:
		return "top"
	case GlobalKind:
		return globalThisName
	case ClosureKind:
		what = "closure " + t.Site.Func.Name
	case BoundKind:
		what = "bound"
	case ContainerKind:
		if t.Site.Class != nil {
			what = "new " + t.Site.Class.Name
		} else {
			what = "[]"
		}
	case ExternalKind:
		what = "ret " + t.Site.Class.Name
	default:
		what = "new " + t.Site.Class.Name
	}
	if t.Site.Stmt != nil {
		what += " @" + ir.Location(t.Site.Stmt)
	}
	return fmt.Sprintf("%s#%d", what, t.Context)
}

// siteKey identifies an allocation site. The value distinguishes several allocations in one statement; tokens
// created by builtins use the statement, the kind and the class only.
type siteKey struct {
	stmt  ir.Stmt
	value ir.Value
	kind  TokenKind
	class *ir.Class
}

type tokenKey struct {
	site AllocSiteID
	ctx  contexts.ContextID
}
