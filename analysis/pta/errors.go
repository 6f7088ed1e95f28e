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
	"errors"
	"fmt"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/contexts"
	"github.com/awslabs/ar-pta/analysis/ir"
)

var (
	// ErrMissingEntryPoint is returned before the analysis starts when an entry point cannot be found
	ErrMissingEntryPoint = errors.New("missing entry point")

	// ErrInvariant is returned when the analysis reaches a state that should be impossible. The error names the
	// function, context and statement being processed.
	ErrInvariant = errors.New("analysis invariant violated")

	// ErrBudgetExhausted is returned when the iteration budget stopped the solver. The result returned with it is
	// valid but incomplete, and the solver can be resumed.
	ErrBudgetExhausted = errors.New("iteration budget exhausted")
)

// DiagnosticKind classifies the constructs the analysis approximates with the unknown token
type DiagnosticKind int

const (
	// UnanalyzableCall is a call whose target cannot hold a tracked function, or whose receiver is unknown
	UnanalyzableCall DiagnosticKind = iota
	// UnknownArguments is a call with a spread argument, whose parameters all receive the unknown token
	UnknownArguments
	// UnknownValue is an operand the analysis does not model
	UnknownValue
	// StoreThroughUnknown is a store whose base may be any object
	StoreThroughUnknown
	// UnknownStorageProperty is an access to the application storage whose property name is not a constant
	UnknownStorageProperty
)

func (k DiagnosticKind) String() string {
	switch k {
	case UnanalyzableCall:
		return "unanalyzable-call"
	case UnknownArguments:
		return "unknown-arguments"
	case UnknownValue:
		return "unknown-value"
	case StoreThroughUnknown:
		return "store-through-unknown"
	case UnknownStorageProperty:
		return "unknown-storage-property"
	default:
		return "unknown"
	}
}

// A Diagnostic records a construct the analysis approximated
type Diagnostic struct {
	Kind    DiagnosticKind
	Func    callgraph.FuncID
	Context contexts.ContextID
	Stmt    ir.Stmt
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at %s: %s", d.Kind, ir.Location(d.Stmt), d.Message)
}

// invariantError wraps ErrInvariant with the position of the work item being processed
func invariantError(funcs *callgraph.FuncTable, item workItem, format string, args ...any) error {
	return fmt.Errorf("%w: %s in context %d, statement %d: %s", ErrInvariant, funcs.Name(item.fn), item.ctx,
		item.stmt, fmt.Sprintf(format, args...))
}
