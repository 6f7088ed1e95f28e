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

/*
Package pta implements a context-sensitive, flow-insensitive, Andersen-style points-to analysis that builds the call
graph of an [ir.Program] on the fly.

The analysis state is a [Store] mapping context-qualified locations (locals in a context, fields of abstract
objects, static fields, globals and application storage properties) to sets of abstract object tokens. A [Solver] processes work items, each one a
statement of a function in a calling context, and applies the propagation rule of the statement:

  - allocations create a token for the allocation site and the heap context of the function,
  - copies, loads and stores union points-to sets,
  - calls derive the callee context with the configured [contexts.Policy], add the call edge, pass arguments
    and receivers to the callee and propagate returned values back.

Dynamic calls are resolved by the [Resolver] from the current points-to sets of their receiver or target. Whenever
a set grows, the statements that read it are scheduled again. Sets only grow and the domain is finite, so the
solver reaches a fixpoint.

Constructs the analysis cannot model produce the [TopToken] and a [Diagnostic] instead of failing the run.

Use [Analyze] for a one-shot run, or [NewSolver] when the run must be resumed after a budget or a cancellation
stopped it.
*/
package pta
