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
Package ir defines the three-address intermediate representation the pointer analysis consumes.

A front end lowers ArkTS/TypeScript sources into a [Program]: a set of [Class] declarations and [Function] bodies
made of [AssignStmt], [InvokeStmt] and [ReturnStmt]. Operands are locals, constants, field and array references,
static fields, globals, allocations and function references. Calls are one of three [Invoke] shapes:

  - [StaticInvoke]: the callee is fixed by the IR (free functions, static methods, constructors).
  - [InstanceInvoke]: a method call on a receiver local, resolved from the receiver's points-to set.
  - [PtrInvoke]: a call through a value holding a function (a local, a field or an array element).

The IR carries no control flow: the analysis is flow-insensitive, and statements are only grouped by function.

[LoadProgram] reads a YAML rendition of the IR, where each statement is written on one line:

	x = new Dog          allocation
	xs = []              array literal
	f = &Foo.bar         function reference (closure creation)
	y = x                copy
	y = x.f              load          x.f = y      store
	y = xs[i]            element load  xs[0] = y    element store
	y = Dog::count       static field  @g = y       global
	y = cast x           type cast
	n = a + b            primitive operation
	r = call Foo.bar(a)  static call
	r = x.speak(a, b)    method call
	r = f(a)             call through a local
	r = (x.cb)(a)        call through a field or element
	call g(...xs)        call with a spread argument
	return r

Calls to the static methods of AppStorage need no declaration. A function marked with a module may export its
locals, and any function may import them; the loader turns both into copies through a global named after the
module and the export.
*/
package ir
