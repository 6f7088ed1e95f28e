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

// Package callgraph contains the identity tables of functions and call sites, the classification of call
// statements into static and dynamic call sites, and the context-sensitive call graph built by the pointer analysis.
//
// A node of the graph is a function analysed in a calling context. An edge goes from a context-qualified call
// site of the caller to a callee node. The graph is an arena: nodes and edges are only added, never removed, and
// are referred to by their index.
package callgraph
