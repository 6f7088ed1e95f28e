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

package config

const (
	// MaxContextDepth is the largest context depth accepted by the configuration. Contexts are sequences of at most
	// that many elements, which keeps the context domain finite.
	MaxContextDepth = 8

	// DefaultContextDepth is the default k of the call-string and object-sensitive policies
	DefaultContextDepth = 2

	// DefaultHeapContextDepth is the default length of the context attached to allocation tokens
	DefaultHeapContextDepth = 1

	// DefaultCancelCheckInterval is the number of work items processed between two cancellation checks
	DefaultCancelCheckInterval = 1024

	// PolicyCallSite names the k-limited call-string policy
	PolicyCallSite = "callsite"
	// PolicyObject names the k-limited receiver-object policy
	PolicyObject = "object"
	// PolicyInsensitive names the policy that always returns the empty context
	PolicyInsensitive = "insensitive"
)
