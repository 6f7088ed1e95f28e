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
Package config provides a simple way to manage configuration files.

Use [Load](filename) to load a configuration from a specific filename, or [LoadFromBytes] when the content is already
in memory.

Use [SetGlobalConfig](filename) to set filename as the global config, and then [LoadGlobal]() to load the global config.

A config file should be in yaml format. The top-level fields can be any of the fields defined in the Config
struct type. The other fields are defined by the types of the fields of [Config] and nested struct types.
For example, a valid config file is as follows:

	options:
	  log-level: 4
	  reports-dir: reports
	  report-callgraph: true
	pointer:
	  context-policy: object
	  context-depth: 2
	  heap-context-depth: 1
	  max-iterations: 1000000
	entrypoints:
	  - main

# Precision options

The context policy and its depth decide how many copies of each function the analysis keeps apart. The depth is
capped at [MaxContextDepth]: contexts are finite sequences, which bounds the number of call graph nodes and makes
the analysis terminate.
*/
package config
