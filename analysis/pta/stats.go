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
	"sync/atomic"
	"time"

	"github.com/awslabs/ar-pta/analysis/config"
)

// Stats are counters describing a run
type Stats struct {
	Functions        int
	ReachedFunctions int
	Nodes            int
	Edges            int
	StaticEdges      int
	DynamicEdges     int
	Contexts         int
	Tokens           int
	Locations        int
	CallSites        int
	Iterations       int
	Diagnostics      int
	Duration         time.Duration
}

func (sh *sharedState) stats(elapsed time.Duration) Stats {
	sh.diagMu.Lock()
	numDiags := len(sh.diagnostics)
	sh.diagMu.Unlock()
	return Stats{
		Functions:        sh.funcs.Len(),
		ReachedFunctions: len(sh.graph.ReachedFuncs()),
		Nodes:            sh.graph.NumNodes(),
		Edges:            sh.graph.NumEdges(),
		StaticEdges:      int(atomic.LoadInt64(&sh.staticEdges)),
		DynamicEdges:     int(atomic.LoadInt64(&sh.dynamicEdges)),
		Contexts:         sh.contexts.Len(),
		Tokens:           sh.store.NumTokens(),
		Locations:        sh.store.NumLocations(),
		CallSites:        sh.sites.Len(),
		Iterations:       int(atomic.LoadInt64(&sh.iterations)),
		Diagnostics:      numDiags,
		Duration:         elapsed,
	}
}

func (s Stats) log(logger *config.LogGroup) {
	logger.Infof("Reached %d of %d functions in %d contexts: %d nodes, %d edges (%d static, %d dynamic)",
		s.ReachedFunctions, s.Functions, s.Contexts, s.Nodes, s.Edges, s.StaticEdges, s.DynamicEdges)
	logger.Infof("%d tokens, %d locations, %d call sites, %d work items, %d diagnostics",
		s.Tokens, s.Locations, s.CallSites, s.Iterations, s.Diagnostics)
}
