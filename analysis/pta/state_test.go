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
	"context"
	"errors"
	"testing"
)

func TestAnalyzerState(t *testing.T) {
	c := testConfig()
	p := loadProgram(t, dispatch)
	state, err := NewAnalyzerState(p, testLogger(c), c)
	if err != nil {
		t.Fatalf("failed to create state: %v", err)
	}
	if err := state.RunPointerAnalysis(context.Background()); err != nil {
		t.Fatalf("pointer analysis failed: %v", err)
	}
	if state.Result == nil || !state.Result.Complete {
		t.Fatalf("state should hold a complete result")
	}
	if state.HasErrors() {
		t.Errorf("unexpected errors %v", state.CheckError())
	}
}

func TestAnalyzerStateErrors(t *testing.T) {
	c := testConfig()
	c.Pointer.MaxIterations = 1
	p := loadProgram(t, dispatch)
	state, err := NewAnalyzerState(p, testLogger(c), c)
	if err != nil {
		t.Fatalf("failed to create state: %v", err)
	}
	err = state.RunPointerAnalysis(context.Background())
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected the budget to stop the analysis, got %v", err)
	}
	if state.Result == nil || state.Result.Complete {
		t.Errorf("state should hold the partial result")
	}
	if !state.HasErrors() {
		t.Fatalf("the budget error should be recorded")
	}
	errs := state.CheckError()
	if len(errs) != 1 || !errors.Is(errs[0], ErrBudgetExhausted) {
		t.Errorf("unexpected errors %v", errs)
	}
	if state.HasErrors() {
		t.Errorf("CheckError should remove the errors it returns")
	}
}

func TestAnalyzerStateRejectsBadConfig(t *testing.T) {
	c := testConfig()
	c.Pointer.ContextPolicy = "nope"
	if _, err := NewAnalyzerState(loadProgram(t, dispatch), testLogger(c), c); err == nil {
		t.Errorf("expected an invalid config to be rejected")
	}
	if _, err := NewAnalyzerState(nil, testLogger(c), testConfig()); err == nil {
		t.Errorf("expected a missing program to be rejected")
	}
}
