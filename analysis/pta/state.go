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
	"fmt"
	"sync"
	"time"

	"github.com/awslabs/ar-pta/analysis/config"
	"github.com/awslabs/ar-pta/analysis/ir"
)

// AnalyzerState holds the information that is shared by the clients of the pointer analysis: the program, its
// configuration and logger, the result of the analysis once it has run, and the errors collected along the way.
type AnalyzerState struct {
	// Logger is the logger for the analysis
	Logger *config.LogGroup

	// Config is the configuration of the analysis
	Config *config.Config

	// Program is the program analyzed
	Program *ir.Program

	// Result is the result of the last pointer analysis run. It is nil until RunPointerAnalysis has been called.
	Result *Result

	// errors contains the errors encountered by the analyses, by key
	errors     map[string][]error
	errorMutex sync.Mutex
}

// NewAnalyzerState returns a state for the program. The config is validated before it is used.
func NewAnalyzerState(p *ir.Program, l *config.LogGroup, c *config.Config) (*AnalyzerState, error) {
	if p == nil {
		return nil, fmt.Errorf("analyzer state needs a program")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	l.Infof("Loaded program %s: %d functions, %d classes, %d entry points",
		p.Name, len(p.Functions), len(p.Classes), len(p.Entries))
	return &AnalyzerState{
		Logger:  l,
		Config:  c,
		Program: p,
		errors:  map[string][]error{},
	}, nil
}

// RunPointerAnalysis runs the pointer analysis and stores its result in the state. A run stopped by the budget or by
// ctx still stores its partial result, and the error is recorded under the key "pointer".
func (s *AnalyzerState) RunPointerAnalysis(ctx context.Context) error {
	s.Logger.Infof("Gathering values and starting pointer analysis...")
	start := time.Now()
	res, err := Analyze(ctx, s.Program, s.Config, s.Logger)
	if res != nil {
		s.Result = res
	}
	if err != nil {
		s.AddError("pointer", err)
		if res == nil || errors.Is(err, ErrInvariant) {
			return err
		}
	}
	s.Logger.Infof("Pointer analysis state computed (%.2f s)", time.Since(start).Seconds())
	return err
}

// AddError adds an error with key and error e to the state.
func (s *AnalyzerState) AddError(key string, e error) {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	if e != nil {
		s.errors[key] = append(s.errors[key], e)
	}
}

// CheckError checks whether there is an error in the state, and if there is, returns the errors of one key and
// deletes them.
func (s *AnalyzerState) CheckError() []error {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	for e, errs := range s.errors {
		delete(s.errors, e)
		return errs
	}
	return nil
}

// HasErrors returns true if the state has an error. Unlike [*AnalyzerState.CheckError], this is non-destructive.
func (s *AnalyzerState) HasErrors() bool {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	for _, errs := range s.errors {
		if len(errs) > 0 {
			return true
		}
	}
	return false
}
