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
	"path/filepath"
	"testing"

	"github.com/awslabs/ar-pta/analysis/ir"
	"github.com/awslabs/ar-pta/internal/analysistest"
	"golang.org/x/exp/slices"
)

func TestAnnotatedPrograms(t *testing.T) {
	for _, name := range []string{"dispatch", "objects", "closures", "modules"} {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join("../../testdata/src/pointer", name)
			p, cfg := analysistest.LoadTest(t, dir)
			exp, err := analysistest.GetExpectations(filepath.Join(dir, "program.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			if len(exp.Calls) == 0 || len(exp.PointsTo) == 0 {
				t.Fatalf("no annotation found in %s", dir)
			}
			res := analyze(t, p, cfg)
			for pos, want := range exp.Calls {
				slices.Sort(want)
				got := res.CalleeNamesAt(stmtOf(t, p, pos.Func, pos.Index))
				if !slices.Equal(got, want) {
					t.Errorf("%s: calls %v, expected %v", pos, got, want)
				}
			}
			for pos, want := range exp.PointsTo {
				assign, ok := stmtOf(t, p, pos.Func, pos.Index).(*ir.AssignStmt)
				if !ok {
					t.Fatalf("%s: @PointsTo must annotate an assignment", pos)
				}
				l, ok := assign.Left.(*ir.Local)
				if !ok {
					t.Fatalf("%s: @PointsTo must annotate an assignment to a local", pos)
				}
				slices.Sort(want)
				if got := classesOf(res.PointsToAnyContext(l)); !slices.Equal(got, want) {
					t.Errorf("%s: %s points to %v, expected %v", pos, l.Name, got, want)
				}
			}
		})
	}
}
