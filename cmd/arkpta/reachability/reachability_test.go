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

package reachability

import (
	"bytes"
	"context"
	"testing"
)

func runWith(t *testing.T, args ...string) string {
	flags, err := NewFlags(append([]string{"-config", "../testdata/config.yaml"}, append(args,
		"../testdata/shapes.yaml")...))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run(context.Background(), &out, flags); err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func TestReachableFunctions(t *testing.T) {
	if s := runWith(t); s != "Circle.area\nShape.area\nmain\nwalk\n" {
		t.Errorf("unexpected reachable functions\n%s", s)
	}
	if s := runWith(t, "-json"); s != "[\"Circle.area\",\"Shape.area\",\"main\",\"walk\"]\n" {
		t.Errorf("unexpected json output %s", s)
	}
}

func TestCycles(t *testing.T) {
	if s := runWith(t, "-cycles"); s != "walk -> walk\n" {
		t.Errorf("expected the self-loop of walk, got\n%s", s)
	}
}

func TestPath(t *testing.T) {
	if s := runWith(t, "-from", "main", "-to", "walk"); s != "main -> Circle.area -> walk\n" {
		t.Errorf("unexpected path %s", s)
	}
	if s := runWith(t, "-from", "walk", "-to", "main"); s != "walk does not reach main\n" {
		t.Errorf("unexpected path %s", s)
	}
	if _, err := NewFlags([]string{"-from", "main", "../testdata/shapes.yaml"}); err == nil {
		t.Errorf("-from without -to should be rejected")
	}
}
