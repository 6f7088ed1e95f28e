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

package pointsto

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/awslabs/ar-pta/internal/formatutil"
)

func TestRunJSON(t *testing.T) {
	flags, err := NewFlags([]string{"-config", "../testdata/config.yaml", "-local", "main.b", "-local", "walk.s",
		"-json", "../testdata/shapes.yaml"})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run(context.Background(), &out, flags); err != nil {
		t.Fatal(err)
	}
	var sets []LocalPointsTo
	if err := json.Unmarshal(out.Bytes(), &sets); err != nil {
		t.Fatalf("output should be json: %v\n%s", err, out.String())
	}
	if len(sets) < 2 {
		t.Fatalf("expected sets for main.b and walk.s, got %v", sets)
	}
	if sets[0].Local != "main.b" || sets[0].Context != "[]" ||
		len(sets[0].Tokens) != 1 || sets[0].Tokens[0] != "new Circle @main:1#0" {
		t.Errorf("unexpected points-to set of main.b: %+v", sets[0])
	}
	for _, s := range sets[1:] {
		if s.Local != "walk.s" {
			t.Errorf("unexpected local %s", s.Local)
		}
		for _, tok := range s.Tokens {
			if !strings.HasPrefix(tok, "new Circle") {
				t.Errorf("walk.s should only point to circles, got %v", s.Tokens)
			}
		}
	}
}

func TestRunAlias(t *testing.T) {
	formatutil.SetColors(false)
	flags, err := NewFlags([]string{"-config", "../testdata/config.yaml", "-local", "main.a", "-local", "main.b",
		"-local", "main.y", "-alias", "../testdata/shapes.yaml"})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run(context.Background(), &out, flags); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{
		"main.a []: [new Shape @main:0#0]\n",
		"main.a, main.b: may alias false\n",
		"main.b, main.y: may alias true\n",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in\n%s", want, s)
		}
	}
}

func TestRunRejectsUnknownLocal(t *testing.T) {
	for _, name := range []string{"main", "nosuch.x", "main.nosuch"} {
		flags, err := NewFlags([]string{"-local", name, "../testdata/shapes.yaml"})
		if err != nil {
			t.Fatal(err)
		}
		if err := run(context.Background(), &bytes.Buffer{}, flags); err == nil {
			t.Errorf("local %s should be rejected", name)
		}
	}
}

func TestRunField(t *testing.T) {
	formatutil.SetColors(false)
	flags, err := NewFlags([]string{"-config", "../testdata/config.yaml", "-local", "main.b", "-field", "owner",
		"../testdata/shapes.yaml"})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run(context.Background(), &out, flags); err != nil {
		t.Fatal(err)
	}
	want := "main.b []: [new Circle @main:1#0]\n" +
		"  new Circle @main:1#0.owner: [new Shape @main:0#0]\n"
	if s := out.String(); !strings.HasSuffix(s, want) {
		t.Errorf("expected\n%s\ngot\n%s", want, s)
	}

	flags.outputJSON = true
	out.Reset()
	if err := run(context.Background(), &out, flags); err != nil {
		t.Fatal(err)
	}
	var sets []LocalPointsTo
	if err := json.Unmarshal(out.Bytes(), &sets); err != nil {
		t.Fatalf("output should be json: %v\n%s", err, out.String())
	}
	if len(sets) != 1 || len(sets[0].Fields["new Circle @main:1#0"]) != 1 {
		t.Errorf("unexpected field points-to sets %+v", sets)
	}
}

func TestFieldRequiresLocal(t *testing.T) {
	if _, err := NewFlags([]string{"-field", "owner", "../testdata/shapes.yaml"}); err == nil {
		t.Errorf("-field without -local should be rejected")
	}
}
