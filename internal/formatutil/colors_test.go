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

package formatutil

import "testing"

func TestColor(t *testing.T) {
	SetColors(false)
	if s := Red("a", 1); s != "a1" {
		t.Errorf("without colors, expected a1, got %q", s)
	}
	SetColors(true)
	defer SetColors(false)
	if s := Red("a"); s != "\033[1;31ma\033[0m" {
		t.Errorf("with colors, got %q", s)
	}
}

func TestSanitize(t *testing.T) {
	if s := Sanitize("a\033[1mb\n"); s != `a\x1b[1mb\n` {
		t.Errorf("unexpected sanitized string %q", s)
	}
}

func TestTable(t *testing.T) {
	got := Table([][]string{{"name", "value"}, {"functions", "3"}, {"contexts", "12"}})
	want := "name       value\n" +
		"functions  3\n" +
		"contexts   12\n"
	if got != want {
		t.Errorf("expected\n%s\ngot\n%s", want, got)
	}
}
