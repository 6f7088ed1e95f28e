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

// Package analysistest loads the test programs of the testdata directories and reads the expectations annotated in
// their comments.
package analysistest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/awslabs/ar-pta/analysis/config"
	"github.com/awslabs/ar-pta/analysis/ir"
)

// LoadTest loads the program in the directory dir, looking for a program.yaml and a config.yaml.
func LoadTest(t *testing.T, dir string) (*ir.Program, *config.Config) {
	t.Helper()
	// Load config; in command, should be set using some flag
	config.SetGlobalConfig(filepath.Join(dir, "config.yaml"))
	cfg, err := config.LoadGlobal()
	if err != nil {
		t.Fatalf("error loading global config: %v", err)
	}
	program, err := ir.LoadProgramFile(filepath.Join(dir, "program.yaml"))
	if err != nil {
		t.Fatalf("error loading program: %v", err)
	}
	return program, cfg
}

// Match annotations of the form "# @Calls(f1, f2)" and "# @PointsTo(C1, C2)"
var CallsRegex = regexp.MustCompile(`#.*@Calls\(([^)]*)\)`)
var PointsToRegex = regexp.MustCompile(`#.*@PointsTo\(([^)]*)\)`)

var (
	topKeyRegex   = regexp.MustCompile(`^([A-Za-z_-]+):`)
	funcNameRegex = regexp.MustCompile(`^\s*- name:\s*"?([^"#\s]+)"?`)
	keyRegex      = regexp.MustCompile(`^\s*([A-Za-z_-]+):`)
	itemRegex     = regexp.MustCompile(`^\s*- `)
)

// SPos is the position of a statement: the name of its function and its index in the body
type SPos struct {
	Func  string
	Index int
}

func (p SPos) String() string {
	return fmt.Sprintf("%s:%d", p.Func, p.Index)
}

// Expectations are the annotations of a program file. Calls maps call statements to the names of the functions
// they must call. PointsTo maps assignments to the classes the assigned local must point to.
type Expectations struct {
	Calls    map[SPos][]string
	PointsTo map[SPos][]string
}

// GetExpectations reads the annotations in the comments of the statements of the program file
func GetExpectations(filename string) (Expectations, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Expectations{}, err
	}
	defer f.Close()

	exp := Expectations{Calls: map[SPos][]string{}, PointsTo: map[SPos][]string{}}
	section, fn := "", ""
	inBody := false
	index := -1
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if m := topKeyRegex.FindStringSubmatch(line); m != nil {
			section, fn, inBody = m[1], "", false
			continue
		}
		if section != "functions" {
			continue
		}
		if m := funcNameRegex.FindStringSubmatch(line); m != nil {
			fn, inBody, index = m[1], false, -1
			continue
		}
		if m := keyRegex.FindStringSubmatch(line); m != nil {
			inBody = m[1] == "body"
			continue
		}
		if !inBody || !itemRegex.MatchString(line) {
			continue
		}
		index++
		pos := SPos{Func: fn, Index: index}
		if a := CallsRegex.FindStringSubmatch(line); len(a) > 1 {
			exp.Calls[pos] = splitNames(a[1])
		}
		if a := PointsToRegex.FindStringSubmatch(line); len(a) > 1 {
			exp.PointsTo[pos] = splitNames(a[1])
		}
	}
	return exp, scanner.Err()
}

func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
