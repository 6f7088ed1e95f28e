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

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

//go:embed testdata
var testfsys embed.FS

func loadFromTestDir(filename string) (string, *Config, error) {
	filename = filepath.Join("testdata", filename)
	b, err := testfsys.ReadFile(filename)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file %v: %v", filename, err)
	}
	config, err := LoadFromBytes(filename, b)
	if err != nil {
		return filename, nil, fmt.Errorf("failed to load file %v: %v", filename, err)
	}
	return filename, config, err
}

func testLoadOneFile(t *testing.T, filename string, expected Config) {
	configFileName, config, err := loadFromTestDir(filename)
	if err != nil {
		t.Fatalf("Error loading %q: %v", configFileName, err)
	}
	c1, err1 := yaml.Marshal(config)
	c2, err2 := yaml.Marshal(expected)
	if err1 != nil {
		t.Errorf("Error marshalling %v", config)
	}
	if err2 != nil {
		t.Errorf("Error marshalling %v", expected)
	}
	if string(c1) != string(c2) {
		t.Errorf("Error in %q:\n%q is not\n%q\n", filename, c1, c2)
	}
}

func TestNewDefault(t *testing.T) {
	c := NewDefault()
	if c.ReportsDir != "" {
		t.Errorf("Default for ReportsDir should be empty")
	}
	if c.Pointer.ContextPolicy != PolicyCallSite {
		t.Errorf("Default policy should be %s, got %s", PolicyCallSite, c.Pointer.ContextPolicy)
	}
	if c.Pointer.ContextDepth != DefaultContextDepth || c.Pointer.HeapContextDepth != DefaultHeapContextDepth {
		t.Errorf("Unexpected default depths %d/%d", c.Pointer.ContextDepth, c.Pointer.HeapContextDepth)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	if c.ReportsAnything() {
		t.Errorf("Default config should not report anything")
	}
}

func TestLoadFull(t *testing.T) {
	expected := NewDefault()
	expected.LogLevel = int(DebugLevel)
	expected.ReportCallgraph = true
	expected.ReportsDir = "reports"
	expected.Pointer.ContextPolicy = PolicyObject
	expected.Pointer.ContextDepth = 3
	expected.Pointer.HeapContextDepth = 2
	expected.Pointer.MaxIterations = 5000
	expected.Pointer.Workers = 4
	expected.EntryPoints = []string{"main", "Worker.run"}
	testLoadOneFile(t, "config.yaml", *expected)
}

func TestLoadMinimal(t *testing.T) {
	expected := NewDefault()
	expected.EntryPoints = []string{"main"}
	testLoadOneFile(t, "config-minimal.yaml", *expected)
}

func TestLoadInvalid(t *testing.T) {
	for _, tc := range []struct {
		file    string
		message string
	}{
		{"config-bad-depth.yaml", "heap-context-depth"},
		{"config-bad-policy.yaml", "context-policy"},
	} {
		_, _, err := loadFromTestDir(tc.file)
		if err == nil {
			t.Errorf("Loading %s should fail", tc.file)
			continue
		}
		if !strings.Contains(err.Error(), tc.message) {
			t.Errorf("Error for %s should mention %s, got %v", tc.file, tc.message, err)
		}
	}
}

func TestValidateDepthCap(t *testing.T) {
	c := NewDefault()
	c.Pointer.ContextDepth = MaxContextDepth + 1
	if err := c.Validate(); err == nil {
		t.Errorf("Depth above %d should be rejected", MaxContextDepth)
	}
	c.Pointer.ContextDepth = 0
	c.Pointer.HeapContextDepth = 0
	if err := c.Validate(); err != nil {
		t.Errorf("Depth 0 is the insensitive setting and should be accepted: %v", err)
	}
}

func TestRelPath(t *testing.T) {
	c, err := LoadFromBytes("some/dir/config.yaml", []byte("options:\n  log-level: 2\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := c.RelPath("program.yaml"); p != "some/dir/program.yaml" {
		t.Errorf("RelPath returned %s", p)
	}
}

func TestLogGroupLevels(t *testing.T) {
	c := NewDefault()
	c.LogLevel = int(WarnLevel)
	logger := NewLogGroup(c)
	var buf bytes.Buffer
	logger.SetAllOutput(&buf)
	logger.Infof("not printed %d", 1)
	logger.Debugf("not printed %d", 2)
	logger.Warnf("printed %d", 3)
	logger.Errorf("printed %d", 4)
	out := buf.String()
	if strings.Contains(out, "not printed") {
		t.Errorf("Messages below the level should be dropped, got %q", out)
	}
	if !strings.Contains(out, "printed 3") || !strings.Contains(out, "printed 4") {
		t.Errorf("Warnings and errors should be printed, got %q", out)
	}
	if logger.LogsDebug() || logger.LogsTrace() {
		t.Errorf("Warn level should not log debug or trace")
	}
}

func TestLogGroupTrace(t *testing.T) {
	c := NewDefault()
	c.LogLevel = int(TraceLevel)
	logger := NewLogGroup(c)
	var buf bytes.Buffer
	logger.SetAllOutput(&buf)
	logger.Tracef("item %s", "x")
	if !strings.Contains(buf.String(), "item x") {
		t.Errorf("Trace level should print trace messages, got %q", buf.String())
	}
}

func TestLogGroupTimestamps(t *testing.T) {
	logger := NewLogGroup(NewDefault())
	var buf bytes.Buffer
	logger.SetAllOutput(&buf)
	logger.Infof("untimed")
	if strings.Contains(buf.String(), "time=") {
		t.Errorf("Timestamps should be off by default, got %q", buf.String())
	}
	buf.Reset()
	logger.SetTimestamps(true)
	logger.Infof("timed")
	if !strings.Contains(buf.String(), "time=") || !strings.Contains(buf.String(), "timed") {
		t.Errorf("Timestamps should prefix the entries, got %q", buf.String())
	}
}
