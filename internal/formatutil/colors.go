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

// Package formatutil manipulates string colors and other formatting operations of the command line frontends.
package formatutil

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	Bold    = Color("\033[1m%s\033[0m")
	Faint   = Color("\033[2m%s\033[0m")
	Red     = Color("\033[1;31m%s\033[0m")
	Green   = Color("\033[1;32m%s\033[0m")
	Yellow  = Color("\033[1;33m%s\033[0m")
	Magenta = Color("\033[1;35m%s\033[0m")
	Cyan    = Color("\033[1;36m%s\033[0m")
)

// colorsOn is nil when the choice is left to the terminal detection
var colorsOn *bool

// SetColors forces colors on or off, regardless of whether the output is a terminal
func SetColors(on bool) {
	colorsOn = &on
}

// ColorsEnabled returns true when the colored functions decorate their output
func ColorsEnabled() bool {
	if colorsOn != nil {
		return *colorsOn
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Color returns a function that formats its arguments like fmt.Sprint and wraps the result in the escape sequence
// colorString when colors are enabled.
func Color(colorString string) func(...any) string {
	return func(args ...any) string {
		if ColorsEnabled() {
			return fmt.Sprintf(colorString, fmt.Sprint(args...))
		}
		return fmt.Sprint(args...)
	}
}

// Sanitize is a simple sanitizer that removes all escape sequences
func Sanitize(s string) string {
	r := fmt.Sprintf("%q", s)
	if len(r) >= 2 {
		return r[1 : len(r)-1]
	}
	return r
}

// Table formats rows as left-aligned columns separated by two spaces. Cells are sanitized.
func Table(rows [][]string) string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if n := len(Sanitize(cell)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			cell = Sanitize(cell)
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-len(cell)+2))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
