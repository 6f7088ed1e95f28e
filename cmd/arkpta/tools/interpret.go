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

package tools

import "regexp"

// Captures errors happening before any analysis starts (program could not load)
var regexCouldNotLoad = regexp.MustCompile("could not load program")

// Captures the kind of error that happen when you put a flag at the end instead of the program file
var flagAfterFile = regexp.MustCompile("got [2-9][0-9]* arguments")

// Captures the programs without entry points
var missingEntryPoint = regexp.MustCompile("missing entry point")

// Captures the runs stopped by the iteration budget
var budgetExhausted = regexp.MustCompile("iteration budget exhausted")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	if regexCouldNotLoad.MatchString(errMsg) {
		if flagAfterFile.MatchString(errMsg) {
			return "all command line flags should be before the path to the program file"
		}
		return "make sure the path leads to a YAML program file"
	}
	if missingEntryPoint.MatchString(errMsg) {
		return "declare entrypoints in the program file, or list existing functions under entrypoints in the config"
	}
	if budgetExhausted.MatchString(errMsg) {
		return "the results are partial; raise pointer.max-iterations in the config, or set it to 0"
	}
	return ""
}
