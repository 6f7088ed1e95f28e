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

package main

import (
	"fmt"
	"os"

	"github.com/awslabs/ar-pta/cmd/arkpta/callgraph"
	"github.com/awslabs/ar-pta/cmd/arkpta/pointsto"
	"github.com/awslabs/ar-pta/cmd/arkpta/reachability"
	"github.com/awslabs/ar-pta/cmd/arkpta/tools"
)

const version = "0.1.0"

const usage = `Arkpta: call graph and points-to analysis of ArkTS programs
Usage:
  arkpta [tool] [options] <program file>
Tools:
  - callgraph: builds the context-sensitive call graph and writes the reports requested by the config
  - pointsto: prints the objects the locals may point to
  - reachability: prints the functions reachable from the entry points, the call cycles or a chain of calls
Examples:
  Build the call graph: arkpta callgraph -config config.yaml -cgout cg.dot program.yaml
  Print a points-to set: arkpta pointsto -policy object -local main.x program.yaml`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(version)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "callgraph":
		flags, err := callgraph.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := callgraph.Run(flags); err != nil {
			errExit(err)
		}
	case "pointsto":
		flags, err := pointsto.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := pointsto.Run(flags); err != nil {
			errExit(err)
		}
	case "reachability":
		flags, err := reachability.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := reachability.Run(flags); err != nil {
			errExit(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	hint := tools.HintForErrorMessage(err.Error())
	if hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(2)
}
