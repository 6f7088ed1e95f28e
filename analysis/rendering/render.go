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

// Package rendering writes the results of the pointer analysis: the call graph in the graphviz format, the
// points-to sets, the diagnostics and the program itself.
package rendering

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"

	"github.com/awslabs/ar-pta/analysis/callgraph"
	"github.com/awslabs/ar-pta/analysis/config"
	"github.com/awslabs/ar-pta/analysis/ir"
	"github.com/awslabs/ar-pta/analysis/pta"
	"github.com/awslabs/ar-pta/analysis/reachability"
	"golang.org/x/tools/container/intsets"
	"gopkg.in/src-d/go-billy.v4"
)

// Names of the report files written by WriteReports
const (
	CallgraphFile   = "callgraph.dot"
	FunctionsFile   = "functions.dot"
	PointsToFile    = "pointsto.txt"
	DiagnosticsFile = "diagnostics.txt"
)

// edgeColor defines specific color for specific edges in the callgraph
// - an edge resolved from points-to facts will be colored with a blue edge
// - all other call sites will have a default color edge
func edgeColor(res *pta.Result, edge callgraph.Edge) string {
	if site := res.Sites.Site(edge.Site.Site); site != nil && site.Dynamic() {
		return " [color=blue]"
	}
	return ""
}

func nodeStr(res *pta.Result, id callgraph.NodeID) string {
	node := res.CallGraph.Node(id)
	return res.Funcs.Name(node.Func) + " " + res.Contexts.String(node.Context)
}

// WriteGraphviz writes a graphviz representation of the context-sensitive call graph to w. Entry nodes are drawn
// with a double border and external functions with a box.
func WriteGraphviz(res *pta.Result, w io.Writer) error {
	before := "digraph callgraph {\n"
	after := "}\n"

	if _, err := io.WriteString(w, before); err != nil {
		return fmt.Errorf("error while writing in file: %w", err)
	}
	for _, root := range res.CallGraph.Roots() {
		if _, err := fmt.Fprintf(w, "  %q [peripheries=2];\n", nodeStr(res, root)); err != nil {
			return fmt.Errorf("error while writing in file: %w", err)
		}
	}
	for _, node := range res.CallGraph.Nodes() {
		if f := res.Funcs.Func(node.Func); f != nil && f.External {
			if _, err := fmt.Fprintf(w, "  %q [shape=box];\n", nodeStr(res, node.ID)); err != nil {
				return fmt.Errorf("error while writing in file: %w", err)
			}
		}
	}
	for _, edge := range res.CallGraph.Edges() {
		s := fmt.Sprintf("  %q -> %q%s;\n", nodeStr(res, edge.Caller), nodeStr(res, edge.Callee),
			edgeColor(res, edge))
		if _, err := io.WriteString(w, s); err != nil {
			return fmt.Errorf("error while writing in file: %w", err)
		}
	}
	if _, err := io.WriteString(w, after); err != nil {
		return fmt.Errorf("error while writing in file: %w", err)
	}
	return nil
}

// GraphvizToFile writes the call graph in the file filename of fs
func GraphvizToFile(fs billy.Filesystem, res *pta.Result, filename string) error {
	return toFile(fs, filename, func(w io.Writer) error { return WriteGraphviz(res, w) })
}

// WritePointsTo writes the non-empty points-to sets of the result, one location per line, in creation order
func WritePointsTo(res *pta.Result, w io.Writer) error {
	var err error
	res.Store.ForEachLocation(func(_ pta.LocID, l pta.Location, pts *intsets.Sparse) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, "%s: %v\n", l, res.Store.Tokens(pts))
	})
	return err
}

// WriteDiagnostics writes the diagnostics of the result, one per line
func WriteDiagnostics(res *pta.Result, w io.Writer) error {
	for _, d := range res.Diagnostics {
		if _, err := fmt.Fprintf(w, "%s\n", d); err != nil {
			return err
		}
	}
	return nil
}

// WriteProgram writes the classes and functions of the program in the syntax of the program files
func WriteProgram(p *ir.Program, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, c := range p.Classes {
		fmt.Fprintf(bw, "class %s", c.Name)
		if c.Super != nil {
			fmt.Fprintf(bw, " extends %s", c.Super.Name)
		}
		bw.WriteString("\n")
	}
	for _, f := range p.Functions {
		fmt.Fprintf(bw, "\nfunction %s(", f.Name)
		for i, param := range f.Params {
			if i > 0 {
				bw.WriteString(", ")
			}
			bw.WriteString(param.Name)
		}
		bw.WriteString(")")
		if f.External {
			bw.WriteString(" external")
		}
		bw.WriteString("\n")
		for _, s := range f.Body {
			fmt.Fprintf(bw, "  %d: %s\n", s.Index(), s)
		}
	}
	return bw.Flush()
}

// WriteReports writes the reports the config asks for in its reports directory of fs. Returns the names of the
// files written.
func WriteReports(fs billy.Filesystem, c *config.Config, res *pta.Result) ([]string, error) {
	if !c.ReportsAnything() {
		return nil, nil
	}
	if err := fs.MkdirAll(c.ReportsDir, 0700); err != nil {
		return nil, fmt.Errorf("could not create directory %s: %w", c.ReportsDir, err)
	}
	var written []string
	write := func(name string, do func(io.Writer) error) error {
		filename := filepath.Join(c.ReportsDir, name)
		if err := toFile(fs, filename, do); err != nil {
			return err
		}
		written = append(written, filename)
		return nil
	}
	if c.ReportCallgraph {
		if err := write(CallgraphFile, func(w io.Writer) error { return WriteGraphviz(res, w) }); err != nil {
			return written, err
		}
		dg := reachability.FunctionDependencies(res.CallGraph, res.Funcs)
		if err := write(FunctionsFile, dg.WriteGraphviz); err != nil {
			return written, err
		}
	}
	if c.ReportPointsTo {
		if err := write(PointsToFile, func(w io.Writer) error { return WritePointsTo(res, w) }); err != nil {
			return written, err
		}
	}
	if c.ReportDiagnostics {
		if err := write(DiagnosticsFile, func(w io.Writer) error { return WriteDiagnostics(res, w) }); err != nil {
			return written, err
		}
	}
	return written, nil
}

func toFile(fs billy.Filesystem, filename string, do func(io.Writer) error) error {
	f, err := fs.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := do(w); err != nil {
		return fmt.Errorf("error while writing %s: %w", filename, err)
	}
	return w.Flush()
}
