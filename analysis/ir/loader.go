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

package ir

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// programSpec is the YAML rendition of a program
type programSpec struct {
	Name        string         `yaml:"name"`
	EntryPoints []string       `yaml:"entrypoints"`
	Classes     []classSpec    `yaml:"classes"`
	Functions   []functionSpec `yaml:"functions"`
}

type classSpec struct {
	Name  string `yaml:"name"`
	Super string `yaml:"super"`
	// Methods maps member names to function names
	Methods   map[string]string `yaml:"methods"`
	Container string            `yaml:"container"`
}

type functionSpec struct {
	Name       string        `yaml:"name"`
	Aliases    []string      `yaml:"aliases"`
	Class      string        `yaml:"class"`
	Static     bool          `yaml:"static"`
	Params     []string      `yaml:"params"`
	Primitives []string      `yaml:"primitives"`
	Captures   []captureSpec `yaml:"captures"`
	External   bool          `yaml:"external"`
	Returns    string        `yaml:"returns"`
	Body       []string      `yaml:"body"`
	Module     string        `yaml:"module"`
	Exports    []exportSpec  `yaml:"exports"`
	Imports    []importSpec  `yaml:"imports"`
}

// exportSpec exports the local Local of a module body under As, which defaults to the name of the local
type exportSpec struct {
	Local string `yaml:"local"`
	As    string `yaml:"as"`
}

// importSpec binds the local Local to the export Name of Module. Name defaults to the name of the local.
type importSpec struct {
	Local  string `yaml:"local"`
	Module string `yaml:"module"`
	Name   string `yaml:"name"`
}

// captureSpec binds the local Local of a closure to the local Outer of the function From
type captureSpec struct {
	Local string `yaml:"local"`
	From  string `yaml:"from"`
	Outer string `yaml:"outer"`
}

// LoadProgramFile reads the program in the YAML file filename
func LoadProgramFile(filename string) (*Program, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read program file: %w", err)
	}
	return LoadProgram(filename, b)
}

// LoadProgram parses the YAML rendition of a program. The name is used when the file does not name the program.
func LoadProgram(name string, b []byte) (*Program, error) {
	var spec programSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("could not unmarshal program %s: %w", name, err)
	}
	if spec.Name != "" {
		name = spec.Name
	}
	prog := NewProgram(name)
	if err := declareClasses(prog, spec.Classes); err != nil {
		return nil, err
	}
	if err := declareFunctions(prog, spec.Functions); err != nil {
		return nil, err
	}
	if err := bindMethods(prog, spec.Classes); err != nil {
		return nil, err
	}
	for _, fs := range spec.Functions {
		if err := buildBody(prog, fs); err != nil {
			return nil, err
		}
	}
	for _, e := range spec.EntryPoints {
		f := prog.Function(e)
		if f == nil {
			return nil, fmt.Errorf("entry point %s is not a function of the program", e)
		}
		prog.Entries = append(prog.Entries, f)
	}
	return prog, nil
}

func declareClasses(prog *Program, classes []classSpec) error {
	for _, cs := range classes {
		c, err := prog.NewClass(cs.Name, nil)
		if err != nil {
			return err
		}
		switch strings.ToLower(cs.Container) {
		case "":
		case "array":
			c.Container = ArrayContainer
		case "set":
			c.Container = SetContainer
		case "map":
			c.Container = MapContainer
		default:
			return fmt.Errorf("class %s: unknown container kind %q", cs.Name, cs.Container)
		}
	}
	for _, cs := range classes {
		if cs.Super == "" {
			continue
		}
		super := prog.Class(cs.Super)
		if super == nil {
			super = prog.ContainerClass(cs.Super)
		}
		if super == nil {
			return fmt.Errorf("class %s extends unknown class %s", cs.Name, cs.Super)
		}
		prog.Class(cs.Name).Super = super
	}
	return nil
}

func declareFunctions(prog *Program, funcs []functionSpec) error {
	for _, fs := range funcs {
		f, err := prog.NewFunction(fs.Name)
		if err != nil {
			return err
		}
		for _, a := range fs.Aliases {
			if err := prog.Alias(a, f); err != nil {
				return err
			}
		}
		if fs.Class != "" {
			f.Class = prog.Class(fs.Class)
			if f.Class == nil {
				return fmt.Errorf("function %s: unknown class %s", fs.Name, fs.Class)
			}
		}
		f.Static = fs.Static
		f.External = fs.External
		if fs.Returns != "" {
			f.ReturnClass = prog.Class(fs.Returns)
			if f.ReturnClass == nil {
				f.ReturnClass = prog.ContainerClass(fs.Returns)
			}
			if f.ReturnClass == nil {
				return fmt.Errorf("function %s: unknown return class %s", fs.Name, fs.Returns)
			}
		}
		for _, prim := range fs.Primitives {
			f.Local(prim).Primitive = true
		}
		if f.Class != nil && !f.Static {
			f.Local(ThisLocalName)
		}
		for _, param := range fs.Params {
			f.NewParam(param)
		}
	}
	return nil
}

func bindMethods(prog *Program, classes []classSpec) error {
	for _, cs := range classes {
		c := prog.Class(cs.Name)
		for member, fname := range cs.Methods {
			f := prog.Function(fname)
			if f == nil {
				return fmt.Errorf("class %s: member %s refers to unknown function %s", cs.Name, member, fname)
			}
			c.Methods[member] = f
		}
	}
	return nil
}

func buildBody(prog *Program, fs functionSpec) error {
	f := prog.Function(fs.Name)
	if f.External {
		if len(fs.Body) > 0 {
			return fmt.Errorf("external function %s has a body", fs.Name)
		}
		return nil
	}
	p := &stmtParser{prog: prog, fn: f}
	for i, text := range fs.Body {
		if err := p.parseStmt(text); err != nil {
			return fmt.Errorf("function %s, statement %d: %w", fs.Name, i, err)
		}
	}
	if f.Body == nil {
		f.Body = []Stmt{}
	}
	for _, c := range fs.Captures {
		outerFn := prog.Function(c.From)
		if outerFn == nil {
			return fmt.Errorf("function %s captures from unknown function %s", fs.Name, c.From)
		}
		outer := c.Outer
		if outer == "" {
			outer = c.Local
		}
		f.Captures = append(f.Captures, Capture{Inner: f.Local(c.Local), Outer: outerFn.Local(outer)})
	}
	return linkModule(prog, f, fs)
}

// linkModule records the exports and imports of f. Both are lowered to copies through the global named by
// ExportName, appended to the body: the analysis is flow-insensitive, so their position does not matter.
func linkModule(prog *Program, f *Function, fs functionSpec) error {
	f.Module = fs.Module
	if len(fs.Exports) > 0 && f.Module == "" {
		return fmt.Errorf("function %s exports locals but declares no module", f.Name)
	}
	for _, e := range fs.Exports {
		l := f.LookupLocal(e.Local)
		if l == nil {
			return fmt.Errorf("function %s exports unknown local %s", f.Name, e.Local)
		}
		name := e.As
		if name == "" {
			name = e.Local
		}
		f.Exports = append(f.Exports, Export{Local: l, Name: name})
		f.Emit(&AssignStmt{Left: &GlobalRef{Name: ExportName(f.Module, name)}, Right: l})
	}
	if len(f.Exports) > 0 {
		prog.Initializers = append(prog.Initializers, f)
	}
	for _, i := range fs.Imports {
		if i.Module == "" {
			return fmt.Errorf("function %s imports %s from no module", f.Name, i.Local)
		}
		name := i.Name
		if name == "" {
			name = i.Local
		}
		l := f.Local(i.Local)
		f.Imports = append(f.Imports, Import{Local: l, Module: i.Module, Name: name})
		f.Emit(&AssignStmt{Left: l, Right: &GlobalRef{Name: ExportName(i.Module, name)}})
	}
	return nil
}
