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
	"embed"
	"strings"
	"testing"
)

//go:embed testdata
var testfsys embed.FS

func loadTestProgram(t *testing.T, filename string) *Program {
	b, err := testfsys.ReadFile("testdata/" + filename)
	if err != nil {
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	p, err := LoadProgram(filename, b)
	if err != nil {
		t.Fatalf("failed to load %s: %v", filename, err)
	}
	return p
}

func TestLoadProgramDeclarations(t *testing.T) {
	p := loadTestProgram(t, "animals.yaml")
	if p.Name != "animals" {
		t.Errorf("expected program name animals, got %s", p.Name)
	}
	if len(p.Entries) != 1 || p.Entries[0].Name != "main" {
		t.Errorf("expected main as only entry, got %v", p.Entries)
	}
	dog := p.Class("Dog")
	if dog == nil || dog.Super != p.Class("Animal") {
		t.Fatalf("Dog should extend Animal")
	}
	if m := dog.LookupMethod("speak"); m == nil || m.Name != "Dog.speak" {
		t.Errorf("Dog.speak should override Animal.speak, got %v", m)
	}
	if m := p.Class("Rock").LookupMethod("speak"); m != nil {
		t.Errorf("Rock has no speak member, got %v", m)
	}
	if k := p.Class("Kennel").ContainerKind(); k != ArrayContainer {
		t.Errorf("Kennel extends Array and should be an array container, got %v", k)
	}
	if p.Function("Dog.speak(number)") != p.Function("Dog.speak") {
		t.Errorf("overload aliases should name the same function")
	}
	log := p.Function("log")
	if !log.External || log.ReturnClass != p.Class("Rock") {
		t.Errorf("log should be external and return Rock")
	}
	speak := p.Function("Animal.speak")
	if speak.This == nil {
		t.Errorf("instance methods should have a this local")
	}
	if n := p.Function("Dog.speak").LookupLocal("n"); n == nil || !n.Primitive {
		t.Errorf("n should be a primitive local")
	}
}

func TestLoadProgramStatements(t *testing.T) {
	p := loadTestProgram(t, "animals.yaml")
	main := p.Function("main")
	expected := []string{
		"d = new Dog",
		"d.constructor(\"rex\")",
		"r = new Rock",
		"xs = []",
		"xs[0] = d",
		"y = xs[count]",
		"s = y.speak(1)",
		"f = &helper",
		"g = f(d, r)",
		"d.cb = f",
		"h = (d.cb)(r)",
		"Dog::count = d",
		"@registry = r",
		"z = cast @registry",
		"count = count + 1",
		"l = call log(...xs)",
		"return s",
	}
	if len(main.Body) != len(expected) {
		t.Fatalf("expected %d statements, got %d", len(expected), len(main.Body))
	}
	for i, s := range main.Body {
		if s.String() != expected[i] {
			t.Errorf("statement %d: expected %q, got %q", i, expected[i], s.String())
		}
		if s.Parent() != main || s.Index() != i {
			t.Errorf("statement %d has wrong position %s", i, Location(s))
		}
	}
	if _, ok := InvokeOf(main.Body[1]).(*InstanceInvoke); !ok {
		t.Errorf("statement 1 should be a method call")
	}
	if inv, ok := InvokeOf(main.Body[10]).(*PtrInvoke); !ok {
		t.Errorf("statement 10 should be a call through a field")
	} else if _, ok := inv.Target.(*FieldRef); !ok {
		t.Errorf("statement 10 should call through a field, got %T", inv.Target)
	}
	if inv := InvokeOf(main.Body[15]); inv == nil || !inv.Spread() {
		t.Errorf("statement 15 should be a spread call")
	}
	if InvokeOf(main.Body[0]) != nil {
		t.Errorf("an allocation is not a call")
	}
	helper := p.Function("helper")
	if len(helper.Captures) != 1 || helper.Captures[0].Outer != main.LookupLocal("xs") {
		t.Errorf("helper should capture xs of main")
	}
}

func TestLoadProgramErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		text    string
		message string
	}{
		{"unknown class", "functions:\n  - name: f\n    body: [\"x = new Nope\"]\n", "unknown class"},
		{"unknown callee", "functions:\n  - name: f\n    body: [\"call g()\"]\n", "unknown function"},
		{"bad statement", "functions:\n  - name: f\n    body: [\"x\"]\n", "neither"},
		{"duplicate", "functions:\n  - name: f\n  - name: f\n", "declared twice"},
		{"bad entry", "entrypoints: [g]\nfunctions:\n  - name: f\n", "entry point"},
		{"bad super", "classes:\n  - name: A\n    super: B\n", "unknown class"},
		{"external body", "functions:\n  - name: f\n    external: true\n    body: [return]\n", "has a body"},
		{"bad lvalue", "functions:\n  - name: f\n    body: [\"1 = x\"]\n", "cannot be assigned"},
	} {
		_, err := LoadProgram(tc.name, []byte(tc.text))
		if err == nil {
			t.Errorf("%s: expected an error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.message) {
			t.Errorf("%s: expected error containing %q, got %v", tc.name, tc.message, err)
		}
	}
}

func TestContainerClassesAreImplicit(t *testing.T) {
	p, err := LoadProgram("c", []byte("functions:\n  - name: f\n    body: [\"s = new Set\", \"m = new Map\"]\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c := p.Class("Set"); c == nil || c.Container != SetContainer {
		t.Errorf("Set should be declared as a set container")
	}
	if c := p.Class("Map"); c == nil || c.Container != MapContainer {
		t.Errorf("Map should be declared as a map container")
	}
}

func TestLookupMethodCyclicHierarchy(t *testing.T) {
	p := NewProgram("cyclic")
	a, _ := p.NewClass("A", nil)
	b, _ := p.NewClass("B", a)
	a.Super = b
	if m := a.LookupMethod("m"); m != nil {
		t.Errorf("no method expected, got %v", m)
	}
}

func TestOperands(t *testing.T) {
	p := loadTestProgram(t, "animals.yaml")
	main := p.Function("main")
	ops := Operands(main.Body[10]) // h = (d.cb)(r)
	var names []string
	for _, o := range ops {
		names = append(names, o.String())
	}
	expected := "h|(d.cb)(r)|d.cb|d|r"
	if got := strings.Join(names, "|"); got != expected {
		t.Errorf("expected operands %s, got %s", expected, got)
	}
	if ops := Operands(main.Body[16]); len(ops) != 1 || ops[0] != main.LookupLocal("s") {
		t.Errorf("return s should have the single operand s, got %v", ops)
	}
}

const modules = `
functions:
  - name: lib.init
    module: lib
    exports:
      - {local: v, as: value}
    body:
      - v = new Object
  - name: main
    imports:
      - {local: x, module: lib, name: value}
      - {local: value, module: lib}
    body:
      - y = x
`

func TestLoadProgramModules(t *testing.T) {
	p, err := LoadProgram("modules", []byte("classes:\n  - name: Object\n"+modules[1:]))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lib := p.Function("lib.init")
	if len(p.Initializers) != 1 || p.Initializers[0] != lib {
		t.Fatalf("lib.init should be the only initializer, got %v", p.Initializers)
	}
	if len(lib.Exports) != 1 || lib.Exports[0].Name != "value" || lib.Exports[0].Local != lib.LookupLocal("v") {
		t.Errorf("unexpected exports %v", lib.Exports)
	}
	if s := lib.Body[len(lib.Body)-1].String(); s != "@lib.value = v" {
		t.Errorf("exports should be lowered to global stores, got %q", s)
	}
	main := p.Function("main")
	if len(main.Imports) != 2 || main.Imports[1].Name != "value" || main.Imports[1].Module != "lib" {
		t.Errorf("unexpected imports %v", main.Imports)
	}
	var got []string
	for _, s := range main.Body {
		got = append(got, s.String())
	}
	if want := "y = x|x = @lib.value|value = @lib.value"; strings.Join(got, "|") != want {
		t.Errorf("expected body %s, got %s", want, strings.Join(got, "|"))
	}
}

func TestLoadProgramModuleErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		text    string
		message string
	}{
		{"no module", "functions:\n  - name: f\n    exports: [{local: x}]\n    body: [\"x = y\"]\n", "no module"},
		{"unknown export", "functions:\n  - name: f\n    module: m\n    exports: [{local: z}]\n", "unknown local"},
		{"import without module", "functions:\n  - name: f\n    imports: [{local: x}]\n", "from no module"},
	} {
		_, err := LoadProgram(tc.name, []byte(tc.text))
		if err == nil || !strings.Contains(err.Error(), tc.message) {
			t.Errorf("%s: expected error containing %q, got %v", tc.name, tc.message, err)
		}
	}
}

func TestStorageFunctionsAreImplicit(t *testing.T) {
	p, err := LoadProgram("s", []byte("functions:\n  - name: f\n    body: [\"x = call AppStorage.get(\\\"k\\\")\"]\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	get := p.Function("AppStorage.get")
	if get == nil || get.StorageMethod() != "get" || !get.External || !get.Static {
		t.Fatalf("AppStorage.get should be declared as an external static storage method")
	}
	if c := p.Class(StorageClassName); c == nil || c.Methods["get"] != get {
		t.Errorf("AppStorage should declare get")
	}
	if p.StorageFunction("AppStorage.clear") != nil || p.StorageFunction("Other.get") != nil {
		t.Errorf("only the modelled storage methods are implicit")
	}
	if _, err := LoadProgram("s", []byte("functions:\n  - name: f\n    body: [\"call AppStorage.clear()\"]\n")); err == nil {
		t.Errorf("unmodelled storage methods should be unknown functions")
	}
}
