package prog

import (
	"testing"

	"capc/internal/diag"
	"capc/internal/source"
)

func parseSrc(t *testing.T, src string) (*Module, *diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.cap", []byte(src))
	bag := diag.NewBag(100)
	m := Parse(fs.Get(id), diag.BagReporter{Bag: bag})
	return m, bag, fs
}

func TestParseBasic(t *testing.T) {
	m, bag, _ := parseSrc(t, `
# vector kernels
fn main default {
    call kernel
}

fn kernel inherit {
    query avx2
    call helper
}

fn helper fixed(avx2, fma) {
    query fma
}
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if len(m.Funcs) != 3 {
		t.Fatalf("func count: got %d want 3", len(m.Funcs))
	}

	mainFn, ok := m.Lookup("main")
	if !ok || mainFn.Mode.Kind != ModeDefault {
		t.Fatalf("main: %+v", mainFn)
	}

	kernel, _ := m.Lookup("kernel")
	if kernel.Mode.Kind != ModeInherited {
		t.Fatalf("kernel mode: %v", kernel.Mode.Kind)
	}
	if len(kernel.Body) != 2 || kernel.Body[0].Kind != OpQuery || kernel.Body[1].Kind != OpCall {
		t.Fatalf("kernel body: %+v", kernel.Body)
	}

	helper, _ := m.Lookup("helper")
	if helper.Mode.Kind != ModeFixed {
		t.Fatalf("helper mode: %v", helper.Mode.Kind)
	}
	if len(helper.Mode.Features) != 2 || helper.Mode.Features[0] != "avx2" || helper.Mode.Features[1] != "fma" {
		t.Fatalf("helper features: %v", helper.Mode.Features)
	}

	if got := mainFn.Body[0].Callee; got != kernel.ID {
		t.Fatalf("main call resolution: got %v want %v", got, kernel.ID)
	}
	if got := kernel.Body[1].Callee; got != helper.ID {
		t.Fatalf("kernel call resolution: got %v want %v", got, helper.ID)
	}
}

func TestParseCallBeforeDeclaration(t *testing.T) {
	m, bag, _ := parseSrc(t, `
fn a default { call z }
fn z inherit { }
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	a, _ := m.Lookup("a")
	z, _ := m.Lookup("z")
	if a.Body[0].Callee != z.ID {
		t.Fatal("forward reference not resolved")
	}
}

func TestParseRefAndIndirect(t *testing.T) {
	m, bag, _ := parseSrc(t, `
fn kernel inherit { query avx }
ref kernel
indirect kernel
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	kernel, _ := m.Lookup("kernel")
	if !kernel.AddressTaken {
		t.Fatal("ref must mark the function address-taken")
	}
	if len(kernel.IndirectSites) != 2 {
		t.Fatalf("indirect sites: got %d want 2", len(kernel.IndirectSites))
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"unknown mode", `fn a sometimes { }`, diag.SynUnknownMode},
		{"duplicate fn", "fn a default { }\nfn a default { }", diag.SynDuplicateFn},
		{"unknown callee", `fn a default { call ghost }`, diag.SynUnknownCallee},
		{"unclosed body", `fn a default { call a`, diag.SynUnclosedBody},
		{"bad feature list", `fn a fixed(avx2 { }`, diag.SynExpectFeature},
		{"missing body", `fn a default call x`, diag.SynExpectBody},
		{"dangling ref", `ref ghost`, diag.SynUnknownCallee},
		{"garbage top level", `banana`, diag.SynUnexpectedToken},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, bag, _ := parseSrc(t, c.src)
			if !bag.HasErrors() {
				t.Fatal("expected errors")
			}
			found := false
			for _, d := range bag.Items() {
				if d.Code == c.code {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("expected code %v in %v", c.code, bag.Items())
			}
		})
	}
}

func TestParseSpansPointIntoFile(t *testing.T) {
	src := "fn a default {\n    call b\n}\nfn b inherit { }\n"
	m, bag, fs := parseSrc(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	a, _ := m.Lookup("a")
	start, _ := fs.Resolve(a.Body[0].Span)
	if start.Line != 2 || start.Col != 5 {
		t.Fatalf("call span: got %d:%d want 2:5", start.Line, start.Col)
	}
}
