package diag

import (
	"strings"
	"testing"

	"capc/internal/source"
)

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	if !b.Add(NewError(CapUnknownCapability, source.Span{}, "one")) {
		t.Fatal("first add rejected")
	}
	if !b.Add(NewError(CapUnknownCapability, source.Span{}, "two")) {
		t.Fatal("second add rejected")
	}
	if b.Add(NewError(CapUnknownCapability, source.Span{}, "three")) {
		t.Fatal("third add must be rejected")
	}
	if b.Len() != 2 {
		t.Fatalf("len: got %d want 2", b.Len())
	}
}

func TestBagHasErrors(t *testing.T) {
	b := NewBag(10)
	b.Add(New(SevWarning, SpecIndirectBaselineFallback, source.Span{}, "warn"))
	if b.HasErrors() {
		t.Fatal("no errors expected")
	}
	if !b.HasWarnings() {
		t.Fatal("warning expected")
	}
	b.Add(NewError(SpecCyclicInheritancePropagation, source.Span{}, "cycle"))
	if !b.HasErrors() {
		t.Fatal("error expected")
	}
}

func TestBagSortDeterministic(t *testing.T) {
	b := NewBag(10)
	b.Add(NewError(SynUnexpectedToken, source.Span{File: 1, Start: 5, End: 6}, "b"))
	b.Add(NewError(SynUnexpectedToken, source.Span{File: 0, Start: 9, End: 10}, "a"))
	b.Add(New(SevWarning, SynInfo, source.Span{File: 0, Start: 2, End: 3}, "c"))
	b.Sort()

	items := b.Items()
	if items[0].Message != "c" || items[1].Message != "a" || items[2].Message != "b" {
		t.Fatalf("unexpected order: %q %q %q", items[0].Message, items[1].Message, items[2].Message)
	}
}

func TestCodeID(t *testing.T) {
	cases := []struct {
		code Code
		want string
	}{
		{SynUnexpectedToken, "SYN1001"},
		{CapUnknownCapability, "CAP2001"},
		{SpecCyclicInheritancePropagation, "SPC3002"},
		{IOBadManifest, "IO4002"},
		{UnknownCode, "E0000"},
	}
	for _, c := range cases {
		if got := c.code.ID(); got != c.want {
			t.Fatalf("%d: got %q want %q", c.code, got, c.want)
		}
	}
}

func TestRenderPlain(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("demo.cap", []byte("fn a fixed(bogus) {\n}\n"))

	b := NewBag(10)
	b.Add(NewError(CapUnknownCapability, source.Span{File: id, Start: 11, End: 16}, `unknown capability "bogus"`))

	var sb strings.Builder
	Render(&sb, b, fs, RenderOpts{ShowPreview: true})
	out := sb.String()

	if !strings.Contains(out, "demo.cap:1:12") {
		t.Fatalf("missing location in %q", out)
	}
	if !strings.Contains(out, "CAP2001") {
		t.Fatalf("missing code in %q", out)
	}
	if !strings.Contains(out, "^~~~~") {
		t.Fatalf("missing underline in %q", out)
	}
}

func TestMultiReporterFanOut(t *testing.T) {
	a, b := NewBag(5), NewBag(5)
	m := MultiReporter{BagReporter{Bag: a}, BagReporter{Bag: b}, nil}
	ReportError(m, SynUnexpectedToken, source.Span{}, "boom").Emit()
	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("fan-out failed: %d %d", a.Len(), b.Len())
	}
}
