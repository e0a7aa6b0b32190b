package source

import (
	"testing"
)

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.cap", []byte("fn a default {\n    call b\n}\n"))

	start, end := fs.Resolve(Span{File: id, Start: 19, End: 25})
	if start.Line != 2 || start.Col != 5 {
		t.Fatalf("start: got %d:%d want 2:5", start.Line, start.Col)
	}
	if end.Line != 2 || end.Col != 11 {
		t.Fatalf("end: got %d:%d want 2:11", end.Line, end.Col)
	}
}

func TestFileSetResolveFirstLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("one.cap", []byte("single line"))

	start, _ := fs.Resolve(Span{File: id, Start: 7, End: 11})
	if start.Line != 1 || start.Col != 8 {
		t.Fatalf("got %d:%d want 1:8", start.Line, start.Col)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("lines.cap", []byte("first\nsecond\nthird"))
	f := fs.Get(id)

	cases := []struct {
		num  uint32
		want string
	}{
		{1, "first"},
		{2, "second"},
		{3, "third"},
		{4, ""},
		{0, ""},
	}
	for _, c := range cases {
		if got := f.GetLine(c.num); got != c.want {
			t.Fatalf("line %d: got %q want %q", c.num, got, c.want)
		}
	}
}

func TestNormalizeCRLF(t *testing.T) {
	out, changed := normalizeCRLF([]byte("a\r\nb\rc\n"))
	if !changed {
		t.Fatal("expected change")
	}
	if string(out) != "a\nb\rc\n" {
		t.Fatalf("got %q", out)
	}

	out, changed = normalizeCRLF([]byte("plain\n"))
	if changed {
		t.Fatal("unexpected change")
	}
	if string(out) != "plain\n" {
		t.Fatalf("got %q", out)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 0, Start: 10, End: 20}
	b := Span{File: 0, Start: 5, End: 15}
	got := a.Cover(b)
	if got.Start != 5 || got.End != 20 {
		t.Fatalf("got %v", got)
	}

	other := Span{File: 1, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Fatalf("cross-file cover must be a no-op, got %v", got)
	}
}
