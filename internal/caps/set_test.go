package caps

import (
	"errors"
	"testing"
)

func mustSet(t *testing.T, db *Database, arch string, names ...string) Set {
	t.Helper()
	s, err := NewSet(db, arch, names)
	if err != nil {
		t.Fatalf("NewSet(%v): %v", names, err)
	}
	return s
}

func TestSetValueEquality(t *testing.T) {
	db := DefaultDatabase()
	a := mustSet(t, db, "x86_64", "avx", "popcnt")
	b := mustSet(t, db, "x86_64", "popcnt", "avx", "avx")

	if !a.Equal(b) {
		t.Fatalf("sets with same members must compare equal: %v vs %v", a, b)
	}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %q vs %q", a.Key(), b.Key())
	}
}

func TestSetKeyRoundTrip(t *testing.T) {
	db := DefaultDatabase()
	orig := mustSet(t, db, "x86_64", "avx2", "popcnt")

	back := SetFromKey(orig.Key())
	if !orig.Equal(back) {
		t.Fatalf("round trip mismatch: %v -> %q -> %v", orig, orig.Key(), back)
	}

	if !EmptySet().Equal(SetFromKey(EmptySet().Key())) {
		t.Fatal("empty set round trip mismatch")
	}
}

func TestImplicationClosure(t *testing.T) {
	db := DefaultDatabase()
	s := mustSet(t, db, "x86_64", "avx2")

	for _, want := range []string{"avx2", "avx", "sse4.2", "sse4.1", "ssse3", "sse3", "sse2"} {
		if !s.Contains(want) {
			t.Fatalf("closure of avx2 must contain %q, got %v", want, s)
		}
	}
	if s.Contains("fma") {
		t.Fatalf("closure of avx2 must not contain fma: %v", s)
	}
}

func TestSubsetAndUnion(t *testing.T) {
	db := DefaultDatabase()
	narrow := mustSet(t, db, "x86_64", "sse4.2")
	wide := mustSet(t, db, "x86_64", "avx2")

	if !narrow.IsSubset(wide) {
		t.Fatalf("%v must be subset of %v", narrow, wide)
	}
	if wide.IsSubset(narrow) {
		t.Fatalf("%v must not be subset of %v", wide, narrow)
	}

	u := narrow.Union(mustSet(t, db, "x86_64", "popcnt"))
	if !u.Contains("popcnt") || !u.Contains("sse4.2") {
		t.Fatalf("union missing members: %v", u)
	}

	if got := EmptySet().Union(narrow); !got.Equal(narrow) {
		t.Fatalf("empty union: got %v", got)
	}
}

func TestUnknownCapability(t *testing.T) {
	db := DefaultDatabase()
	_, err := NewSet(db, "x86_64", []string{"avx", "quantum"})
	var unknown *UnknownCapabilityError
	if !errors.As(err, &unknown) {
		t.Fatalf("want UnknownCapabilityError, got %v", err)
	}
	if unknown.Name != "quantum" {
		t.Fatalf("wrong name: %q", unknown.Name)
	}

	_, err = NewSet(db, "riscv", []string{"avx"})
	var badArch *UnknownArchError
	if !errors.As(err, &badArch) {
		t.Fatalf("want UnknownArchError, got %v", err)
	}
}

func TestArchNamespaces(t *testing.T) {
	db := DefaultDatabase()
	if db.Valid("aarch64", "avx2") {
		t.Fatal("avx2 must not be valid on aarch64")
	}
	if !db.Valid("aarch64", "neon") {
		t.Fatal("neon must be valid on aarch64")
	}
}
