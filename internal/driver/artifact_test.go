package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestArtifactRoundTrip(t *testing.T) {
	s := newTestSession(t, Config{Jobs: 1})
	res, err := s.SpecializeSource(context.Background(), "demo.cap", []byte(demoProgram))
	if err != nil {
		t.Fatalf("specialize: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.mpk")
	if err := WriteArtifact(path, res, "x86_64", s.Baseline()); err != nil {
		t.Fatalf("write: %v", err)
	}

	art, err := ReadArtifact(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if art.Arch != "x86_64" {
		t.Fatalf("arch: %q", art.Arch)
	}
	if len(art.Instances) != len(res.Instances) {
		t.Fatalf("instances: got %d want %d", len(art.Instances), len(res.Instances))
	}
	for i, rec := range art.Instances {
		inst := res.Instances[i]
		if rec.Symbol != inst.Symbol {
			t.Fatalf("instance %d: symbol %q want %q", i, rec.Symbol, inst.Symbol)
		}
		if rec.Hash != inst.Hash {
			t.Fatalf("instance %d: hash mismatch", i)
		}
		if len(rec.Ops) != len(inst.Body) {
			t.Fatalf("instance %d: ops %d want %d", i, len(rec.Ops), len(inst.Body))
		}
	}
}

func TestReadArtifactRejectsWrongSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.mpk")
	data, err := msgpack.Marshal(&Artifact{Schema: artifactSchemaVersion + 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadArtifact(path); err == nil {
		t.Fatal("wrong schema must be rejected")
	}
}

func TestReadArtifactRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.mpk")
	if err := os.WriteFile(path, []byte("not msgpack at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadArtifact(path); err == nil {
		t.Fatal("garbage must be rejected")
	}
}
