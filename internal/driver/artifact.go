package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"capc/internal/caps"
	"capc/internal/specialize"
)

// Current schema version - increment when the artifact format changes.
const artifactSchemaVersion uint16 = 1

// Artifact is the serialized output of one session, consumed by the
// downstream code generator. Instances appear in symbol order; each record
// carries the full capability list its body was resolved for, so the
// generator treats it exactly like a hand-written fixed declaration.
type Artifact struct {
	Schema   uint16
	Arch     string
	Baseline []string

	Instances []ArtifactInstance
}

// ArtifactInstance is one emitted specialization.
type ArtifactInstance struct {
	Symbol   string
	Origin   string
	Features []string
	Ops      []ArtifactOp
	Hash     [32]byte
}

// ArtifactOp mirrors specialize.InstOp without source spans.
type ArtifactOp struct {
	Kind   uint8
	Cap    string
	Value  bool
	Target string
}

// BuildArtifact captures a sealed result into its serializable form.
func BuildArtifact(res *specialize.Result, arch string, baseline caps.Set) *Artifact {
	art := &Artifact{
		Schema:    artifactSchemaVersion,
		Arch:      arch,
		Baseline:  baseline.Names(),
		Instances: make([]ArtifactInstance, 0, len(res.Instances)),
	}

	// Emit preserves symbol order, and an in-memory sink cannot fail.
	_ = res.Emit(specialize.EmitterFunc(func(inst *specialize.Instance) error {
		rec := ArtifactInstance{
			Symbol:   inst.Symbol,
			Origin:   inst.Origin,
			Features: inst.Set.Names(),
			Ops:      make([]ArtifactOp, 0, len(inst.Body)),
			Hash:     inst.Hash,
		}
		for _, op := range inst.Body {
			rec.Ops = append(rec.Ops, ArtifactOp{
				Kind:   uint8(op.Kind),
				Cap:    op.Cap,
				Value:  op.Value,
				Target: op.Target,
			})
		}
		art.Instances = append(art.Instances, rec)
		return nil
	}))
	return art
}

// WriteArtifact serializes the result to path. The write goes through a temp
// file and rename so a crashed run never leaves a torn artifact.
func WriteArtifact(path string, res *specialize.Result, arch string, baseline caps.Set) error {
	data, err := msgpack.Marshal(BuildArtifact(res, arch, baseline))
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".capc-artifact-*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

// ReadArtifact loads and validates a previously written artifact.
func ReadArtifact(path string) (*Artifact, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %q: %w", path, err)
	}
	var art Artifact
	if err := msgpack.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %q: %w", path, err)
	}
	if art.Schema != artifactSchemaVersion {
		return nil, fmt.Errorf("artifact %q has schema %d, this build understands %d", path, art.Schema, artifactSchemaVersion)
	}
	return &art, nil
}
