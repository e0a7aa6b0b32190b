package driver

import (
	"context"
	"fmt"

	"capc/internal/caps"
	"capc/internal/diag"
	"capc/internal/prog"
	"capc/internal/source"
	"capc/internal/specialize"
)

// Config describes one compilation session.
type Config struct {
	// Arch selects the capability namespace in the database.
	Arch string
	// Baseline is the capability list Default-mode functions compile for.
	Baseline []string

	IndirectFallback specialize.FallbackPolicy
	MaxDepth         int

	// Jobs > 1 enables parallel propagation and instance resolution across
	// independent call-graph partitions. Jobs <= 0 picks GOMAXPROCS; Jobs == 1
	// forces the serial pass.
	Jobs int

	MaxDiagnostics int
}

const defaultMaxDiagnostics = 100

// Session owns the per-session state: file set, diagnostics, baseline set.
// A Session runs one specialization pass and is then discarded; the
// specialization cache never outlives it.
type Session struct {
	db       *caps.Database
	cfg      Config
	fileSet  *source.FileSet
	bag      *diag.Bag
	baseline caps.Set
}

// NewSession validates the target against the database and prepares a fresh
// session.
func NewSession(db *caps.Database, cfg Config) (*Session, error) {
	if cfg.Arch == "" {
		return nil, fmt.Errorf("session: target architecture is required")
	}
	if !db.HasArch(cfg.Arch) {
		return nil, &caps.UnknownArchError{Arch: cfg.Arch}
	}
	baseline, err := caps.NewSet(db, cfg.Arch, cfg.Baseline)
	if err != nil {
		return nil, fmt.Errorf("session baseline: %w", err)
	}
	if cfg.MaxDiagnostics <= 0 {
		cfg.MaxDiagnostics = defaultMaxDiagnostics
	}
	return &Session{
		db:       db,
		cfg:      cfg,
		fileSet:  source.NewFileSet(),
		bag:      diag.NewBag(cfg.MaxDiagnostics),
		baseline: baseline,
	}, nil
}

// Bag returns the session's collected diagnostics.
func (s *Session) Bag() *diag.Bag {
	return s.bag
}

// FileSet returns the session's file set, for rendering diagnostics.
func (s *Session) FileSet() *source.FileSet {
	return s.fileSet
}

// Baseline returns the resolved baseline capability set.
func (s *Session) Baseline() caps.Set {
	return s.baseline
}

// SpecializeFile loads one declaration file and runs the pass over it.
func (s *Session) SpecializeFile(ctx context.Context, path string) (*specialize.Result, error) {
	id, err := s.fileSet.Load(path)
	if err != nil {
		s.bag.Add(diag.NewError(diag.IOReadFailed, source.Span{}, fmt.Sprintf("failed to load %q: %v", path, err)))
		return nil, specialize.ErrSpecializationFailed
	}
	return s.run(ctx, id)
}

// SpecializeSource runs the pass over in-memory content (tests, stdin).
func (s *Session) SpecializeSource(ctx context.Context, name string, content []byte) (*specialize.Result, error) {
	id := s.fileSet.AddVirtual(name, content)
	return s.run(ctx, id)
}

func (s *Session) run(ctx context.Context, id source.FileID) (*specialize.Result, error) {
	reporter := diag.BagReporter{Bag: s.bag}

	module := prog.Parse(s.fileSet.Get(id), reporter)
	if s.bag.HasErrors() {
		return nil, specialize.ErrSpecializationFailed
	}

	opts := specialize.Options{
		MaxDepth:         s.cfg.MaxDepth,
		IndirectFallback: s.cfg.IndirectFallback,
	}
	if s.cfg.Jobs == 1 {
		return specialize.Specialize(module, s.db, s.cfg.Arch, s.baseline, opts, reporter)
	}
	return specializeParallel(ctx, module, s.db, s.cfg.Arch, s.baseline, opts, s.cfg.Jobs, s.cfg.MaxDiagnostics, s.bag)
}
