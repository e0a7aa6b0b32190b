package driver

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"capc/internal/caps"
	"capc/internal/diag"
	"capc/internal/prog"
	"capc/internal/specialize"
)

// specializeParallel runs the same pass as specialize.Specialize, but
// partitioned: every Fixed/Default root and the Inherited functions it
// reaches form an independent partition (propagation never merges sets across
// partitions), so roots propagate concurrently, and instance resolution fans
// out per required key over the shared cache.
//
// Diagnostics go into per-goroutine bags and are merged in deterministic
// order, so parallel and serial runs report the same thing.
func specializeParallel(ctx context.Context, m *prog.Module, db *caps.Database, arch string, baseline caps.Set, opts specialize.Options, jobs, maxDiagnostics int, bag *diag.Bag) (*specialize.Result, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	reporter := diag.BagReporter{Bag: bag}

	graph, ok := specialize.Annotate(m, db, arch, baseline, reporter)

	// Cycle and indirect checks are cheap whole-graph scans; they stay serial.
	req := specialize.NewRequirements()
	if !specialize.CheckInheritedCycles(graph, reporter) {
		ok = false
	}
	if !specialize.CheckIndirectEntries(graph, opts, req, reporter) {
		ok = false
	}
	if !ok {
		return nil, specialize.ErrSpecializationFailed
	}

	roots := specialize.Roots(graph)
	rootBags := make([]*diag.Bag, len(roots))
	rootOK := make([]bool, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(roots), 1)))
	for i, root := range roots {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			rootBags[i] = diag.NewBag(maxDiagnostics)
			rootOK[i] = specialize.PropagateFrom(graph, root, opts, req, diag.BagReporter{Bag: rootBags[i]})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := range roots {
		bag.Merge(rootBags[i])
		if !rootOK[i] {
			ok = false
		}
	}
	if !ok {
		return nil, specialize.ErrSpecializationFailed
	}

	keys := req.Sorted()
	keyBags := make([]*diag.Bag, len(keys))
	keyErrs := make([]error, len(keys))
	cache := specialize.NewCache()

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(keys), 1)))
	for i, key := range keys {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			keyBags[i] = diag.NewBag(maxDiagnostics)
			set, _ := req.Set(key)
			_, keyErrs[i] = specialize.BuildInstance(graph, db, cache, key, set, diag.BagReporter{Bag: keyBags[i]})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := false
	for i := range keys {
		bag.Merge(keyBags[i])
		if err := keyErrs[i]; err != nil {
			if errors.Is(err, specialize.ErrSpecializationFailed) {
				failed = true
				continue
			}
			return nil, err
		}
	}
	if failed {
		return nil, specialize.ErrSpecializationFailed
	}

	return specialize.Seal(graph, req, cache)
}
