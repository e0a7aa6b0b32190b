package specialize

import (
	"errors"
	"sort"

	"capc/internal/caps"
	"capc/internal/diag"
	"capc/internal/prog"
)

// ErrSpecializationFailed is returned when the pass was aborted by reported
// diagnostics. There is no partial output: either every reachable
// (function, set) pair resolves cleanly or the pass fails.
var ErrSpecializationFailed = errors.New("specialization failed")

// Result is the sealed outcome of one compilation session: every required
// instance, fully resolved, in deterministic symbol order.
type Result struct {
	Graph        *Graph
	Requirements *Requirements
	Instances    []*Instance
}

// Instance returns the resolved instance for key, if it was required.
func (res *Result) Instance(key SpecKey) (*Instance, bool) {
	for _, inst := range res.Instances {
		if inst.Key == key {
			return inst, true
		}
	}
	return nil, false
}

// InstancesOf returns every instance of the named function in symbol order.
func (res *Result) InstancesOf(name string) []*Instance {
	var out []*Instance
	for _, inst := range res.Instances {
		if inst.Origin == name {
			out = append(out, inst)
		}
	}
	return out
}

// Specialize runs the whole pass over one module: annotate, reject inherited
// cycles, apply the indirect-call policy, propagate capability sets from
// every Fixed/Default root, then resolve one instance per required key
// through a fresh cache. User-facing problems are reported to reporter and
// collapse into ErrSpecializationFailed; any other error is internal.
func Specialize(m *prog.Module, db *caps.Database, arch string, baseline caps.Set, opts Options, reporter diag.Reporter) (*Result, error) {
	graph, ok := Annotate(m, db, arch, baseline, reporter)

	req, propOK := Propagate(graph, opts, reporter)
	if !ok || !propOK {
		return nil, ErrSpecializationFailed
	}

	cache := NewCache()
	failed := false
	for _, key := range req.Sorted() {
		set, _ := req.Set(key)
		if _, err := BuildInstance(graph, db, cache, key, set, reporter); err != nil {
			if errors.Is(err, errResolveFailed) {
				failed = true
				continue
			}
			return nil, err
		}
	}
	if failed {
		return nil, ErrSpecializationFailed
	}

	return Seal(graph, req, cache)
}

// Seal freezes the cache into a deterministic Result and validates the
// session invariants. Call it only once every required key has been built:
// the result is read-only and the cache must receive no further writes.
func Seal(graph *Graph, req *Requirements, cache *Cache) (*Result, error) {
	instances := cache.Snapshot()
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Symbol < instances[j].Symbol
	})

	res := &Result{
		Graph:        graph,
		Requirements: req,
		Instances:    instances,
	}
	if err := validateResult(res); err != nil {
		return nil, err
	}
	return res, nil
}

// effectiveSet returns the capability set an instance of fn is keyed by when
// fn is Fixed or Default. Inherited functions have no set of their own.
func effectiveSet(node *Node) (caps.Set, bool) {
	if node.Mode == prog.ModeInherited {
		return caps.Set{}, false
	}
	return node.Fixed, true
}
