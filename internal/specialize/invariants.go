package specialize

import (
	"fmt"

	"capc/internal/prog"
)

// validateResult checks the sealed session against the engine's invariants:
//
//  1. every query literal in an instance keyed by (f, S) equals membership of
//     the queried capability in S;
//  2. at most one instance per key;
//  3. a Fixed/Default function has exactly one instance, keyed by its own set;
//  4. calls inside an instance keyed by S reference Inherited callees at
//     exactly S (pass-through, no drift).
//
// A violation is an internal bug, never a user-facing diagnostic.
func validateResult(res *Result) error {
	seen := make(map[SpecKey]*Instance, len(res.Instances))
	perFunc := make(map[prog.FuncID]int)

	for _, inst := range res.Instances {
		if prev, dup := seen[inst.Key]; dup {
			return fmt.Errorf("%w: key %v held by %q and %q", ErrConflictingCacheEntry, inst.Key, prev.Symbol, inst.Symbol)
		}
		seen[inst.Key] = inst
		perFunc[inst.Key.Fn]++

		for _, op := range inst.Body {
			switch op.Kind {
			case InstOpBool:
				if want := inst.Set.Contains(op.Cap); op.Value != want {
					return fmt.Errorf("instance %q: query %q resolved %v, want %v", inst.Symbol, op.Cap, op.Value, want)
				}
			case InstOpCall:
				callee := res.Graph.Node(op.Callee)
				if callee == nil {
					return fmt.Errorf("instance %q: call references unknown function id %d", inst.Symbol, op.Callee)
				}
				if callee.Mode == prog.ModeInherited && op.Set != inst.Key.Set {
					return fmt.Errorf("instance %q: inherited callee %q keyed by %q, want %q (set drift)",
						inst.Symbol, callee.Fn.Name, op.Set, inst.Key.Set)
				}
			}
		}
	}

	for _, node := range res.Graph.Nodes {
		if node == nil {
			continue
		}
		own, fixed := effectiveSet(node)
		if !fixed {
			continue
		}
		count := perFunc[node.Fn.ID]
		if count > 1 {
			return fmt.Errorf("function %q has %d instances, want at most 1 for %s mode", node.Fn.Name, count, node.Mode)
		}
		if count == 1 {
			if _, ok := seen[SpecKey{Fn: node.Fn.ID, Set: own.Key()}]; !ok {
				return fmt.Errorf("function %q instance is not keyed by its own set %s", node.Fn.Name, own)
			}
		}
	}

	return nil
}
