package specialize

import (
	"fmt"
	"sort"
	"sync"

	"capc/internal/caps"
	"capc/internal/diag"
	"capc/internal/prog"
)

// FallbackPolicy decides what happens when an Inherited function is reached
// through an unresolved (indirect) call site.
type FallbackPolicy uint8

const (
	// FallbackError rejects the program (default).
	FallbackError FallbackPolicy = iota
	// FallbackBaseline substitutes the baseline set with a warning.
	FallbackBaseline
)

// Options configures one propagation/specialization pass.
type Options struct {
	MaxDepth         int
	IndirectFallback FallbackPolicy
}

const defaultMaxDepth = 64

// Requirements is a concurrency-safe record of every (function, set) pair
// that must be specialized. Independent call-graph partitions may feed it in
// parallel; Add is insert-if-absent.
type Requirements struct {
	mu   sync.Mutex
	sets map[SpecKey]caps.Set
}

// NewRequirements creates an empty requirement record.
func NewRequirements() *Requirements {
	return &Requirements{sets: make(map[SpecKey]caps.Set)}
}

// Add records that fn must be specialized for set. Reports whether the pair
// was new.
func (r *Requirements) Add(fn prog.FuncID, set caps.Set) bool {
	key := SpecKey{Fn: fn, Set: set.Key()}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sets[key]; ok {
		return false
	}
	r.sets[key] = set
	return true
}

// Len returns the number of recorded pairs.
func (r *Requirements) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

// Sorted returns every recorded pair ordered by function id, then set key,
// for deterministic downstream processing.
func (r *Requirements) Sorted() []SpecKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SpecKey, 0, len(r.sets))
	for k := range r.sets {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fn != out[j].Fn {
			return out[i].Fn < out[j].Fn
		}
		return out[i].Set < out[j].Set
	})
	return out
}

// Set returns the capability set recorded for key.
func (r *Requirements) Set(key SpecKey) (caps.Set, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sets[key]
	return s, ok
}

// Roots returns every Fixed and Default node: the seeds of propagation. Each
// root, together with the Inherited functions it reaches, forms an
// independent partition (propagation never merges sets across partitions).
func Roots(g *Graph) []prog.FuncID {
	var roots []prog.FuncID
	for _, node := range g.Nodes {
		if node == nil {
			continue
		}
		if node.Mode == prog.ModeFixed || node.Mode == prog.ModeDefault {
			roots = append(roots, node.Fn.ID)
		}
	}
	return roots
}

// CheckInheritedCycles rejects every cycle of Inherited calls that never
// crosses a Fixed/Default boundary. Within such a cycle the active set can
// never be established, so no speculative fixed point is attempted. The check
// covers the whole graph, including functions not reachable from any root.
func CheckInheritedCycles(g *Graph, reporter diag.Reporter) bool {
	const (
		visiting uint8 = iota + 1
		done
	)
	states := make(map[prog.FuncID]uint8, len(g.Nodes))
	ok := true

	var visit func(id prog.FuncID)
	visit = func(id prog.FuncID) {
		states[id] = visiting
		node := g.Node(id)
		for _, cs := range node.Calls {
			callee := g.Node(cs.Callee)
			if callee == nil || callee.Mode != prog.ModeInherited {
				continue // fixed/default boundary ends the chain
			}
			switch states[cs.Callee] {
			case visiting:
				// back edge: the chain returned to a function whose set is
				// still pending
				diag.ReportError(reporter, diag.SpecCyclicInheritancePropagation, cs.Span,
					fmt.Sprintf("capability inheritance cycle: call from %q back into %q never crosses a fixed or default boundary",
						node.Fn.Name, callee.Fn.Name)).
					WithNote(callee.Fn.NameSpan, "declared inherited here").
					Emit()
				ok = false
			case done:
			default:
				visit(cs.Callee)
			}
		}
		states[id] = done
	}

	for _, node := range g.Nodes {
		if node == nil || node.Mode != prog.ModeInherited {
			continue
		}
		if states[node.Fn.ID] == 0 {
			visit(node.Fn.ID)
		}
	}
	return ok
}

// CheckIndirectEntries applies the indirect-call policy to every Inherited
// function with an unresolved incoming edge. Under FallbackError the program
// is rejected; under FallbackBaseline the entry is specialized at the
// baseline set, with a warning, and the baseline propagates through its
// inherited callees like any other entry point.
func CheckIndirectEntries(g *Graph, opts Options, req *Requirements, reporter diag.Reporter) bool {
	ok := true
	for _, node := range g.Nodes {
		if node == nil || node.Mode != prog.ModeInherited {
			continue
		}
		sites := g.Unresolved[node.Fn.ID]
		if len(sites) == 0 {
			continue
		}
		for _, cs := range sites {
			switch opts.IndirectFallback {
			case FallbackBaseline:
				diag.ReportWarning(reporter, diag.SpecIndirectBaselineFallback, cs.Span,
					fmt.Sprintf("indirect call into inherited function %q uses the baseline set %s",
						node.Fn.Name, g.Baseline)).Emit()
				if !propagateSet(g, node.Fn.ID, g.Baseline, opts, req, reporter) {
					ok = false
				}
			default:
				diag.ReportError(reporter, diag.SpecIndirectInheritedCall, cs.Span,
					fmt.Sprintf("inherited function %q is reached through an indirect call; no caller capability set can be propagated",
						node.Fn.Name)).
					WithNote(node.Fn.NameSpan, "declared inherited here").
					Emit()
				ok = false
			}
		}
	}
	return ok
}

// PropagateFrom walks one root's partition, threading the root's own set
// through every chain of Inherited callees unchanged and recording each new
// (function, set) pair. Pass-through only: the set is never widened or
// narrowed across an Inherited boundary.
func PropagateFrom(g *Graph, root prog.FuncID, opts Options, req *Requirements, reporter diag.Reporter) bool {
	rootNode := g.Node(root)
	if rootNode == nil || rootNode.Mode == prog.ModeInherited {
		return true
	}
	return propagateSet(g, root, rootNode.Fixed, opts, req, reporter)
}

// propagateSet runs the worklist from one entry point under one set.
func propagateSet(g *Graph, start prog.FuncID, set caps.Set, opts Options, req *Requirements, reporter diag.Reporter) bool {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	if !req.Add(start, set) {
		return true
	}

	type workItem struct {
		id    prog.FuncID
		depth int
	}
	worklist := []workItem{{id: start, depth: 0}}
	ok := true

	for len(worklist) > 0 {
		item := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		node := g.Node(item.id)
		for _, cs := range node.Calls {
			callee := g.Node(cs.Callee)
			if callee == nil || callee.Mode != prog.ModeInherited {
				// Fixed and Default callees are self-specializing and
				// independently seeded.
				continue
			}
			if item.depth+1 > maxDepth {
				diag.ReportError(reporter, diag.SpecDepthExceeded, cs.Span,
					fmt.Sprintf("inheritance chain through %q exceeds depth limit %d", callee.Fn.Name, maxDepth)).Emit()
				ok = false
				continue
			}
			if req.Add(cs.Callee, set) {
				worklist = append(worklist, workItem{id: cs.Callee, depth: item.depth + 1})
			}
		}
	}
	return ok
}

// Propagate runs the full serial pass: cycle check, indirect policy, then a
// worklist walk from every Fixed/Default root.
func Propagate(g *Graph, opts Options, reporter diag.Reporter) (*Requirements, bool) {
	req := NewRequirements()

	ok := CheckInheritedCycles(g, reporter)
	if !CheckIndirectEntries(g, opts, req, reporter) {
		ok = false
	}
	for _, root := range Roots(g) {
		if !PropagateFrom(g, root, opts, req, reporter) {
			ok = false
		}
	}
	return req, ok
}
