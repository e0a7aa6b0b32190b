package specialize

import (
	"fmt"

	"capc/internal/caps"
	"capc/internal/diag"
	"capc/internal/prog"
)

// resolver rewrites function bodies for one concrete capability set: every
// query becomes a literal boolean and every call binds to the symbol of a
// concrete callee instance.
type resolver struct {
	graph    *Graph
	db       *caps.Database
	reporter diag.Reporter
}

// calleeSet returns the set the callee instance is keyed by, as seen from a
// caller active under `set`. Inherited callees take the caller's set
// unchanged; Fixed and Default callees resolve to their own single set.
func (r *resolver) calleeSet(callee *Node, set caps.Set) caps.Set {
	if callee.Mode == prog.ModeInherited {
		return set
	}
	return callee.Fixed
}

// buildInstance clones and rewrites fn's body under set. A query naming a
// capability that is invalid for the target architecture is an error
// (distinct from "valid but not in set", which resolves to false).
func (r *resolver) buildInstance(node *Node, set caps.Set) (*Instance, bool) {
	fn := node.Fn
	ok := true
	body := make([]InstOp, 0, len(fn.Body))

	for _, op := range fn.Body {
		switch op.Kind {
		case prog.OpQuery:
			if !r.db.Valid(r.graph.Arch, op.Name) {
				diag.ReportError(r.reporter, diag.CapUnknownCapability, op.Span,
					fmt.Sprintf("query names unknown capability %q for architecture %q", op.Name, r.graph.Arch)).Emit()
				ok = false
				continue
			}
			body = append(body, InstOp{
				Kind:  InstOpBool,
				Cap:   op.Name,
				Value: set.Contains(op.Name),
				Span:  op.Span,
			})
		case prog.OpCall:
			callee := r.graph.Node(op.Callee)
			if callee == nil {
				continue // undeclared callee, reported by the frontend
			}
			target := r.calleeSet(callee, set)
			body = append(body, InstOp{
				Kind:   InstOpCall,
				Callee: op.Callee,
				Target: MangleSymbol(callee.Fn.Name, target),
				Set:    target.Key(),
				Span:   op.Span,
			})
		}
	}
	if !ok {
		return nil, false
	}

	symbol := MangleSymbol(fn.Name, set)
	inst := &Instance{
		Key:    SpecKey{Fn: fn.ID, Set: set.Key()},
		Symbol: symbol,
		Origin: fn.Name,
		Set:    set,
		Body:   body,
		Hash:   bodyHash(symbol, body),
	}
	return inst, true
}

// BuildInstance materializes the instance for one required key through the
// cache. Safe for concurrent use across distinct or identical keys.
func BuildInstance(g *Graph, db *caps.Database, cache *Cache, key SpecKey, set caps.Set, reporter diag.Reporter) (*Instance, error) {
	node := g.Node(key.Fn)
	if node == nil {
		return nil, fmt.Errorf("specialization requested for unknown function id %d", key.Fn)
	}
	r := &resolver{graph: g, db: db, reporter: reporter}
	return cache.GetOrCreate(key, func() (*Instance, error) {
		inst, ok := r.buildInstance(node, set)
		if !ok {
			return nil, errResolveFailed
		}
		return inst, nil
	})
}

// errResolveFailed marks a build aborted by already-reported diagnostics. It
// matches ErrSpecializationFailed so callers outside the package can tell it
// apart from internal errors.
var errResolveFailed = fmt.Errorf("body resolution: %w", ErrSpecializationFailed)
