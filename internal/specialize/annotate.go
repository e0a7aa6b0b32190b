package specialize

import (
	"fmt"

	"capc/internal/caps"
	"capc/internal/diag"
	"capc/internal/prog"
	"capc/internal/source"
)

// Node is one annotated function: its capability mode, the set it fixes (for
// Fixed and Default modes) and the call/query sites found in its body.
type Node struct {
	Fn   *prog.Func
	Mode prog.ModeKind

	// Fixed holds the function's own set: the declared closure for ModeFixed,
	// the baseline for ModeDefault. Unset for ModeInherited.
	Fixed caps.Set

	Calls   []CallSite
	Queries []QuerySite
}

// CallSite is one call edge. Unresolved edges come from address-taken
// references and explicit indirect declarations: they name a callee but carry
// no statically known caller, so no set can be propagated through them.
type CallSite struct {
	Caller     prog.FuncID // NoFuncID for unresolved edges
	Callee     prog.FuncID
	Span       source.Span
	Unresolved bool
}

// QuerySite is one capability query in a function body.
type QuerySite struct {
	Fn   prog.FuncID
	Name string
	Span source.Span
}

// Graph is the annotated call graph for one compilation session.
type Graph struct {
	Module   *prog.Module
	Arch     string
	Baseline caps.Set
	Nodes    []*Node

	// Incoming unresolved edges per callee, in declaration order.
	Unresolved map[prog.FuncID][]CallSite
}

// Node returns the annotated node for id, or nil.
func (g *Graph) Node(id prog.FuncID) *Node {
	if !id.IsValid() || int(id) >= len(g.Nodes) {
		return nil
	}
	return g.Nodes[id]
}

// Annotate classifies every function of the module into its capability mode,
// validates Fixed declarations against the database and enumerates call and
// query sites. Unknown capability names in Fixed lists are reported and the
// returned ok is false.
func Annotate(m *prog.Module, db *caps.Database, arch string, baseline caps.Set, reporter diag.Reporter) (*Graph, bool) {
	g := &Graph{
		Module:     m,
		Arch:       arch,
		Baseline:   baseline,
		Nodes:      make([]*Node, len(m.Funcs)),
		Unresolved: make(map[prog.FuncID][]CallSite),
	}
	ok := true

	for _, fn := range m.Funcs {
		node := &Node{Fn: fn, Mode: fn.Mode.Kind}

		switch fn.Mode.Kind {
		case prog.ModeFixed:
			set, err := caps.NewSet(db, arch, fn.Mode.Features)
			if err != nil {
				reportSetError(reporter, err, fn.Mode.Span)
				ok = false
			} else {
				node.Fixed = set
			}
		case prog.ModeDefault:
			node.Fixed = baseline
		case prog.ModeInherited:
			// set supplied by callers during propagation
		}

		for _, op := range fn.Body {
			switch op.Kind {
			case prog.OpCall:
				if !op.Callee.IsValid() {
					continue // unresolved name, already reported by the frontend
				}
				node.Calls = append(node.Calls, CallSite{
					Caller: fn.ID,
					Callee: op.Callee,
					Span:   op.Span,
				})
			case prog.OpQuery:
				node.Queries = append(node.Queries, QuerySite{
					Fn:   fn.ID,
					Name: op.Name,
					Span: op.Span,
				})
			}
		}

		for _, span := range fn.IndirectSites {
			g.Unresolved[fn.ID] = append(g.Unresolved[fn.ID], CallSite{
				Caller:     prog.NoFuncID,
				Callee:     fn.ID,
				Span:       span,
				Unresolved: true,
			})
		}

		g.Nodes[fn.ID] = node
	}

	return g, ok
}

func reportSetError(reporter diag.Reporter, err error, span source.Span) {
	switch e := err.(type) {
	case *caps.UnknownCapabilityError:
		diag.ReportError(reporter, diag.CapUnknownCapability, span,
			fmt.Sprintf("unknown capability %q for architecture %q", e.Name, e.Arch)).Emit()
	case *caps.UnknownArchError:
		diag.ReportError(reporter, diag.CapUnknownArch, span,
			fmt.Sprintf("unknown architecture %q", e.Arch)).Emit()
	default:
		diag.ReportError(reporter, diag.CapBadDatabase, span, err.Error()).Emit()
	}
}
