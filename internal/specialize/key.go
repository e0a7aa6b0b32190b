package specialize

import (
	"crypto/sha256"
	"strings"

	"capc/internal/caps"
	"capc/internal/prog"
	"capc/internal/source"
)

// SpecKey identifies one required specialization: a function compiled for one
// concrete capability set.
//
// Note: Go maps cannot use slices as keys, so the set is stored in its
// canonical caps.Key form. Two keys are equal iff both the function and the
// set members are equal.
type SpecKey struct {
	Fn  prog.FuncID
	Set caps.Key
}

// InstOpKind discriminates operations in a resolved instance body.
type InstOpKind uint8

const (
	// InstOpBool is a capability query rewritten into a literal boolean.
	InstOpBool InstOpKind = iota
	// InstOpCall is a call bound to a concrete specialized instance symbol.
	InstOpCall
)

// InstOp is one operation of a resolved body. For InstOpBool, Cap holds the
// queried capability and Value the resolved literal. For InstOpCall, Target
// holds the mangled symbol of the callee instance and Set its capability key.
type InstOp struct {
	Kind   InstOpKind
	Cap    string
	Value  bool
	Callee prog.FuncID
	Target string
	Set    caps.Key
	Span   source.Span
}

// Instance is one fully resolved specialization: every query is a literal and
// every call names a concrete instance symbol. Instances are immutable once
// built.
type Instance struct {
	Key    SpecKey
	Symbol string // mangled instance symbol
	Origin string // declared function name
	Set    caps.Set
	Body   []InstOp
	Hash   [32]byte
}

// MangleSymbol derives the deterministic instance symbol for a function name
// and capability set. It depends only on the key, so callers can name an
// instance before it exists.
func MangleSymbol(name string, set caps.Set) string {
	return name + "$" + string(set.Key())
}

// bodyHash fingerprints a resolved body. Two instances for the same key must
// always agree on this hash; a mismatch means the build was not deterministic.
func bodyHash(symbol string, body []InstOp) [32]byte {
	var sb strings.Builder
	sb.WriteString(symbol)
	for _, op := range body {
		sb.WriteByte('\n')
		switch op.Kind {
		case InstOpBool:
			sb.WriteString("query ")
			sb.WriteString(op.Cap)
			if op.Value {
				sb.WriteString(" true")
			} else {
				sb.WriteString(" false")
			}
		case InstOpCall:
			sb.WriteString("call ")
			sb.WriteString(op.Target)
		}
	}
	return sha256.Sum256([]byte(sb.String()))
}
