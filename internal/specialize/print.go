package specialize

import (
	"fmt"
	"io"
)

// DumpOptions configures the instance dump.
type DumpOptions struct {
	// If true, prints only instance headers.
	HeadersOnly bool
}

// Dump writes a text representation of every instance to w, in symbol order.
// Shape, one instance per block:
//
//	fn kernel$avx+avx2+... {avx, avx2, ...} (from kernel)
//	  query avx2 -> true
//	  call helper$...
func Dump(w io.Writer, res *Result, opts DumpOptions) error {
	if w == nil || res == nil {
		return nil
	}
	for _, inst := range res.Instances {
		if _, err := fmt.Fprintf(w, "fn %s %s (from %s)\n", inst.Symbol, inst.Set, inst.Origin); err != nil {
			return err
		}
		if opts.HeadersOnly {
			continue
		}
		for _, op := range inst.Body {
			var err error
			switch op.Kind {
			case InstOpBool:
				_, err = fmt.Fprintf(w, "  query %s -> %t\n", op.Cap, op.Value)
			case InstOpCall:
				_, err = fmt.Fprintf(w, "  call %s\n", op.Target)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
