package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"capc/internal/source"
)

// RenderOpts configures pretty-printing of diagnostics.
type RenderOpts struct {
	Color       bool
	ShowNotes   bool
	ShowPreview bool
}

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	caretLine = color.New(color.FgGreen)
)

// Render formats diagnostics in a human readable form.
// Walks bag.Items() (call bag.Sort() beforehand). For each diagnostic it
// prints
//
//	<path>:<line>:<col>: <SEV> <ID>: <message>
//
// followed by the source line with a ^~~~ underline, then notes in the same
// shape.
func Render(w io.Writer, bag *Bag, fs *source.FileSet, opts RenderOpts) {
	for _, d := range bag.Items() {
		renderOne(w, d, fs, opts)
	}
}

func renderOne(w io.Writer, d Diagnostic, fs *source.FileSet, opts RenderOpts) {
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		location(fs, d.Primary),
		severityText(d.Severity, opts.Color),
		d.Code.ID(),
		d.Message)

	if opts.ShowPreview {
		renderPreview(w, fs, d.Primary, opts)
	}

	if opts.ShowNotes {
		for _, n := range d.Notes {
			fmt.Fprintf(w, "%s: note: %s\n", location(fs, n.Span), n.Msg)
			if opts.ShowPreview {
				renderPreview(w, fs, n.Span, opts)
			}
		}
	}
}

func location(fs *source.FileSet, span source.Span) string {
	if fs == nil || span == (source.Span{}) {
		return "<unknown>"
	}
	f := fs.Get(span.File)
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", f.Path, start.Line, start.Col)
}

func severityText(sev Severity, colorize bool) string {
	if !colorize {
		return sev.String()
	}
	switch sev {
	case SevError:
		return errColor.Sprint(sev.String())
	case SevWarning:
		return warnColor.Sprint(sev.String())
	default:
		return infoColor.Sprint(sev.String())
	}
}

func renderPreview(w io.Writer, fs *source.FileSet, span source.Span, opts RenderOpts) {
	if fs == nil || span.Empty() {
		return
	}
	f := fs.Get(span.File)
	start, end := fs.Resolve(span)
	line := f.GetLine(start.Line)
	if line == "" {
		return
	}
	fmt.Fprintf(w, "  %s\n", line)

	underlineLen := 1
	if end.Line == start.Line && end.Col > start.Col {
		underlineLen = int(end.Col - start.Col)
	}
	underline := "^" + strings.Repeat("~", max(underlineLen-1, 0))
	marker := strings.Repeat(" ", int(start.Col-1)) + underline
	if opts.Color {
		marker = caretLine.Sprint(marker)
	}
	fmt.Fprintf(w, "  %s\n", marker)
}
