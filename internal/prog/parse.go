package prog

import (
	"fmt"

	"capc/internal/diag"
	"capc/internal/source"
)

// Parse builds a Module from one declaration file. Grammar, one item per
// construct:
//
//	fn <name> default { ... }
//	fn <name> inherit { ... }
//	fn <name> fixed(<cap>, <cap>, ...) { ... }
//	ref <name>
//	indirect <name>
//
// Bodies hold "call <name>" and "query <cap>" statements. "#" starts a line
// comment. Call targets are resolved after the whole file is parsed, so
// declaration order does not matter.
//
// Syntax and resolution problems go to the reporter; the returned module
// covers everything that parsed cleanly.
func Parse(file *source.File, reporter diag.Reporter) *Module {
	p := &parser{
		file:     file,
		module:   NewModule(file.ID),
		reporter: reporter,
	}
	p.parseFile()
	p.resolveCalls()
	return p.module
}

type parser struct {
	file     *source.File
	module   *Module
	reporter diag.Reporter
	pos      uint32

	// pending ref/indirect declarations, resolved with calls
	refs      []pendingRef
	indirects []pendingRef
}

type pendingRef struct {
	name string
	span source.Span
}

func (p *parser) parseFile() {
	for {
		p.skipTrivia()
		if p.eof() {
			return
		}
		word, span := p.ident()
		switch word {
		case "fn":
			p.parseFn(span)
		case "ref":
			name, nameSpan := p.ident()
			if name == "" {
				diag.ReportError(p.reporter, diag.SynExpectIdentifier, nameSpan, "expected function name after 'ref'").Emit()
				p.skipLine()
				continue
			}
			p.refs = append(p.refs, pendingRef{name: name, span: nameSpan})
		case "indirect":
			name, nameSpan := p.ident()
			if name == "" {
				diag.ReportError(p.reporter, diag.SynExpectIdentifier, nameSpan, "expected function name after 'indirect'").Emit()
				p.skipLine()
				continue
			}
			p.indirects = append(p.indirects, pendingRef{name: name, span: nameSpan})
		case "":
			diag.ReportError(p.reporter, diag.SynUnexpectedToken, p.hereSpan(), fmt.Sprintf("unexpected character %q", p.peek())).Emit()
			p.skipLine()
		default:
			diag.ReportError(p.reporter, diag.SynUnexpectedToken, span, fmt.Sprintf("unexpected %q at top level", word)).Emit()
			p.skipLine()
		}
	}
}

func (p *parser) parseFn(fnSpan source.Span) {
	name, nameSpan := p.ident()
	if name == "" {
		diag.ReportError(p.reporter, diag.SynExpectIdentifier, nameSpan, "expected function name after 'fn'").Emit()
		p.skipLine()
		return
	}

	mode, ok := p.parseMode()
	if !ok {
		p.skipLine()
		return
	}

	p.skipTrivia()
	if !p.consume('{') {
		diag.ReportError(p.reporter, diag.SynExpectBody, p.hereSpan(), fmt.Sprintf("expected '{' to open body of %q", name)).Emit()
		p.skipLine()
		return
	}

	fn := &Func{
		Name:     name,
		Mode:     mode,
		Span:     fnSpan,
		NameSpan: nameSpan,
	}
	p.parseBody(fn)
	fn.Span = fn.Span.Cover(p.hereSpan())

	if !p.module.AddFunc(fn) {
		prev, _ := p.module.Lookup(name)
		diag.ReportError(p.reporter, diag.SynDuplicateFn, nameSpan, fmt.Sprintf("function %q is already declared", name)).
			WithNote(prev.NameSpan, "previous declaration here").
			Emit()
	}
}

func (p *parser) parseMode() (Mode, bool) {
	word, span := p.ident()
	switch word {
	case "default":
		return Mode{Kind: ModeDefault, Span: span}, true
	case "inherit":
		return Mode{Kind: ModeInherited, Span: span}, true
	case "fixed":
		features, featSpan, ok := p.parseFeatureList()
		if !ok {
			return Mode{}, false
		}
		return Mode{Kind: ModeFixed, Features: features, Span: span.Cover(featSpan)}, true
	case "":
		diag.ReportError(p.reporter, diag.SynUnknownMode, p.hereSpan(), "expected capability mode (default, inherit or fixed)").Emit()
		return Mode{}, false
	default:
		diag.ReportError(p.reporter, diag.SynUnknownMode, span, fmt.Sprintf("unknown capability mode %q", word)).Emit()
		return Mode{}, false
	}
}

func (p *parser) parseFeatureList() ([]string, source.Span, bool) {
	p.skipTrivia()
	open := p.hereSpan()
	if !p.consume('(') {
		diag.ReportError(p.reporter, diag.SynExpectFeature, open, "expected '(' after 'fixed'").Emit()
		return nil, open, false
	}

	var features []string
	span := open
	for {
		p.skipTrivia()
		if p.consume(')') {
			return features, span.Cover(p.hereSpan()), true
		}
		if p.eof() {
			diag.ReportError(p.reporter, diag.SynExpectFeature, open, "unterminated capability list").Emit()
			return nil, span, false
		}
		name, nameSpan := p.ident()
		if name == "" {
			diag.ReportError(p.reporter, diag.SynExpectFeature, p.hereSpan(), "expected capability name").Emit()
			return nil, span, false
		}
		features = append(features, name)
		span = span.Cover(nameSpan)
		p.skipTrivia()
		p.consume(',')
	}
}

func (p *parser) parseBody(fn *Func) {
	for {
		p.skipTrivia()
		if p.eof() {
			diag.ReportError(p.reporter, diag.SynUnclosedBody, fn.NameSpan, fmt.Sprintf("body of %q is never closed", fn.Name)).Emit()
			return
		}
		if p.consume('}') {
			return
		}

		word, span := p.ident()
		switch word {
		case "call":
			name, nameSpan := p.ident()
			if name == "" {
				diag.ReportError(p.reporter, diag.SynExpectIdentifier, nameSpan, "expected callee name after 'call'").Emit()
				p.skipLine()
				continue
			}
			fn.Body = append(fn.Body, Op{Kind: OpCall, Name: name, Callee: NoFuncID, Span: span.Cover(nameSpan)})
		case "query":
			name, nameSpan := p.ident()
			if name == "" {
				diag.ReportError(p.reporter, diag.SynExpectIdentifier, nameSpan, "expected capability name after 'query'").Emit()
				p.skipLine()
				continue
			}
			fn.Body = append(fn.Body, Op{Kind: OpQuery, Name: name, Callee: NoFuncID, Span: span.Cover(nameSpan)})
		case "":
			diag.ReportError(p.reporter, diag.SynUnexpectedToken, p.hereSpan(), fmt.Sprintf("unexpected character %q in body", p.peek())).Emit()
			p.skipLine()
		default:
			diag.ReportError(p.reporter, diag.SynUnexpectedToken, span, fmt.Sprintf("unexpected %q in body", word)).Emit()
			p.skipLine()
		}
	}
}

// resolveCalls binds call statements and ref/indirect declarations to
// function ids once every declaration is known.
func (p *parser) resolveCalls() {
	for _, fn := range p.module.Funcs {
		for i := range fn.Body {
			op := &fn.Body[i]
			if op.Kind != OpCall {
				continue
			}
			callee, ok := p.module.Lookup(op.Name)
			if !ok {
				diag.ReportError(p.reporter, diag.SynUnknownCallee, op.Span, fmt.Sprintf("call to undeclared function %q", op.Name)).Emit()
				continue
			}
			op.Callee = callee.ID
		}
	}

	for _, ref := range p.refs {
		fn, ok := p.module.Lookup(ref.name)
		if !ok {
			diag.ReportError(p.reporter, diag.SynUnknownCallee, ref.span, fmt.Sprintf("'ref' names undeclared function %q", ref.name)).Emit()
			continue
		}
		fn.AddressTaken = true
		fn.IndirectSites = append(fn.IndirectSites, ref.span)
	}
	for _, ind := range p.indirects {
		fn, ok := p.module.Lookup(ind.name)
		if !ok {
			diag.ReportError(p.reporter, diag.SynUnknownCallee, ind.span, fmt.Sprintf("'indirect' names undeclared function %q", ind.name)).Emit()
			continue
		}
		fn.IndirectSites = append(fn.IndirectSites, ind.span)
	}
}

// --- scanner ---

func (p *parser) eof() bool {
	return int(p.pos) >= len(p.file.Content)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.file.Content[p.pos]
}

func (p *parser) hereSpan() source.Span {
	end := p.pos
	if !p.eof() {
		end++
	}
	return source.Span{File: p.file.ID, Start: p.pos, End: end}
}

func (p *parser) skipTrivia() {
	for !p.eof() {
		c := p.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '#':
			p.skipLine()
		default:
			return
		}
	}
}

func (p *parser) skipLine() {
	for !p.eof() && p.peek() != '\n' {
		p.pos++
	}
}

func (p *parser) consume(c byte) bool {
	if !p.eof() && p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func isIdentByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-':
		return true
	}
	return false
}

// ident scans the next identifier after trivia. Returns "" with a one-byte
// span at the current position when the next byte is not an identifier.
func (p *parser) ident() (string, source.Span) {
	p.skipTrivia()
	start := p.pos
	for !p.eof() && isIdentByte(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return "", p.hereSpan()
	}
	return string(p.file.Content[start:p.pos]), source.Span{File: p.file.ID, Start: start, End: p.pos}
}
