package prog

import (
	"fmt"

	"fortio.org/safecast"

	"capc/internal/source"
)

// FuncID identifies a function within one Module.
type FuncID uint32

// NoFuncID is the invalid function id.
const NoFuncID = FuncID(^uint32(0))

// IsValid reports whether the id refers to a function.
func (id FuncID) IsValid() bool {
	return id != NoFuncID
}

// ModeKind classifies how a function obtains its capability set.
type ModeKind uint8

const (
	// ModeDefault means no declaration: the function is compiled for the
	// target baseline set.
	ModeDefault ModeKind = iota
	// ModeFixed means the function declares its own capability list.
	ModeFixed
	// ModeInherited means the function takes whatever set is active at its
	// call site.
	ModeInherited
)

func (k ModeKind) String() string {
	switch k {
	case ModeDefault:
		return "default"
	case ModeFixed:
		return "fixed"
	case ModeInherited:
		return "inherit"
	}
	return "unknown"
}

// Mode is a function's declared capability mode. Features is only meaningful
// for ModeFixed and holds the names exactly as declared (not yet validated or
// closed over implications).
type Mode struct {
	Kind     ModeKind
	Features []string
	Span     source.Span
}

// OpKind discriminates body operations.
type OpKind uint8

const (
	// OpCall is a direct call to another declared function.
	OpCall OpKind = iota
	// OpQuery is a compile-time capability membership test.
	OpQuery
)

// Op is one body operation in declaration order. For OpCall, Callee is
// resolved after the whole file is parsed; for OpQuery it stays NoFuncID and
// Name holds the queried capability.
type Op struct {
	Kind   OpKind
	Name   string
	Callee FuncID
	Span   source.Span
}

// Func is one declared function.
type Func struct {
	ID       FuncID
	Name     string
	Mode     Mode
	Body     []Op
	Span     source.Span
	NameSpan source.Span

	// AddressTaken marks functions whose reference escapes (top-level "ref"
	// declaration); calls through such a reference have no static caller.
	AddressTaken bool

	// IndirectSites are the spans of explicit "indirect" declarations naming
	// this function as the target of an unresolved call.
	IndirectSites []source.Span
}

// Module is one parsed declaration file.
type Module struct {
	File   source.FileID
	Funcs  []*Func
	byName map[string]FuncID
}

// NewModule creates an empty module for the given file.
func NewModule(file source.FileID) *Module {
	return &Module{
		File:   file,
		byName: make(map[string]FuncID),
	}
}

// AddFunc appends fn, assigns its ID and indexes it by name.
// Returns false if the name is already declared.
func (m *Module) AddFunc(fn *Func) bool {
	if _, dup := m.byName[fn.Name]; dup {
		return false
	}
	id, err := safecast.Conv[uint32](len(m.Funcs))
	if err != nil {
		panic(fmt.Errorf("func count overflow: %w", err))
	}
	fn.ID = FuncID(id)
	m.Funcs = append(m.Funcs, fn)
	m.byName[fn.Name] = fn.ID
	return true
}

// Lookup returns the function declared under name.
func (m *Module) Lookup(name string) (*Func, bool) {
	id, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return m.Funcs[id], true
}

// Get returns the function with the given id, or nil.
func (m *Module) Get(id FuncID) *Func {
	if !id.IsValid() || int(id) >= len(m.Funcs) {
		return nil
	}
	return m.Funcs[id]
}
