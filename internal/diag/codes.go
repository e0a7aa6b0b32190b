package diag

import (
	"fmt"
)

// Code is a compact numeric identifier with a stable string form.
type Code uint16

const (
	UnknownCode Code = 0

	// Declaration-file syntax (1000-1999)
	SynInfo             Code = 1000
	SynUnexpectedToken  Code = 1001
	SynExpectIdentifier Code = 1002
	SynUnclosedBody     Code = 1003
	SynDuplicateFn      Code = 1004
	SynUnknownMode      Code = 1005
	SynExpectFeature    Code = 1006
	SynUnknownCallee    Code = 1007
	SynExpectBody       Code = 1008

	// Capability database and sets (2000-2999)
	CapInfo              Code = 2000
	CapUnknownCapability Code = 2001
	CapUnknownArch       Code = 2002
	CapBadDatabase       Code = 2003
	CapImplicationCycle  Code = 2004

	// Propagation and specialization (3000-3999)
	SpecInfo                         Code = 3000
	SpecIndirectInheritedCall        Code = 3001
	SpecCyclicInheritancePropagation Code = 3002
	SpecConflictingCacheEntry        Code = 3003
	SpecIndirectBaselineFallback     Code = 3004
	SpecDepthExceeded                Code = 3005

	// Driver / IO / manifest (4000-4999)
	IOInfo        Code = 4000
	IOReadFailed  Code = 4001
	IOBadManifest Code = 4002
	IOWriteFailed Code = 4003
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	SynInfo:             "Syntax info",
	SynUnexpectedToken:  "Unexpected token",
	SynExpectIdentifier: "Expected identifier",
	SynUnclosedBody:     "Unclosed function body",
	SynDuplicateFn:      "Duplicate function declaration",
	SynUnknownMode:      "Unknown capability mode",
	SynExpectFeature:    "Expected capability name",
	SynUnknownCallee:    "Call to undeclared function",
	SynExpectBody:       "Expected function body",

	CapInfo:              "Capability info",
	CapUnknownCapability: "Unknown capability for target architecture",
	CapUnknownArch:       "Unknown target architecture",
	CapBadDatabase:       "Malformed capability database",
	CapImplicationCycle:  "Capability implication cycle",

	SpecInfo:                         "Specialization info",
	SpecIndirectInheritedCall:        "Inherited function reached through indirect call",
	SpecCyclicInheritancePropagation: "Cyclic capability inheritance without fixed boundary",
	SpecConflictingCacheEntry:        "Conflicting specialization cache entry",
	SpecIndirectBaselineFallback:     "Indirect call into inherited function falls back to baseline set",
	SpecDepthExceeded:                "Propagation depth limit exceeded",

	IOInfo:        "Driver info",
	IOReadFailed:  "Failed to read input",
	IOBadManifest: "Malformed session manifest",
	IOWriteFailed: "Failed to write output",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("CAP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SPC%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
