package caps

import (
	"fmt"
)

// UnknownCapabilityError reports a capability name that is not valid for the
// target architecture.
type UnknownCapabilityError struct {
	Arch string
	Name string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("unknown capability %q for architecture %q", e.Name, e.Arch)
}

// UnknownArchError reports an architecture absent from the database.
type UnknownArchError struct {
	Arch string
}

func (e *UnknownArchError) Error() string {
	return fmt.Sprintf("unknown architecture %q", e.Arch)
}

// ImplicationCycleError reports a cycle in the implication graph of the
// capability database.
type ImplicationCycleError struct {
	Arch string
	Name string
}

func (e *ImplicationCycleError) Error() string {
	return fmt.Sprintf("capability implication cycle through %q for architecture %q", e.Name, e.Arch)
}
