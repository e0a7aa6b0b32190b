package caps

import (
	"slices"
	"sort"
)

// Database holds, per target architecture, the valid capability names and
// their implication sets (a wider capability implies the narrower ones it
// subsumes). The database is an external input: the engine never invents
// capability names.
type Database struct {
	arches map[string]archInfo
}

type archInfo struct {
	implies map[string][]string // feature -> directly implied features
}

// NewDatabase creates an empty database. Use AddFeature to populate it, or
// LoadDatabase/ParseDatabase for the TOML form.
func NewDatabase() *Database {
	return &Database{arches: make(map[string]archInfo)}
}

// AddFeature registers name for arch with its directly implied features.
// Implied names are not required to exist yet; Validate checks referential
// integrity once the database is complete.
func (db *Database) AddFeature(arch, name string, implies ...string) {
	info, ok := db.arches[arch]
	if !ok {
		info = archInfo{implies: make(map[string][]string)}
		db.arches[arch] = info
	}
	info.implies[name] = append(info.implies[name], implies...)
}

// HasArch reports whether arch is present.
func (db *Database) HasArch(arch string) bool {
	_, ok := db.arches[arch]
	return ok
}

// Valid reports whether name is a known capability for arch.
func (db *Database) Valid(arch, name string) bool {
	info, ok := db.arches[arch]
	if !ok {
		return false
	}
	_, ok = info.implies[name]
	return ok
}

// Arches returns the sorted list of known architectures.
func (db *Database) Arches() []string {
	out := make([]string, 0, len(db.arches))
	for a := range db.arches {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Features returns the sorted list of valid capability names for arch.
func (db *Database) Features(arch string) []string {
	info, ok := db.arches[arch]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(info.implies))
	for n := range info.implies {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Closure validates names against arch and expands them through the
// implication graph. The result is sorted and deduplicated.
func (db *Database) Closure(arch string, names []string) ([]string, error) {
	info, ok := db.arches[arch]
	if !ok {
		return nil, &UnknownArchError{Arch: arch}
	}

	seen := make(map[string]struct{}, len(names))
	var walk func(name string)
	walk = func(name string) {
		if _, done := seen[name]; done {
			return
		}
		seen[name] = struct{}{}
		for _, implied := range info.implies[name] {
			walk(implied)
		}
	}

	for _, n := range names {
		if _, ok := info.implies[n]; !ok {
			return nil, &UnknownCapabilityError{Arch: arch, Name: n}
		}
		walk(n)
	}

	if len(seen) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out, nil
}

// Validate checks referential integrity (every implied name is itself a
// valid capability) and rejects implication cycles.
func (db *Database) Validate() error {
	for _, arch := range db.Arches() {
		info := db.arches[arch]
		for _, name := range db.Features(arch) {
			for _, implied := range info.implies[name] {
				if _, ok := info.implies[implied]; !ok {
					return &UnknownCapabilityError{Arch: arch, Name: implied}
				}
			}
		}
		if err := detectImplicationCycle(arch, info); err != nil {
			return err
		}
	}
	return nil
}

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

// detectImplicationCycle walks the implication edges depth-first and reports
// the first node that re-enters its own visit.
func detectImplicationCycle(arch string, info archInfo) error {
	states := make(map[string]visitState, len(info.implies))

	var visit func(name string) error
	visit = func(name string) error {
		switch states[name] {
		case stateVisiting:
			return &ImplicationCycleError{Arch: arch, Name: name}
		case stateDone:
			return nil
		}
		states[name] = stateVisiting
		for _, implied := range info.implies[name] {
			if err := visit(implied); err != nil {
				return err
			}
		}
		states[name] = stateDone
		return nil
	}

	for name := range info.implies {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDatabase returns a small built-in database covering common x86-64
// and aarch64 vector extensions, enough for tests and quick runs without an
// external database file.
func DefaultDatabase() *Database {
	db := NewDatabase()

	db.AddFeature("x86_64", "sse2")
	db.AddFeature("x86_64", "sse3", "sse2")
	db.AddFeature("x86_64", "ssse3", "sse3")
	db.AddFeature("x86_64", "sse4.1", "ssse3")
	db.AddFeature("x86_64", "sse4.2", "sse4.1")
	db.AddFeature("x86_64", "popcnt")
	db.AddFeature("x86_64", "avx", "sse4.2")
	db.AddFeature("x86_64", "avx2", "avx")
	db.AddFeature("x86_64", "fma", "avx")
	db.AddFeature("x86_64", "avx512f", "avx2")
	db.AddFeature("x86_64", "avx512bw", "avx512f")
	db.AddFeature("x86_64", "avx512vl", "avx512f")

	db.AddFeature("aarch64", "neon")
	db.AddFeature("aarch64", "dotprod", "neon")
	db.AddFeature("aarch64", "fp16", "neon")
	db.AddFeature("aarch64", "sve")
	db.AddFeature("aarch64", "sve2", "sve")

	return db
}
