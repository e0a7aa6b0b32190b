package caps

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// dbFile is the TOML shape of a capability database:
//
//	[[arch]]
//	name = "x86_64"
//
//	  [[arch.feature]]
//	  name = "avx2"
//	  implies = ["avx"]
type dbFile struct {
	Arch []archSection `toml:"arch"`
}

type archSection struct {
	Name    string           `toml:"name"`
	Feature []featureSection `toml:"feature"`
}

type featureSection struct {
	Name    string   `toml:"name"`
	Implies []string `toml:"implies"`
}

// ParseDatabase decodes and validates a capability database from TOML bytes.
func ParseDatabase(data []byte) (*Database, error) {
	var file dbFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode capability database: %w", err)
	}

	db := NewDatabase()
	for _, arch := range file.Arch {
		if arch.Name == "" {
			return nil, fmt.Errorf("capability database: arch section without name")
		}
		for _, feat := range arch.Feature {
			if feat.Name == "" {
				return nil, fmt.Errorf("capability database: feature without name in arch %q", arch.Name)
			}
			db.AddFeature(arch.Name, feat.Name, feat.Implies...)
		}
	}
	if err := db.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate capability database: %w", err)
	}
	return db, nil
}

// LoadDatabase reads and parses a capability database file.
func LoadDatabase(path string) (*Database, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capability database %q: %w", path, err)
	}
	return ParseDatabase(data)
}
