// Package config persists per-process profiles: which mods the user enabled
// and any addresses they chose to save. Addresses move between runs, so a
// loaded address is a hint to re-verify, not a fact.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vondutchi/vondutch-patcher/pkg/events"
)

// ModState holds the persisted per-mod settings.
type ModState struct {
	Enabled bool `yaml:"enabled"`
}

// Profile is everything persisted for one target process.
type Profile struct {
	// Addresses maps a user-chosen label to a resolved address.
	Addresses map[string]uint64 `yaml:"addresses,omitempty"`
	// Mods maps mod name to its persisted state.
	Mods map[string]ModState `yaml:"mods,omitempty"`
}

// NewProfile returns an empty profile with both maps allocated.
func NewProfile() *Profile {
	return &Profile{
		Addresses: make(map[string]uint64),
		Mods:      make(map[string]ModState),
	}
}

// Store reads and writes profiles in one directory, one file per process.
type Store struct {
	dir string
	log events.Log
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string, log events.Log) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Load reads the profile for processName. A missing profile is reported as
// a warning and returns (nil, nil); only a present-but-unreadable file is
// an error.
func (s *Store) Load(processName string) (*Profile, error) {
	path := s.resolvePath(processName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		events.Report(s.log, events.ConfigLoaded, events.Warning, "no config found for %s", processName)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config for %s: %w", processName, err)
	}

	profile := NewProfile()
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("parse config for %s: %w", processName, err)
	}

	events.Report(s.log, events.ConfigLoaded, events.Info, "loaded config for %s", processName)
	return profile, nil
}

// Save writes the profile for processName.
func (s *Store) Save(processName string, profile *Profile) error {
	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode config for %s: %w", processName, err)
	}

	path := s.resolvePath(processName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("save config for %s: %w", processName, err)
	}

	events.Report(s.log, events.ConfigSaved, events.Info, "saved config for %s", processName)
	return nil
}

// resolvePath maps a process name to its profile file, replacing characters
// that are unsafe in filenames.
func (s *Store) resolvePath(processName string) string {
	sanitized := strings.Map(func(r rune) rune {
		if r == ' ' || r == ':' || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, processName)
	return filepath.Join(s.dir, sanitized+".yaml")
}
