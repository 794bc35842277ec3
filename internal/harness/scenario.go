package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lfmerge/internal/updates"
)

// Scenario defines a merge conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Base lists the entries of the base document, in order.
	Base []EntrySpec `yaml:"base"`

	// Updates lists update files in the order they are written.
	Updates []UpdateSpec `yaml:"updates,omitempty"`

	// Expect describes the outcome.
	Expect Expectation `yaml:"expect"`
}

// EntrySpec describes one <entry>.
type EntrySpec struct {
	ID   string `yaml:"id"`
	GUID string `yaml:"guid"`
	Text string `yaml:"text,omitempty"`

	// Deleted, when set, renders the entry as a tombstone with this date.
	Deleted string `yaml:"deleted,omitempty"`
}

// UpdateSpec describes one update file.
type UpdateSpec struct {
	// Name is the file name, including the .lift.update extension. It may be
	// left empty when Project, Sha and Suffix are given instead.
	Name string `yaml:"name,omitempty"`

	Project string `yaml:"project,omitempty"`
	Sha     string `yaml:"sha,omitempty"`
	Suffix  string `yaml:"suffix,omitempty"`

	// Entries are wrapped in a <lift> document.
	Entries []EntrySpec `yaml:"entries,omitempty"`

	// Raw replaces the generated content verbatim. Used for broken files.
	Raw string `yaml:"raw,omitempty"`
}

// Expectation is checked after the merge.
type Expectation struct {
	// Entries are the expected entry ids of the base, in order.
	Entries []string `yaml:"entries"`

	// Tombstones are the ids expected to carry dateDeleted.
	Tombstones []string `yaml:"tombstones,omitempty"`

	// Files are the expected directory contents, sorted.
	Files []string `yaml:"files"`

	// Error is the expected merge error code, if any.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "update:" vs "updates:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Expect.Files) == 0 {
		return fmt.Errorf("expect.files is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Updates))
	for i, u := range s.Updates {
		name, err := u.FileName()
		if err != nil {
			return fmt.Errorf("updates[%d]: %w", i, err)
		}
		if seen[name] {
			return fmt.Errorf("updates[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if u.Raw != "" && len(u.Entries) > 0 {
			return fmt.Errorf("updates[%d]: raw and entries are mutually exclusive", i)
		}
	}

	return nil
}

// FileName returns Name, or builds it from Project, Sha and Suffix. Giving
// both forms is an error, as is giving neither.
func (u UpdateSpec) FileName() (string, error) {
	parts := u.Project != "" || u.Sha != "" || u.Suffix != ""
	switch {
	case u.Name != "" && parts:
		return "", fmt.Errorf("name and project/sha/suffix are mutually exclusive")
	case u.Name != "":
		return u.Name, nil
	case !parts:
		return "", fmt.Errorf("name or project/sha/suffix is required")
	}
	return updates.FormatFilename(u.Project, u.Sha, u.Suffix)
}
