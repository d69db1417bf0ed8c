// Package manifest reads the two well-known files at the root of a fetched
// repository: package.json and README.md.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// FileName is the manifest looked up at the repository root
	FileName = "package.json"
	// NotFound is reported in place of the manifest content when it is absent
	NotFound = "package.json not found"
)

// ErrMalformed is returned when the manifest exists but is not valid JSON
var ErrMalformed = errors.New("malformed manifest")

// Dependency is one entry of a dependency mapping
type Dependency struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// Summary holds the declared dependencies in document order
type Summary struct {
	Dependencies    []Dependency `json:"dependencies" yaml:"dependencies"`
	DevDependencies []Dependency `json:"devDependencies" yaml:"devDependencies"`
}

// EmptySummary returns a summary with non-nil, empty lists
func EmptySummary() Summary {
	return Summary{Dependencies: []Dependency{}, DevDependencies: []Dependency{}}
}

// Manifest is a parsed package.json
type Manifest struct {
	// Raw is the manifest verbatim, so key order survives re-encoding
	Raw     json.RawMessage
	Summary Summary
}

// Read loads the manifest from dir. A missing manifest is not an error:
// Read returns nil, nil. A manifest larger than MaxFileSize is malformed.
func Read(dir string) (*Manifest, error) {
	data, found, truncated, err := readRootFile(dir, FileName, MaxFileSize)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if truncated {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrMalformed, FileName, MaxFileSize)
	}
	return Parse(data)
}

// Parse extracts dependencies and devDependencies from manifest JSON.
// Fields that are missing or not objects yield empty lists.
func Parse(data []byte) (*Manifest, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrMalformed, FileName)
	}

	m := &Manifest{Raw: json.RawMessage(bytes.TrimSpace(data)), Summary: EmptySummary()}

	fields, err := objectFields(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, f := range fields {
		switch f.key {
		case "dependencies":
			if m.Summary.Dependencies, err = dependencyList(f.value); err != nil {
				return nil, fmt.Errorf("%w: dependencies: %v", ErrMalformed, err)
			}
		case "devDependencies":
			if m.Summary.DevDependencies, err = dependencyList(f.value); err != nil {
				return nil, fmt.Errorf("%w: devDependencies: %v", ErrMalformed, err)
			}
		}
	}
	return m, nil
}

type field struct {
	key   string
	value json.RawMessage
}

// objectFields returns the members of a JSON object in document order.
// Anything other than an object has no fields.
func objectFields(data []byte) ([]field, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, field{key: key, value: value})
	}
	return fields, nil
}

// dependencyList converts a name → version mapping into ordered pairs. A
// repeated name keeps its first position and its last version, as
// JavaScript object semantics do.
func dependencyList(data json.RawMessage) ([]Dependency, error) {
	fields, err := objectFields(data)
	if err != nil {
		return nil, err
	}

	deps := make([]Dependency, 0, len(fields))
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		version := string(bytes.TrimSpace(f.value))
		var s string
		if err := json.Unmarshal(f.value, &s); err == nil {
			version = s
		}

		if i, seen := index[f.key]; seen {
			deps[i].Version = version
			continue
		}
		index[f.key] = len(deps)
		deps = append(deps, Dependency{Name: f.key, Version: version})
	}
	return deps, nil
}
