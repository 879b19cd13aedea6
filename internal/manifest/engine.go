package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
)

// ValidateEngineRange checks that r parses as a semver constraint such as
// "^1.99.0" or "*".
func ValidateEngineRange(r string) error {
	if _, err := semver.NewConstraint(r); err != nil {
		return fmt.Errorf("invalid engine range %q: %w", r, err)
	}
	return nil
}

// PatchEngine rewrites engines.vscode in the package.json at path to r and
// returns the previous value. Every other field in the document is kept.
func PatchEngine(path, r string) (string, error) {
	if err := ValidateEngineRange(r); err != nil {
		return "", err
	}

	data, err := readFile(path)
	if err != nil {
		return "", err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}

	engines := map[string]json.RawMessage{}
	if raw, ok := doc["engines"]; ok {
		if err := json.Unmarshal(raw, &engines); err != nil {
			return "", fmt.Errorf("parsing engines in %s: %w", path, err)
		}
	}

	var previous string
	if raw, ok := engines[EngineKey]; ok {
		// A non-string value is reported as empty.
		_ = json.Unmarshal(raw, &previous)
	}

	value, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding engine range: %w", err)
	}
	engines[EngineKey] = value

	if doc["engines"], err = json.Marshal(engines); err != nil {
		return "", fmt.Errorf("encoding engines: %w", err)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(out, '\n'), info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return previous, nil
}
