// Package registry stores versioned model artifacts on disk. It plays the
// model-registry collaborator role: register appends a new version, load
// returns the latest one.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// ErrNotFound is returned when a model has no registered versions.
var ErrNotFound = errors.New("model not found")

var versionFile = regexp.MustCompile(`^v(\d+)\.json$`)

// Registry is a directory of model entries, one subdirectory per model name,
// one vN.json artifact per version.
type Registry struct {
	root string
}

func New(root string) *Registry {
	return &Registry{root: root}
}

// Register serializes the artifact as the model's next version and returns
// the version number.
func (r *Registry) Register(name string, artifact any) (int, error) {
	dir := filepath.Join(r.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("register %s: %w", name, err)
	}

	latest, err := r.latestVersion(name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	version := latest + 1

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("register %s: %w", name, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("v%d.json", version))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("register %s: %w", name, err)
	}
	return version, nil
}

// LoadLatest deserializes the model's highest version into out and returns
// the version number.
func (r *Registry) LoadLatest(name string, out any) (int, error) {
	version, err := r.latestVersion(name)
	if err != nil {
		return 0, err
	}

	path := filepath.Join(r.root, name, fmt.Sprintf("v%d.json", version))
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("load %s v%d: %w", name, version, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return 0, fmt.Errorf("load %s v%d: %w", name, version, err)
	}
	return version, nil
}

func (r *Registry) latestVersion(name string) (int, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return 0, fmt.Errorf("scan registry for %s: %w", name, err)
	}

	latest := 0
	for _, entry := range entries {
		match := versionFile.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if version > latest {
			latest = version
		}
	}
	if latest == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return latest, nil
}
