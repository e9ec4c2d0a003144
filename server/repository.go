package server

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateMap = errors.New("duplicate map name")
	ErrInvalidMap   = errors.New("invalid map entry")
)

// MapEntry is one map of the repository file.
type MapEntry struct {
	Name string `yaml:"name"`
	// Upstream is a tile URL template the map proxies. Without one the
	// server renders debug tiles.
	Upstream string `yaml:"upstream,omitempty"`
	// Announce controls whether the map is listed in the catalog. It
	// defaults to true; unlisted maps stay reachable by name.
	Announce   *bool             `yaml:"announce,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

func (m MapEntry) Announced() bool {
	if m.Announce != nil {
		return *m.Announce
	}
	return m.Properties["announced"] != "false"
}

type repositoryFile struct {
	Maps []MapEntry `yaml:"maps"`
}

// Repository holds the maps a server publishes.
type Repository struct {
	maps map[string]MapEntry
}

func NewRepository(entries ...MapEntry) (*Repository, error) {
	r := &Repository{maps: make(map[string]MapEntry, len(entries))}
	for _, e := range entries {
		if e.Name == "" || strings.ContainsAny(e.Name, "/?#") {
			return nil, fmt.Errorf("%w: name %q", ErrInvalidMap, e.Name)
		}
		if _, ok := r.maps[e.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMap, e.Name)
		}
		r.maps[e.Name] = e
	}
	return r, nil
}

// LoadRepository reads a YAML file of the form {maps: [...]}.
func LoadRepository(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map repository: %w", err)
	}
	var f repositoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse map repository %s: %w", path, err)
	}
	return NewRepository(f.Maps...)
}

func (r *Repository) Lookup(name string) (MapEntry, bool) {
	e, ok := r.maps[name]
	return e, ok
}

// List returns all maps sorted by name.
func (r *Repository) List() []MapEntry {
	out := make([]MapEntry, 0, len(r.maps))
	for _, e := range r.maps {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b MapEntry) int { return strings.Compare(a.Name, b.Name) })
	return out
}
