// Package preset keeps named journal queries in a YAML file.
package preset

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/mbrock/jview/internal/query"
)

// ErrNotFound is returned for a preset name that is not saved.
var ErrNotFound = errors.New("preset not found")

// Store reads and writes presets at Path. A missing file holds no presets.
type Store struct {
	Path string
}

type file struct {
	Presets map[string]query.Query `yaml:"presets"`
}

// Load returns every saved preset.
func (s Store) Load() (map[string]query.Query, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]query.Query{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading presets: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.Path, err)
	}
	if f.Presets == nil {
		f.Presets = map[string]query.Query{}
	}
	return f.Presets, nil
}

// Names returns the saved preset names, sorted.
func (s Store) Names() ([]string, error) {
	presets, err := s.Load()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(presets)), nil
}

// Get returns one preset.
func (s Store) Get(name string) (query.Query, error) {
	presets, err := s.Load()
	if err != nil {
		return query.Query{}, err
	}
	q, ok := presets[name]
	if !ok {
		return query.Query{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return q, nil
}

// Save stores q under name, replacing any preset of that name.
func (s Store) Save(name string, q query.Query) error {
	if name == "" {
		return errors.New("preset name is empty")
	}
	presets, err := s.Load()
	if err != nil {
		return err
	}
	presets[name] = q
	return s.write(presets)
}

// Delete removes a preset.
func (s Store) Delete(name string) error {
	presets, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := presets[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	delete(presets, name)
	return s.write(presets)
}

// write replaces the file atomically via a temp file in the same directory.
func (s Store) write(presets map[string]query.Query) error {
	data, err := yaml.Marshal(file{Presets: presets})
	if err != nil {
		return fmt.Errorf("encoding presets: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".presets-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing presets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing presets: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.Path, err)
	}
	return nil
}
