package exercise

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// ErrUnsupportedFormat is returned for files that are not JSON or YAML
var ErrUnsupportedFormat = errors.New("unsupported exercise file format")

// Entry is an exercise loaded from a file
type Entry struct {
	Name     string
	Path     string
	Exercise domain.Exercise
}

// Loader reads exercises written by hand or exported from history. Files
// may be JSON or YAML and use the same field names.
type Loader struct {
	basePath string
}

// NewLoader creates a loader resolving relative names against basePath
func NewLoader(basePath string) *Loader {
	return &Loader{basePath: basePath}
}

// BasePath returns the directory relative names are resolved against
func (l *Loader) BasePath() string {
	return l.basePath
}

// Supported reports whether path has a JSON or YAML extension
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads name, either a path or a file under the base directory
func (l *Loader) Load(name string) (*Entry, error) {
	path := name
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil && l.basePath != "" {
			path = filepath.Join(l.basePath, name)
		}
	}

	ex, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &Entry{Name: entryName(path), Path: path, Exercise: *ex}, nil
}

// LoadFile parses and validates one exercise file
func LoadFile(path string) (*domain.Exercise, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exercise file: %w", err)
	}

	ex, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := ex.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return ex, nil
}

// Parse decodes data as JSON, or as YAML when ext is .yaml or .yml. YAML is
// converted to JSON first so both formats share the index coercion rules.
func Parse(data []byte, ext string) (*domain.Exercise, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: parse yaml: %v", domain.ErrParse, err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: convert yaml: %v", domain.ErrParse, err)
		}
		data = converted
	}

	var ex domain.Exercise
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("%w: parse exercise: %v", domain.ErrParse, err)
	}
	return &ex, nil
}

// LoadAll loads every exercise file in dir, sorted by name. Files that fail
// to parse are returned in the error slice and do not stop the others.
func LoadAll(dir string) ([]Entry, []error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("read exercises directory: %w", err)}
	}

	var (
		entries []Entry
		errs    []error
	)
	for _, de := range dirEntries {
		if de.IsDir() || !Supported(de.Name()) {
			continue
		}
		path := filepath.Join(dir, de.Name())
		ex, err := LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, Entry{Name: entryName(path), Path: path, Exercise: *ex})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, errs
}

// LoadAll loads every exercise under the base directory
func (l *Loader) LoadAll() ([]Entry, []error) {
	return LoadAll(l.basePath)
}

func entryName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
