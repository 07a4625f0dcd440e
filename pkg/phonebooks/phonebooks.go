package phonebooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package phonebooks contains pluggable phonebook source configs (YAML/JSON) helpers.

const (
	// Supported source types.
	TypeTR064 = "tr064"
	TypeWebUI = "webui"

	defaultTimeoutSeconds = 2
)

// Source describes a single remote phonebook declared in config files.
type Source struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Type           string         `json:"type" yaml:"type"`
	URL            string         `json:"url" yaml:"url"`
	Region         string         `json:"region" yaml:"region"`
	TimeoutSeconds int            `json:"timeout_seconds" yaml:"timeout_seconds"`
	Config         map[string]any `json:"config" yaml:"config"`
}

// Timeout returns the per-fetch deadline for this source.
func (s Source) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// configFile represents the structure of the phonebooks configuration file.
type configFile struct {
	Phonebooks []Source `json:"phonebooks" yaml:"phonebooks"`
}

// Registry materializes phonebook source definitions loaded from config files.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
	idx     map[string]Source
}

// LoadRegistry loads the phonebook source registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("phonebooks file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open phonebooks file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read phonebooks file: %w", err)
	}

	fileReg, err := parseSourceRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Phonebooks) == 0 {
		return nil, errors.New("phonebooks file contains no phonebooks entries")
	}

	reg := &Registry{
		sources: make([]Source, len(fileReg.Phonebooks)),
		idx:     make(map[string]Source, len(fileReg.Phonebooks)),
	}

	for i := range fileReg.Phonebooks {
		src := sanitizeSource(fileReg.Phonebooks[i])
		if err := validateSource(src); err != nil {
			return nil, fmt.Errorf("phonebooks[%d]: %w", i, err)
		}
		if _, exists := reg.idx[src.ID]; exists {
			return nil, fmt.Errorf("duplicate phonebook id %q", src.ID)
		}
		reg.sources[i] = src
		reg.idx[src.ID] = src
	}

	return reg, nil
}

// parseSourceRegistry attempts to decode the phonebooks file content.
func parseSourceRegistry(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalSourceRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return configFile{}, errors.New("phonebooks file format not recognized (expected YAML or JSON)")
}

func unmarshalSourceRegistry(name string, data []byte, fn func([]byte, any) error) (configFile, error) {
	var reg configFile
	if err := fn(data, &reg); err != nil {
		return configFile{}, fmt.Errorf("decode %s phonebooks: %w", name, err)
	}
	return reg, nil
}

// sanitizeSource trims and normalizes the source config fields.
func sanitizeSource(src Source) Source {
	src.ID = strings.TrimSpace(src.ID)
	src.Name = strings.TrimSpace(src.Name)
	src.Type = strings.ToLower(strings.TrimSpace(src.Type))
	src.URL = strings.TrimSpace(src.URL)
	src.Region = strings.ToUpper(strings.TrimSpace(src.Region))

	if src.Config == nil {
		src.Config = map[string]any{}
	}
	if src.TimeoutSeconds <= 0 {
		src.TimeoutSeconds = defaultTimeoutSeconds
	}

	return src
}

// validateSource checks that required fields are present.
func validateSource(src Source) error {
	if src.ID == "" {
		return errors.New("id is required")
	}
	if src.Type == "" {
		return fmt.Errorf("type is required for phonebook %q", src.ID)
	}
	if src.URL == "" {
		return fmt.Errorf("url is required for phonebook %q", src.ID)
	}
	return nil
}

// ByID returns the source config by id.
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Source{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.idx[id]
	return src, ok
}

// All returns a copy of the configured sources in file order.
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}
