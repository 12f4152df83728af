// Package prompts holds the prompt templates for each documentation type and
// builds provider-ready prompts from them.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Template is the system and user message pair for one documentation type.
type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type templateFile struct {
	Version  string              `yaml:"version"`
	DocTypes map[string]Template `yaml:"docTypes"`
}

// Registry is an immutable set of templates keyed by upper-case doc type.
// It is safe for concurrent use.
type Registry struct {
	version   string
	templates map[string]Template
}

// NewRegistry builds a registry from templates. The map is copied.
func NewRegistry(version string, templates map[string]Template) (*Registry, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("prompt registry %q has no templates", version)
	}
	r := &Registry{version: version, templates: make(map[string]Template, len(templates))}
	for docType, t := range templates {
		if strings.TrimSpace(t.User) == "" {
			return nil, fmt.Errorf("template %s has an empty user message", docType)
		}
		r.templates[strings.ToUpper(docType)] = t
	}
	return r, nil
}

// LoadDefault returns the registry compiled into the binary.
func LoadDefault() (*Registry, error) {
	return Parse(defaultTemplates)
}

// LoadFile reads a registry from a YAML file with the same layout as the
// embedded templates.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a YAML template document.
func Parse(data []byte) (*Registry, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	if f.Version == "" {
		f.Version = "unversioned"
	}
	return NewRegistry(f.Version, f.DocTypes)
}

func (r *Registry) Version() string {
	return r.version
}

// Lookup returns the template for docType, ignoring case.
func (r *Registry) Lookup(docType string) (Template, bool) {
	t, ok := r.templates[strings.ToUpper(strings.TrimSpace(docType))]
	return t, ok
}

// DocTypes lists the doc types that have a template, sorted.
func (r *Registry) DocTypes() []string {
	types := make([]string, 0, len(r.templates))
	for t := range r.templates {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
