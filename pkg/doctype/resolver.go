// Package doctype maps documentation types to the provider settings used to
// generate them.
package doctype

import (
	"sort"
	"strings"

	"k8s.io/klog/v2"

	"github.com/helmcode/codescribe/pkg/model"
)

// Default is the key of the fallback entry.
const Default = "default"

const (
	claudeModel = "claude-sonnet-4-20250514"
	openAIModel = "gpt-4o"
)

// DefaultTable returns a fresh copy of the built-in settings. Structured
// outputs run cold, narrative ones warmer.
func DefaultTable() map[string]model.DocTypeConfig {
	return map[string]model.DocTypeConfig{
		"README":       {Provider: "claude", Model: claudeModel, Temperature: 0.7, MaxTokens: 4000},
		"JSDOC":        {Provider: "claude", Model: claudeModel, Temperature: 0.3, MaxTokens: 4000},
		"API":          {Provider: "claude", Model: claudeModel, Temperature: 0.3, MaxTokens: 4000},
		"ARCHITECTURE": {Provider: "claude", Model: claudeModel, Temperature: 0.7, MaxTokens: 6000},
		"OPENAPI":      {Provider: "openai", Model: openAIModel, Temperature: 0.2, MaxTokens: 8000},
		Default:        {Provider: "claude", Model: claudeModel, Temperature: 0.7, MaxTokens: 4000},
	}
}

// Resolver looks up DocTypeConfig by doc type. It is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	table map[string]model.DocTypeConfig
}

// NewResolver copies table into a resolver. Keys are matched ignoring case.
// A missing default entry is filled from DefaultTable.
func NewResolver(table map[string]model.DocTypeConfig) *Resolver {
	r := &Resolver{table: make(map[string]model.DocTypeConfig, len(table)+1)}
	for k, v := range table {
		r.table[key(k)] = v
	}
	if _, ok := r.table[key(Default)]; !ok {
		r.table[key(Default)] = DefaultTable()[Default]
	}
	return r
}

// Resolve returns the config for docType, or the default entry with a
// warning when docType is unknown.
func (r *Resolver) Resolve(docType string) model.DocTypeConfig {
	if cfg, ok := r.table[key(docType)]; ok {
		return cfg
	}
	klog.Warningf("Unknown doc type %q, using default provider configuration", docType)
	return r.table[key(Default)]
}

// Has reports whether docType has its own entry.
func (r *Resolver) Has(docType string) bool {
	_, ok := r.table[key(docType)]
	return ok && key(docType) != key(Default)
}

// Providers returns the distinct providers referenced by the table, sorted.
func (r *Resolver) Providers() []string {
	seen := make(map[string]bool)
	var providers []string
	for _, cfg := range r.table {
		p := strings.ToLower(cfg.Provider)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

// Table returns a copy of the entries keyed by upper-case doc type.
func (r *Resolver) Table() map[string]model.DocTypeConfig {
	out := make(map[string]model.DocTypeConfig, len(r.table))
	for k, v := range r.table {
		out[k] = v
	}
	return out
}

func key(docType string) string {
	return strings.ToUpper(strings.TrimSpace(docType))
}
