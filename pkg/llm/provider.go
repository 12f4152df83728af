// Package llm invokes the supported model providers behind one interface,
// with retries, streaming and a shared error taxonomy.
package llm

import (
	"context"
	"strings"

	"github.com/helmcode/codescribe/pkg/model"
)

// ProviderName identifies a provider family.
type ProviderName string

const (
	ProviderClaude ProviderName = "claude"
	ProviderOpenAI ProviderName = "openai"
	ProviderGemini ProviderName = "gemini"
)

// Providers lists every supported provider.
func Providers() []ProviderName {
	return []ProviderName{ProviderClaude, ProviderOpenAI, ProviderGemini}
}

// ParseProviderName normalizes name and reports whether it is supported.
func ParseProviderName(name string) (ProviderName, bool) {
	p := ProviderName(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers() {
		if p == known {
			return p, true
		}
	}
	return p, false
}

// request is a fully resolved provider call.
type request struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int
}

type response struct {
	Text  string
	Usage model.Usage
}

// Provider is one backend. The set of implementations is closed: Claude,
// OpenAI and Gemini.
type Provider interface {
	Name() ProviderName
	DefaultModel() string

	generate(ctx context.Context, req request) (response, error)
	// openStream returns once the provider accepted the request; chunks are
	// read lazily from the returned source.
	openStream(ctx context.Context, req request) (chunkSource, error)
}

// chunkSource yields text deltas until io.EOF.
type chunkSource interface {
	next() (string, error)
	usage() model.Usage
	close() error
}
