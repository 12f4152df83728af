// Package generator runs the documentation pipeline: analyze the code, build
// the prompt, call the provider and score the result.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/helmcode/codescribe/pkg/analyzer"
	"github.com/helmcode/codescribe/pkg/doctype"
	"github.com/helmcode/codescribe/pkg/llm"
	"github.com/helmcode/codescribe/pkg/model"
	"github.com/helmcode/codescribe/pkg/parser"
	"github.com/helmcode/codescribe/pkg/prompts"
	"github.com/helmcode/codescribe/pkg/quality"
)

const (
	DefaultMaxCodeLength = 100000
	DefaultDocType       = "README"
	// fallbackLanguage is used when no language is given and none is detected.
	fallbackLanguage = "javascript"
)

// LLMClient is the part of *llm.Client the generator uses.
type LLMClient interface {
	Generate(ctx context.Context, prompt model.Prompt, cfg model.DocTypeConfig, opts ...llm.CallOption) (*llm.Result, error)
	GenerateStream(ctx context.Context, prompt model.Prompt, cfg model.DocTypeConfig, onChunk func(string) error, opts ...llm.CallOption) (*llm.Result, error)
}

// InputError rejects a request before any provider call. It is never retried.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Options configure one GenerateDocumentation call.
type Options struct {
	// DocType defaults to README.
	DocType string
	// Language is detected from Filename and the code when empty.
	Language string
	Filename string
	// Streaming forwards each text delta to StreamCallback as it arrives.
	Streaming      bool
	StreamCallback func(chunk string) error
	Overrides      model.Overrides
}

// DocTypeInfo describes a doc type that has a prompt template.
type DocTypeInfo struct {
	Name   string              `json:"name" yaml:"name"`
	Config model.DocTypeConfig `json:"config" yaml:"config"`
}

// Generator holds read-only configuration and is safe for concurrent use.
type Generator struct {
	llm           LLMClient
	registry      *prompts.Registry
	resolver      *doctype.Resolver
	maxCodeLength int
}

// New creates a generator. A non-positive maxCodeLength means
// DefaultMaxCodeLength.
func New(client LLMClient, registry *prompts.Registry, resolver *doctype.Resolver, maxCodeLength int) *Generator {
	if maxCodeLength <= 0 {
		maxCodeLength = DefaultMaxCodeLength
	}
	return &Generator{
		llm:           client,
		registry:      registry,
		resolver:      resolver,
		maxCodeLength: maxCodeLength,
	}
}

// GenerateDocumentation documents code. On any error no result is returned.
func (g *Generator) GenerateDocumentation(ctx context.Context, code string, opts Options) (*model.GenerationResult, error) {
	start := time.Now()
	requestID := uuid.NewString()

	result, err := g.generate(ctx, requestID, start, code, opts)
	if err != nil {
		klog.ErrorS(err, "Documentation generation failed", "requestID", requestID, "docType", opts.DocType, "duration", time.Since(start))
		return nil, err
	}

	klog.InfoS("Documentation generated",
		"requestID", requestID,
		"docType", result.Metadata.DocType,
		"language", result.Analysis.Language,
		"provider", result.Metadata.Provider,
		"model", result.Metadata.Model,
		"attempts", result.Metadata.Attempts,
		"score", result.QualityScore.Score,
		"duration", time.Since(start))
	return result, nil
}

func (g *Generator) generate(ctx context.Context, requestID string, start time.Time, code string, opts Options) (*model.GenerationResult, error) {
	if err := g.validateCode(code); err != nil {
		return nil, err
	}
	docType, err := g.docType(opts.DocType)
	if err != nil {
		return nil, err
	}
	language, err := resolveLanguage(opts.Language, opts.Filename, code)
	if err != nil {
		return nil, err
	}

	analysis := analyzer.Analyze(code, language)
	if analysis.Degraded {
		klog.V(1).InfoS("Structural analysis unavailable, using line metrics", "requestID", requestID, "language", language)
	}

	prompt, err := prompts.Build(g.registry, code, analysis, docType, language)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}
	cfg := g.resolver.Resolve(docType)
	klog.V(2).InfoS("Calling provider", "requestID", requestID, "docType", docType, "provider", cfg.Provider, "streaming", opts.Streaming)

	var res *llm.Result
	callOpts := []llm.CallOption{llm.WithOverrides(opts.Overrides)}
	if opts.Streaming {
		res, err = g.llm.GenerateStream(ctx, prompt, cfg, opts.StreamCallback, callOpts...)
	} else {
		res, err = g.llm.Generate(ctx, prompt, cfg, callOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("generating %s documentation: %w", docType, err)
	}

	documentation := postProcess(docType, res.Text)
	return &model.GenerationResult{
		Documentation: documentation,
		QualityScore:  quality.Score(documentation, analysis),
		Analysis:      analysis,
		Metadata: model.Metadata{
			RequestID:     requestID,
			Provider:      res.Config.Provider,
			Model:         res.Config.Model,
			PromptVersion: prompt.Version,
			DocType:       docType,
			DocTypeConfig: res.Config,
			DurationMs:    time.Since(start).Milliseconds(),
			Usage:         res.Usage,
			Attempts:      res.Attempts,
			Streamed:      res.Streamed,
			GeneratedAt:   time.Now().UTC(),
		},
	}, nil
}

// Analyze validates and analyzes code without calling a provider.
func (g *Generator) Analyze(code, language, filename string) (model.Analysis, error) {
	if err := g.validateCode(code); err != nil {
		return model.Analysis{}, err
	}
	language, err := resolveLanguage(language, filename, code)
	if err != nil {
		return model.Analysis{}, err
	}
	return analyzer.Analyze(code, language), nil
}

// Score grades documentation against an analysis.
func (g *Generator) Score(documentation string, analysis model.Analysis) model.QualityScore {
	return quality.Score(documentation, analysis)
}

// DocTypes lists the doc types that have templates with their resolved
// provider settings.
func (g *Generator) DocTypes() []DocTypeInfo {
	names := g.registry.DocTypes()
	infos := make([]DocTypeInfo, 0, len(names))
	for _, name := range names {
		cfg := g.resolver.Resolve(doctype.Default)
		if g.resolver.Has(name) {
			cfg = g.resolver.Resolve(name)
		}
		infos = append(infos, DocTypeInfo{Name: name, Config: cfg})
	}
	return infos
}

func (g *Generator) validateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return &InputError{Field: "code", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(code); n > g.maxCodeLength {
		return &InputError{Field: "code", Reason: fmt.Sprintf("%d characters exceeds the limit of %d", n, g.maxCodeLength)}
	}
	return nil
}

func (g *Generator) docType(docType string) (string, error) {
	docType = strings.ToUpper(strings.TrimSpace(docType))
	if docType == "" {
		docType = DefaultDocType
	}
	if _, ok := g.registry.Lookup(docType); !ok {
		return "", &InputError{
			Field:  "docType",
			Reason: fmt.Sprintf("unsupported doc type %q (supported: %s)", docType, strings.Join(g.registry.DocTypes(), ", ")),
		}
	}
	return docType, nil
}

func resolveLanguage(language, filename, code string) (string, error) {
	if strings.TrimSpace(language) == "" {
		if detected := analyzer.DetectLanguage(filename, code); detected != "" {
			return detected, nil
		}
		return fallbackLanguage, nil
	}
	name, ok := analyzer.NormalizeLanguage(language)
	if !ok {
		return "", &InputError{
			Field:  "language",
			Reason: fmt.Sprintf("unsupported language %q (supported: %s)", language, strings.Join(analyzer.SupportedLanguages(), ", ")),
		}
	}
	return name, nil
}

// postProcess strips wrapping fences from provider output. An OpenAPI
// document that does not validate is kept as is with a warning.
func postProcess(docType, raw string) string {
	switch docType {
	case "JSDOC":
		return parser.CleanCode(raw)
	case "OPENAPI":
		doc, err := parser.CleanOpenAPI(raw)
		if err != nil {
			klog.Warningf("OpenAPI output did not validate: %v", err)
		}
		return doc
	default:
		return parser.CleanDocumentation(raw)
	}
}
