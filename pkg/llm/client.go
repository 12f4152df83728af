package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/helmcode/codescribe/pkg/model"
)

const DefaultTimeout = 60 * time.Second

type ClientConfig struct {
	// Credentials holds API keys by provider. Providers without a key are
	// not available.
	Credentials map[ProviderName]string
	// Models overrides the default model per provider.
	Models map[ProviderName]string
	// Required providers must have a credential, otherwise NewClient fails.
	Required []string
	Retry    RetryPolicy
	// Timeout bounds each buffered attempt and the wait for response
	// headers when streaming.
	Timeout  time.Duration
	BaseURLs map[ProviderName]string
}

// Client dispatches calls to providers by DocTypeConfig.Provider. It holds no
// per-request state and is safe for concurrent use.
type Client struct {
	providers     map[ProviderName]Provider
	defaultModels map[ProviderName]string
	retryPolicy   RetryPolicy
	timeout       time.Duration
}

// Result is the outcome of a completed call.
type Result struct {
	Text     string
	Usage    model.Usage
	Config   model.DocTypeConfig
	Attempts int
	Streamed bool
}

// NewClient creates providers for every credential present. A required
// provider that is unknown or lacks a credential is a configuration error.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := newHTTPClient(timeout)

	providers := make(map[ProviderName]Provider)
	for _, name := range Providers() {
		key := cfg.Credentials[name]
		if key == "" {
			continue
		}
		p, err := newProvider(ctx, name, key, cfg.BaseURLs[name], httpClient)
		if err != nil {
			return nil, err
		}
		providers[name] = p
	}

	for _, required := range cfg.Required {
		name, ok := ParseProviderName(required)
		if !ok {
			return nil, &ProviderConfigError{Provider: required, Reason: "unsupported provider (supported: claude, openai, gemini)"}
		}
		if _, ok := providers[name]; !ok {
			return nil, &ProviderConfigError{Provider: required, Reason: CredentialEnv[name] + " is not set"}
		}
	}

	c := newClient(cfg.Retry, timeout)
	for name, p := range providers {
		c.providers[name] = p
	}
	for name, m := range cfg.Models {
		c.defaultModels[name] = m
	}
	klog.V(1).InfoS("LLM client ready", "providers", c.Available())
	return c, nil
}

func newClient(policy RetryPolicy, timeout time.Duration, providers ...Provider) *Client {
	c := &Client{
		providers:     make(map[ProviderName]Provider),
		defaultModels: make(map[ProviderName]string),
		retryPolicy:   policy.withDefaults(),
		timeout:       timeout,
	}
	for _, p := range providers {
		c.providers[p.Name()] = p
	}
	return c
}

// Available lists the providers that have credentials.
func (c *Client) Available() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// Generate performs a buffered call, retrying transient failures.
func (c *Client) Generate(ctx context.Context, prompt model.Prompt, cfg model.DocTypeConfig, opts ...CallOption) (*Result, error) {
	p, req, effective, err := c.prepare(prompt, cfg, opts)
	if err != nil {
		return nil, err
	}

	var resp response
	attempts, err := c.retry(ctx, p.Name(), c.timeout, func(ctx context.Context) error {
		var err error
		resp, err = p.generate(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Result{Text: resp.Text, Usage: resp.Usage, Config: effective, Attempts: attempts}, nil
}

// Stream opens a streaming call. Retries apply to opening the stream only;
// a failure after the first chunk ends the stream with that error.
func (c *Client) Stream(ctx context.Context, prompt model.Prompt, cfg model.DocTypeConfig, opts ...CallOption) (*Stream, error) {
	p, req, effective, err := c.prepare(prompt, cfg, opts)
	if err != nil {
		return nil, err
	}

	var src chunkSource
	attempts, err := c.retry(ctx, p.Name(), 0, func(ctx context.Context) error {
		s, err := p.openStream(ctx, req)
		if err != nil {
			return err
		}
		src = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Stream{ctx: ctx, src: src, config: effective, attempts: attempts}, nil
}

// GenerateStream streams a call, passing each text delta to onChunk, and
// returns the aggregated text once the stream ends. On any error, including
// cancellation, the partial text is discarded.
func (c *Client) GenerateStream(ctx context.Context, prompt model.Prompt, cfg model.DocTypeConfig, onChunk func(string) error, opts ...CallOption) (*Result, error) {
	s, err := c.Stream(ctx, prompt, cfg, opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var text strings.Builder
	for chunk, err := range s.Chunks() {
		if err != nil {
			return nil, err
		}
		text.WriteString(chunk)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return nil, fmt.Errorf("stream callback: %w", err)
			}
		}
	}
	return &Result{
		Text:     text.String(),
		Usage:    s.Usage(),
		Config:   s.Config(),
		Attempts: s.Attempts(),
		Streamed: true,
	}, nil
}

// prepare merges options into cfg, picks the provider and fills defaults.
// cfg is passed by value and never modified.
func (c *Client) prepare(prompt model.Prompt, cfg model.DocTypeConfig, opts []CallOption) (Provider, request, model.DocTypeConfig, error) {
	effective := applyOptions(cfg, opts)

	name, ok := ParseProviderName(effective.Provider)
	if !ok {
		return nil, request{}, effective, &ProviderConfigError{Provider: effective.Provider, Reason: "unsupported provider (supported: claude, openai, gemini)"}
	}
	p, ok := c.providers[name]
	if !ok {
		return nil, request{}, effective, &ProviderConfigError{Provider: effective.Provider, Reason: CredentialEnv[name] + " is not set"}
	}
	if effective.Temperature < 0 || effective.Temperature > 1 {
		return nil, request{}, effective, &ProviderConfigError{Provider: effective.Provider, Reason: fmt.Sprintf("temperature %v is outside [0, 1]", effective.Temperature)}
	}

	effective.Provider = string(name)
	if effective.Model == "" {
		effective.Model = c.defaultModels[name]
	}
	if effective.Model == "" {
		effective.Model = p.DefaultModel()
	}

	return p, request{
		System:      prompt.System,
		User:        prompt.User,
		Model:       effective.Model,
		Temperature: effective.Temperature,
		MaxTokens:   effective.MaxTokens,
	}, effective, nil
}
