package model

import "time"

// DocTypeConfig selects the provider and sampling parameters for one
// document type.
type DocTypeConfig struct {
	Provider    string  `json:"provider" yaml:"provider"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"maxTokens,omitempty" yaml:"max_tokens,omitempty"`
}

// Overrides are per-call replacements for fields of a DocTypeConfig.
// Zero values leave the base field alone.
type Overrides struct {
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
}

// IsZero reports whether no override is set.
func (o Overrides) IsZero() bool {
	return o.Provider == "" && o.Model == "" && o.Temperature == nil && o.MaxTokens == nil
}

// WithOverrides returns a copy of c with o applied. c itself is not modified.
func (c DocTypeConfig) WithOverrides(o Overrides) DocTypeConfig {
	merged := c
	if o.Provider != "" {
		merged.Provider = o.Provider
		// A model name only makes sense for the provider it was configured for.
		if o.Provider != c.Provider && o.Model == "" {
			merged.Model = ""
		}
	}
	if o.Model != "" {
		merged.Model = o.Model
	}
	if o.Temperature != nil {
		merged.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		merged.MaxTokens = *o.MaxTokens
	}
	return merged
}

// Prompt is a provider-ready request payload.
type Prompt struct {
	System  string `json:"system"`
	User    string `json:"user"`
	DocType string `json:"docType"`
	Version string `json:"version"`
}

// Usage reports token consumption of one provider call.
type Usage struct {
	InputTokens  int `json:"inputTokens" yaml:"inputTokens"`
	OutputTokens int `json:"outputTokens" yaml:"outputTokens"`
}

type GenerationResult struct {
	Documentation string       `json:"documentation" yaml:"documentation"`
	QualityScore  QualityScore `json:"qualityScore" yaml:"qualityScore"`
	Analysis      Analysis     `json:"analysis" yaml:"analysis"`
	Metadata      Metadata     `json:"metadata" yaml:"metadata"`
}

type Metadata struct {
	RequestID     string        `json:"requestId" yaml:"requestId"`
	Provider      string        `json:"provider" yaml:"provider"`
	Model         string        `json:"model" yaml:"model"`
	PromptVersion string        `json:"promptVersion" yaml:"promptVersion"`
	DocType       string        `json:"docType" yaml:"docType"`
	DocTypeConfig DocTypeConfig `json:"docTypeConfig" yaml:"docTypeConfig"`
	DurationMs    int64         `json:"durationMs" yaml:"durationMs"`
	Usage         Usage         `json:"usage" yaml:"usage"`
	Attempts      int           `json:"attempts" yaml:"attempts"`
	Streamed      bool          `json:"streamed" yaml:"streamed"`
	GeneratedAt   time.Time     `json:"generatedAt" yaml:"generatedAt"`
}
