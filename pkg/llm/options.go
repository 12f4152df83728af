package llm

import "github.com/helmcode/codescribe/pkg/model"

// CallOption overrides a field of the resolved DocTypeConfig for one call.
type CallOption func(*model.Overrides)

func WithProvider(provider string) CallOption {
	return func(o *model.Overrides) { o.Provider = provider }
}

func WithModel(name string) CallOption {
	return func(o *model.Overrides) { o.Model = name }
}

func WithTemperature(t float64) CallOption {
	return func(o *model.Overrides) { o.Temperature = &t }
}

func WithMaxTokens(n int) CallOption {
	return func(o *model.Overrides) { o.MaxTokens = &n }
}

// WithOverrides applies every field set in overrides.
func WithOverrides(overrides model.Overrides) CallOption {
	return func(o *model.Overrides) {
		if overrides.Provider != "" {
			o.Provider = overrides.Provider
		}
		if overrides.Model != "" {
			o.Model = overrides.Model
		}
		if overrides.Temperature != nil {
			o.Temperature = overrides.Temperature
		}
		if overrides.MaxTokens != nil {
			o.MaxTokens = overrides.MaxTokens
		}
	}
}

func applyOptions(cfg model.DocTypeConfig, opts []CallOption) model.DocTypeConfig {
	var o model.Overrides
	for _, opt := range opts {
		opt(&o)
	}
	return cfg.WithOverrides(o)
}
