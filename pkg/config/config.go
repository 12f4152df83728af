// Package config loads codescribe settings from ~/.codescribe/config.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/client-go/util/homedir"
	"k8s.io/klog/v2"

	"github.com/helmcode/codescribe/pkg/doctype"
	"github.com/helmcode/codescribe/pkg/generator"
	"github.com/helmcode/codescribe/pkg/llm"
	"github.com/helmcode/codescribe/pkg/model"
)

const DefaultAddr = ":8080"

type Config struct {
	Server      ServerConfig               `yaml:"server"`
	LLM         LLMConfig                  `yaml:"llm"`
	Generation  GenerationConfig           `yaml:"generation"`
	DocTypes    map[string]DocTypeOverride `yaml:"doc_types"`
	Credentials CredentialsConfig          `yaml:"credentials"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LLMConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	// BaseURLs and Models are keyed by provider name.
	BaseURLs map[string]string `yaml:"base_urls"`
	Models   map[string]string `yaml:"models"`
}

type GenerationConfig struct {
	MaxCodeLength int `yaml:"max_code_length"`
	// PromptFile replaces the built-in prompt templates.
	PromptFile string `yaml:"prompt_file"`
}

// DocTypeOverride changes the built-in provider settings of one doc type.
// Unset fields keep the built-in value.
type DocTypeOverride struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

type CredentialsConfig struct {
	// EnvFile is loaded into the environment when it exists.
	EnvFile string `yaml:"env_file"`
	// UseKeyring looks up keys missing from the environment in the OS
	// keyring. Unset means true.
	UseKeyring *bool `yaml:"use_keyring"`
}

func (c CredentialsConfig) KeyringEnabled() bool {
	return c.UseKeyring == nil || *c.UseKeyring
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: DefaultAddr},
		LLM: LLMConfig{
			Timeout:        llm.DefaultTimeout,
			MaxAttempts:    llm.DefaultMaxAttempts,
			InitialBackoff: llm.DefaultInitialBackoff,
			MaxBackoff:     llm.DefaultMaxBackoff,
			BaseURLs:       map[string]string{},
			Models:         map[string]string{},
		},
		Generation:  GenerationConfig{MaxCodeLength: generator.DefaultMaxCodeLength},
		DocTypes:    map[string]DocTypeOverride{},
		Credentials: CredentialsConfig{EnvFile: ".env"},
	}
}

// DefaultPath returns ~/.codescribe/config.yaml.
func DefaultPath() string {
	return filepath.Join(homedir.HomeDir(), ".codescribe", "config.yaml")
}

// Load reads the config file at path over the defaults and validates the
// result. An empty path means DefaultPath, which may be missing.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		cfg = Merge(cfg, fileCfg)
		klog.V(1).InfoS("Loaded config", "path", path)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		klog.V(2).InfoS("No config file, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML without applying defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// Merge returns base with every set field of override applied. Maps are
// merged by key. Neither argument is modified.
func Merge(base, override *Config) *Config {
	out := *base
	out.LLM.BaseURLs = mergeMap(base.LLM.BaseURLs, override.LLM.BaseURLs)
	out.LLM.Models = mergeMap(base.LLM.Models, override.LLM.Models)
	out.DocTypes = mergeMap(base.DocTypes, override.DocTypes)

	if override.Server.Addr != "" {
		out.Server.Addr = override.Server.Addr
	}
	if override.LLM.Timeout != 0 {
		out.LLM.Timeout = override.LLM.Timeout
	}
	if override.LLM.MaxAttempts != 0 {
		out.LLM.MaxAttempts = override.LLM.MaxAttempts
	}
	if override.LLM.InitialBackoff != 0 {
		out.LLM.InitialBackoff = override.LLM.InitialBackoff
	}
	if override.LLM.MaxBackoff != 0 {
		out.LLM.MaxBackoff = override.LLM.MaxBackoff
	}
	if override.Generation.MaxCodeLength != 0 {
		out.Generation.MaxCodeLength = override.Generation.MaxCodeLength
	}
	if override.Generation.PromptFile != "" {
		out.Generation.PromptFile = override.Generation.PromptFile
	}
	if override.Credentials.EnvFile != "" {
		out.Credentials.EnvFile = override.Credentials.EnvFile
	}
	if override.Credentials.UseKeyring != nil {
		out.Credentials.UseKeyring = override.Credentials.UseKeyring
	}
	return &out
}

func mergeMap[V any](base, override map[string]V) map[string]V {
	out := make(map[string]V, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("llm.max_attempts must be at least 1, got %d", c.LLM.MaxAttempts))
	}
	if c.LLM.InitialBackoff <= 0 {
		errs = append(errs, fmt.Errorf("llm.initial_backoff must be positive, got %s", c.LLM.InitialBackoff))
	}
	if c.LLM.MaxBackoff < c.LLM.InitialBackoff {
		errs = append(errs, fmt.Errorf("llm.max_backoff %s is below llm.initial_backoff %s", c.LLM.MaxBackoff, c.LLM.InitialBackoff))
	}
	for _, m := range []struct {
		field  string
		values map[string]string
	}{{"llm.base_urls", c.LLM.BaseURLs}, {"llm.models", c.LLM.Models}} {
		for name := range m.values {
			if _, ok := llm.ParseProviderName(name); !ok {
				errs = append(errs, fmt.Errorf("%s: unknown provider %q", m.field, name))
			}
		}
	}
	if c.Generation.MaxCodeLength <= 0 {
		errs = append(errs, fmt.Errorf("generation.max_code_length must be positive, got %d", c.Generation.MaxCodeLength))
	}
	for name, o := range c.DocTypes {
		if o.Provider != "" {
			if _, ok := llm.ParseProviderName(o.Provider); !ok {
				errs = append(errs, fmt.Errorf("doc_types.%s.provider: unknown provider %q", name, o.Provider))
			}
		}
		if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 1) {
			errs = append(errs, fmt.Errorf("doc_types.%s.temperature %v is outside [0, 1]", name, *o.Temperature))
		}
		if o.MaxTokens != nil && *o.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("doc_types.%s.max_tokens must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

// DocTypeTable applies the doc_types overrides to the built-in table. A doc
// type without a built-in entry starts from the default entry.
func (c *Config) DocTypeTable() map[string]model.DocTypeConfig {
	table := doctype.DefaultTable()
	for name, o := range c.DocTypes {
		key := strings.ToUpper(strings.TrimSpace(name))
		if strings.EqualFold(key, doctype.Default) {
			key = doctype.Default
		}
		base, ok := table[key]
		if !ok {
			base = table[doctype.Default]
		}
		table[key] = base.WithOverrides(model.Overrides{
			Provider:    o.Provider,
			Model:       o.Model,
			Temperature: o.Temperature,
			MaxTokens:   o.MaxTokens,
		})
	}
	return table
}

// ClientConfig builds the LLM client settings. required lists providers that
// must have credentials.
func (c *Config) ClientConfig(creds Credentials, required []string) llm.ClientConfig {
	cc := llm.ClientConfig{
		Credentials: creds.Keys,
		Models:      make(map[llm.ProviderName]string),
		BaseURLs:    make(map[llm.ProviderName]string),
		Required:    required,
		Timeout:     c.LLM.Timeout,
		Retry: llm.RetryPolicy{
			MaxAttempts:    c.LLM.MaxAttempts,
			InitialBackoff: c.LLM.InitialBackoff,
			MaxBackoff:     c.LLM.MaxBackoff,
		},
	}
	for name, m := range c.LLM.Models {
		if p, ok := llm.ParseProviderName(name); ok {
			cc.Models[p] = m
		}
	}
	// Environment models win over the file.
	for p, m := range creds.Models {
		cc.Models[p] = m
	}
	for name, u := range c.LLM.BaseURLs {
		if p, ok := llm.ParseProviderName(name); ok {
			cc.BaseURLs[p] = u
		}
	}
	return cc
}
