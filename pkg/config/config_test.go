package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/helmcode/codescribe/pkg/doctype"
	"github.com/helmcode/codescribe/pkg/llm"
)

const sampleConfig = `
server:
  addr: 127.0.0.1:9000
llm:
  timeout: 30s
  max_attempts: 5
  models:
    openai: gpt-4o-mini
  base_urls:
    claude: http://localhost:4000
generation:
  max_code_length: 5000
doc_types:
  readme:
    provider: openai
    temperature: 0.5
  changelog:
    max_tokens: 2000
credentials:
  use_keyring: false
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// unsetEnv removes key for the duration of the test. An empty value would
// still count as set for the env file loader.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 5, cfg.LLM.MaxAttempts)
	// Unset fields keep their defaults.
	assert.Equal(t, llm.DefaultInitialBackoff, cfg.LLM.InitialBackoff)
	assert.Equal(t, llm.DefaultMaxBackoff, cfg.LLM.MaxBackoff)
	assert.Equal(t, 5000, cfg.Generation.MaxCodeLength)
	assert.Equal(t, ".env", cfg.Credentials.EnvFile)
	assert.False(t, cfg.Credentials.KeyringEnabled())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("server:\n  port: 80\n"))
	assert.Error(t, err)

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Config{}, *cfg)
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	base := DefaultConfig()
	override := &Config{LLM: LLMConfig{Models: map[string]string{"claude": "claude-3-5-haiku-latest"}}}

	merged := Merge(base, override)
	assert.Equal(t, "claude-3-5-haiku-latest", merged.LLM.Models["claude"])
	assert.Empty(t, base.LLM.Models)
	assert.Equal(t, base.Server.Addr, merged.Server.Addr)
	assert.True(t, merged.Credentials.KeyringEnabled())
}

func TestValidate(t *testing.T) {
	hot := 1.5
	negative := -1
	cfg := DefaultConfig()
	cfg.LLM.MaxAttempts = 0
	cfg.LLM.MaxBackoff = time.Millisecond
	cfg.LLM.Models["mistral"] = "large"
	cfg.DocTypes["README"] = DocTypeOverride{Provider: "cohere", Temperature: &hot, MaxTokens: &negative}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"llm.max_attempts",
		"llm.max_backoff",
		`llm.models: unknown provider "mistral"`,
		`doc_types.README.provider: unknown provider "cohere"`,
		"doc_types.README.temperature 1.5",
		"doc_types.README.max_tokens",
	} {
		assert.ErrorContains(t, err, want)
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestDocTypeTable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	table := cfg.DocTypeTable()
	builtin := doctype.DefaultTable()

	readme := table["README"]
	assert.Equal(t, "openai", readme.Provider)
	// The built-in model belongs to another provider and is dropped.
	assert.Empty(t, readme.Model)
	assert.Equal(t, 0.5, readme.Temperature)
	assert.Equal(t, builtin["README"].MaxTokens, readme.MaxTokens)

	changelog := table["CHANGELOG"]
	assert.Equal(t, builtin[doctype.Default].Provider, changelog.Provider)
	assert.Equal(t, 2000, changelog.MaxTokens)

	assert.Equal(t, builtin["API"], table["API"])
}

func TestClientConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	creds := Credentials{
		Keys:   map[llm.ProviderName]string{llm.ProviderClaude: "sk-ant"},
		Models: map[llm.ProviderName]string{llm.ProviderOpenAI: "gpt-4.1"},
	}
	cc := cfg.ClientConfig(creds, []string{"claude"})

	assert.Equal(t, "sk-ant", cc.Credentials[llm.ProviderClaude])
	assert.Equal(t, "gpt-4.1", cc.Models[llm.ProviderOpenAI])
	assert.Equal(t, "http://localhost:4000", cc.BaseURLs[llm.ProviderClaude])
	assert.Equal(t, 5, cc.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cc.Timeout)
	assert.Equal(t, []string{"claude"}, cc.Required)
}

func TestLoadCredentials(t *testing.T) {
	keyring.MockInit()
	for _, name := range llm.Providers() {
		unsetEnv(t, llm.CredentialEnv[name])
		unsetEnv(t, llm.ModelEnv[name])
	}
	t.Setenv("OPENAI_API_KEY", "sk-env")

	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "ANTHROPIC_API_KEY=sk-file\nOPENAI_API_KEY=sk-ignored\nCLAUDE_MODEL=claude-opus-4-20250514\n")
	require.NoError(t, StoreAPIKey("gemini", "gm-keyring"))

	creds, err := LoadCredentials(CredentialsConfig{EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "sk-file", creds.Keys[llm.ProviderClaude])
	assert.Equal(t, "sk-env", creds.Keys[llm.ProviderOpenAI])
	assert.Equal(t, "gm-keyring", creds.Keys[llm.ProviderGemini])
	assert.Equal(t, "claude-opus-4-20250514", creds.Models[llm.ProviderClaude])

	disabled := false
	unsetEnv(t, "ANTHROPIC_API_KEY")
	creds, err = LoadCredentials(CredentialsConfig{EnvFile: filepath.Join(dir, "missing.env"), UseKeyring: &disabled})
	require.NoError(t, err)
	assert.NotContains(t, creds.Keys, llm.ProviderGemini)
	assert.NotContains(t, creds.Keys, llm.ProviderClaude)
}

func TestAPIKeyStore(t *testing.T) {
	keyring.MockInit()

	require.NoError(t, StoreAPIKey("Claude", "sk-ant"))
	got, err := keyring.Get(KeyringService, "claude")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant", got)

	require.NoError(t, DeleteAPIKey("claude"))
	require.NoError(t, DeleteAPIKey("claude"))

	var cfgErr *llm.ProviderConfigError
	assert.ErrorAs(t, StoreAPIKey("cohere", "x"), &cfgErr)
	assert.Error(t, StoreAPIKey("openai", ""))
}
