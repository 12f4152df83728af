package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"k8s.io/klog/v2"

	"github.com/helmcode/codescribe/pkg/llm"
)

// KeyringService is the OS keyring service name API keys are stored under.
const KeyringService = "codescribe"

// Credentials are the API keys and model overrides found for each provider.
type Credentials struct {
	Keys   map[llm.ProviderName]string
	Models map[llm.ProviderName]string
}

// LoadCredentials reads provider keys from the environment after loading
// the env file, then from the OS keyring for providers still missing one.
// Variables already set in the environment are not overwritten by the file.
func LoadCredentials(cfg CredentialsConfig) (Credentials, error) {
	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Credentials{}, fmt.Errorf("loading %s: %w", cfg.EnvFile, err)
		}
	}

	creds := Credentials{
		Keys:   make(map[llm.ProviderName]string),
		Models: make(map[llm.ProviderName]string),
	}
	for _, name := range llm.Providers() {
		if m := os.Getenv(llm.ModelEnv[name]); m != "" {
			creds.Models[name] = m
		}
		if key := os.Getenv(llm.CredentialEnv[name]); key != "" {
			creds.Keys[name] = key
			continue
		}
		if !cfg.KeyringEnabled() {
			continue
		}
		key, err := keyring.Get(KeyringService, string(name))
		switch {
		case err == nil:
			creds.Keys[name] = key
			klog.V(2).InfoS("Using API key from keyring", "provider", name)
		case errors.Is(err, keyring.ErrNotFound):
		default:
			// A machine without a keyring daemon is not an error.
			klog.V(1).InfoS("Keyring lookup failed", "provider", name, "err", err)
		}
	}
	return creds, nil
}

// StoreAPIKey saves a provider key in the OS keyring.
func StoreAPIKey(provider, apiKey string) error {
	name, ok := llm.ParseProviderName(provider)
	if !ok {
		return &llm.ProviderConfigError{Provider: provider, Reason: "unsupported provider (supported: claude, openai, gemini)"}
	}
	if apiKey == "" {
		return errors.New("API key is empty")
	}
	return keyring.Set(KeyringService, string(name), apiKey)
}

// DeleteAPIKey removes a provider key from the OS keyring. Deleting a key
// that is not stored is not an error.
func DeleteAPIKey(provider string) error {
	name, ok := llm.ParseProviderName(provider)
	if !ok {
		return &llm.ProviderConfigError{Provider: provider, Reason: "unsupported provider (supported: claude, openai, gemini)"}
	}
	if err := keyring.Delete(KeyringService, string(name)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
