// Package credentials resolves provider API keys through a fixed
// precedence chain and reports which source produced the key. Keys are
// never logged; request-capture utilities redact credential headers.
package credentials

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
)

// Source tags where a resolved key came from.
type Source string

const (
	// SourceOption is the per-call api_key option.
	SourceOption Source = "option"
	// SourceConfig is the process-wide configuration store.
	SourceConfig Source = "config"
	// SourceEnv is an environment variable.
	SourceEnv Source = "env"
	// SourceSecretStore is the in-memory secret store.
	SourceSecretStore Source = "secret_store"
)

// EnvVarFunc maps a provider id to its API-key environment variable. The
// registry's EnvVarName is the usual implementation.
type EnvVarFunc func(providerID string) string

var (
	mu      sync.RWMutex
	conf    = koanf.New(".")
	secrets = map[string]string{}
)

// LoadConfigFile layers a YAML configuration file into the process-wide
// store. Keys follow the "{provider}_api_key" convention.
func LoadConfigFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if err := conf.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("loading credential config: %w", err)
	}
	return nil
}

// LoadConfigEnv layers LLM_-prefixed environment variables into the
// config store (LLM_OPENAI_API_KEY -> openai_api_key). This is distinct
// from the conventional per-provider variables consulted by SourceEnv.
func LoadConfigEnv() error {
	mu.Lock()
	defer mu.Unlock()
	return conf.Load(env.Provider("LLM_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "LLM_"))
	}), nil)
}

// SetConfigKey stores a key programmatically, equivalent to a config-file
// entry. An empty value removes nothing; it is simply skipped at resolve
// time.
func SetConfigKey(providerID, key string) {
	mu.Lock()
	defer mu.Unlock()
	_ = conf.Set(providerID+"_api_key", key)
}

// StoreSecret places a key in the in-memory secret store, the last
// resolution source.
func StoreSecret(providerID, key string) {
	mu.Lock()
	defer mu.Unlock()
	secrets[providerID] = key
}

// Resolve finds the API key for a provider. Precedence, first non-empty
// match wins: the per-call option, the configuration store, the
// conventional environment variable, the secret store. Empty strings are
// treated as missing.
func Resolve(providerID, apiKeyOption string, envVar EnvVarFunc) (string, Source, error) {
	if apiKeyOption != "" {
		return apiKeyOption, SourceOption, nil
	}

	mu.RLock()
	fromConfig := conf.String(providerID + "_api_key")
	fromSecrets := secrets[providerID]
	mu.RUnlock()

	if fromConfig != "" {
		return fromConfig, SourceConfig, nil
	}

	if envVar != nil {
		if name := envVar(providerID); name != "" {
			if key := os.Getenv(name); key != "" {
				return key, SourceEnv, nil
			}
		}
	}

	if fromSecrets != "" {
		return fromSecrets, SourceSecretStore, nil
	}

	return "", "", llmerrors.Newf(llmerrors.KindInvalidParameter,
		"no API key found for provider %q", providerID)
}

// reset clears all process-wide state; tests only.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	conf = koanf.New(".")
	secrets = map[string]string{}
}
