package config

import (
	"context"
	"os"
)

// EnvVarProvider resolves secret keys as environment variable names. Keys that
// are not set are omitted from the result.
type EnvVarProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvVarProvider creates an EnvVarProvider backed by os.LookupEnv.
func NewEnvVarProvider() *EnvVarProvider {
	return &EnvVarProvider{lookup: os.LookupEnv}
}

// GetParametersBatch implements SecretProvider.
func (p *EnvVarProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	lookup := p.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := lookup(key); ok {
			out[key] = val
		}
	}
	return out, nil
}
