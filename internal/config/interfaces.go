package config

import "context"

// SecretProvider resolves secret parameter paths to plaintext values.
// SSMProvider serves deployed environments and EnvVarProvider local runs.
type SecretProvider interface {
	// GetParametersBatch returns path -> value for every path it could resolve.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
