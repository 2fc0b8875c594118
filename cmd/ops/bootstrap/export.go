package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
)

// localDefaults are written alongside the exported parameters.
var localDefaults = map[string]string{
	"APP_ENV":        "local",
	"EMAIL_PROVIDER": "stub",
	"ENABLE_METRICS": "false",
	"LOG_LEVEL":      "debug",
}

// ExportEnvFile reads every inventory parameter back from SSM and writes them
// as a .env file at path.
func ExportEnvFile(ctx context.Context, store ParameterStore, path string) error {
	env, err := collectEnv(ctx, store, BuildInventory(&Validator{}))
	if err != nil {
		return err
	}
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func collectEnv(ctx context.Context, store ParameterStore, inventory []Step) (map[string]string, error) {
	env := make(map[string]string, len(inventory)+len(localDefaults))
	for k, v := range localDefaults {
		env[k] = v
	}
	for _, step := range inventory {
		path := store.Path(step.Key)
		exists, err := store.Exists(ctx, path)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		value, err := store.Get(ctx, path)
		if err != nil {
			return nil, err
		}
		env[step.EnvVar] = value
	}
	return env, nil
}
