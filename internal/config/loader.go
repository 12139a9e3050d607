package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names read by Load.
const (
	EnvPrefix = "LEADSCORE_"
	EnvFile   = "LEADSCORE_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if LEADSCORE_CONFIG is set
//  3. env (prefix LEADSCORE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// LEADSCORE_DATASET_PATH -> dataset_path. Underscores are kept so the
	// keys match the flat koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
