package config

import (
	"fmt"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load reads the global config from a JSON or YAML file, applies PLANNER_
// environment overrides, and fills every absent key from the defaults. The
// raw key map is returned alongside the typed config so cross-field
// validation can inspect exactly what was provided.
func Load(path string) (GlobalConfig, map[string]any, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = kyaml.Parser()
	case ".json":
		parser = kjson.Parser()
	default:
		return GlobalConfig{}, nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return GlobalConfig{}, nil, err
	}
	if err := loadEnv(k); err != nil {
		return GlobalConfig{}, nil, err
	}
	cfg, err := unmarshal(k)
	if err != nil {
		return GlobalConfig{}, nil, err
	}
	return cfg, k.Raw(), nil
}

// FromMap builds a GlobalConfig from an already-decoded JSON object, used when
// the global config arrives embedded in the request payload.
func FromMap(raw map[string]any) (GlobalConfig, error) {
	k := koanf.New(".")
	if raw != nil {
		payload, err := kjson.Parser().Marshal(raw)
		if err != nil {
			return GlobalConfig{}, err
		}
		if err := k.Load(rawProvider{data: payload}, kjson.Parser()); err != nil {
			return GlobalConfig{}, err
		}
	}
	return unmarshal(k)
}

func loadEnv(k *koanf.Koanf) error {
	return k.Load(env.Provider("PLANNER_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "planner_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
}

func unmarshal(k *koanf.Koanf) (GlobalConfig, error) {
	// Decoding on top of the defaults keeps every key the file omits,
	// including booleans that default to true.
	cfg := DefaultGlobalConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

// rawProvider feeds pre-serialized bytes to koanf.
type rawProvider struct {
	data []byte
}

func (p rawProvider) ReadBytes() ([]byte, error) { return p.data, nil }

func (p rawProvider) Read() (map[string]any, error) {
	return nil, fmt.Errorf("raw provider does not support map reads")
}
