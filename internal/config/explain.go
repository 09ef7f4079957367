package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/womp-app/womp/internal/womperr"
)

// Source says where a setting's value came from.
type Source string

const (
	SourceFile    Source = "file"
	SourceDefault Source = "default"
)

// Keys lists every setting key in file order.
func Keys() []string {
	var node yaml.Node
	if err := node.Encode(DefaultConfig()); err != nil {
		return nil
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}

func toMap(cfg GlobalConfig) (map[string]any, error) {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any)
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Lookup returns the value of key in cfg.
func Lookup(cfg GlobalConfig, key string) (any, error) {
	m, err := toMap(cfg)
	if err != nil {
		return nil, err
	}
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown setting %q", womperr.ErrInvalidArgument, key)
	}
	return v, nil
}

// FileKeys returns the keys explicitly present in the config file at path.
// A missing file has none.
func FileKeys(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	keys := make(map[string]bool)
	if len(node.Content) == 0 {
		return keys, nil
	}
	root := node.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys[root.Content[i].Value] = true
	}
	return keys, nil
}

// Explain returns the value of key and whether it was set in the file or
// is a default.
func Explain(cfg GlobalConfig, fileKeys map[string]bool, key string) (any, Source, error) {
	v, err := Lookup(cfg, key)
	if err != nil {
		return nil, "", err
	}
	if fileKeys[key] {
		return v, SourceFile, nil
	}
	return v, SourceDefault, nil
}

// WithSetting returns cfg with key set to value, parsed as YAML. The value
// must have the key's type and enum settings must name a known value.
func WithSetting(cfg GlobalConfig, key, value string) (GlobalConfig, error) {
	m, err := toMap(cfg)
	if err != nil {
		return cfg, err
	}
	current, ok := m[key]
	if !ok {
		return cfg, fmt.Errorf("%w: unknown setting %q", womperr.ErrInvalidArgument, key)
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", womperr.ErrInvalidArgument, key, err)
	}
	if fmt.Sprintf("%T", parsed) != fmt.Sprintf("%T", current) {
		return cfg, fmt.Errorf("%w: %s expects a %T value, got %q", womperr.ErrInvalidArgument, key, current, value)
	}
	m[key] = parsed

	data, err := yaml.Marshal(m)
	if err != nil {
		return cfg, err
	}
	out := DefaultConfig()
	if err := decodeStrictYAML(data, &out); err != nil {
		return cfg, fmt.Errorf("%w: %v", womperr.ErrInvalidArgument, err)
	}

	if s, ok := parsed.(string); ok {
		normalized, _ := Lookup(out.Normalize(), key)
		if normalized != strings.ToLower(strings.TrimSpace(s)) {
			return cfg, fmt.Errorf("%w: %q is not a valid %s", womperr.ErrInvalidArgument, s, key)
		}
	}
	return out.Normalize(), nil
}
