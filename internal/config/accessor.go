package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// secretPaths lists the dot-paths holding credentials. A "*" segment matches
// any key, so provider entries added by the user are covered too.
var secretPaths = []string{
	"providers.*.apiKey",
	"coinmarketcap.apiKey",
	"search.googleApiKey",
	"search.bingApiKey",
	"search.serpApiKey",
	"search.wolframAppId",
}

// IsSecretPath reports whether a dot-path names a credential.
func IsSecretPath(path string) bool {
	parts := strings.Split(path, ".")
	for _, pattern := range secretPaths {
		if matchPath(strings.Split(pattern, "."), parts) {
			return true
		}
	}
	return false
}

func matchPath(pattern, parts []string) bool {
	if len(pattern) != len(parts) {
		return false
	}
	for i, seg := range pattern {
		if seg != "*" && seg != parts[i] {
			return false
		}
	}
	return true
}

// configTree is the JSON-shaped view of a Config the accessors walk.
type configTree map[string]any

func treeOf(cfg *Config) (configTree, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var t configTree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return t, nil
}

func (t configTree) decodeInto(cfg *Config) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func (t configTree) get(path string) (any, error) {
	var current any = map[string]any(t)
	for _, key := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("invalid array index: %s", key)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
	}
	return current, nil
}

// set writes value at path, creating intermediate objects as needed.
func (t configTree) set(path string, value any) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	parts := strings.Split(path, ".")
	parent := map[string]any(t)
	for _, key := range parts[:len(parts)-1] {
		child, ok := parent[key]
		if !ok {
			next := make(map[string]any)
			parent[key] = next
			parent = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot traverse into %T at %s", child, key)
		}
		parent = next
	}
	parent[parts[len(parts)-1]] = value
	return nil
}

// leaves flattens the tree into dot-path → value.
func (t configTree) leaves() map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(path, child)
				continue
			}
			out[path] = v
		}
	}
	walk("", t)
	return out
}

// GetByPath retrieves a config value by dot-notation path (e.g. "coinmarketcap.cacheDurationDays").
func GetByPath(cfg *Config, path string) (any, error) {
	t, err := treeOf(cfg)
	if err != nil {
		return nil, err
	}
	return t.get(path)
}

// SetByPath sets a config value by dot-notation path. String values are
// coerced to bool or number when they parse as one.
func SetByPath(cfg *Config, path string, value any) error {
	t, err := treeOf(cfg)
	if err != nil {
		return err
	}
	if err := t.set(path, parseValue(value)); err != nil {
		return err
	}
	return t.decodeInto(cfg)
}

func parseValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Sanitize returns a copy of the config with every secret path masked.
func Sanitize(cfg *Config) *Config {
	t, err := treeOf(cfg)
	if err != nil {
		return cfg
	}
	for path, v := range t.leaves() {
		s, ok := v.(string)
		if !ok || s == "" || !IsSecretPath(path) {
			continue
		}
		_ = t.set(path, maskString(s))
	}
	var masked Config
	if err := t.decodeInto(&masked); err != nil {
		return cfg
	}
	return &masked
}

// maskString keeps the first and last 4 characters.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ListPaths returns all settable config paths with their current values.
func ListPaths(cfg *Config) map[string]any {
	t, err := treeOf(cfg)
	if err != nil {
		return nil
	}
	return t.leaves()
}
