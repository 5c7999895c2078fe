package config

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/book-expert/gsv2p-tts/internal/core"
)

const keySeparator = "."

// Values is a flat, read-only view of the configuration keyed by dotted
// names such as "gsv2p.api_url". It implements core.ConfigSource.
type Values map[string]any

// Get returns the raw value stored under key.
func (v Values) Get(key string) (any, bool) {
	value, ok := v[key]

	return value, ok
}

// Values flattens the typed configuration into the key-value view the plugin
// components read from.
func (c *Config) Values() (Values, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	var tree map[string]any

	err = toml.Unmarshal(data, &tree)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config tree: %w", err)
	}

	values := make(Values)
	flatten("", tree, values)

	return values, nil
}

func flatten(prefix string, tree map[string]any, out Values) {
	for key, value := range tree {
		name := key
		if prefix != "" {
			name = prefix + keySeparator + key
		}

		table, isTable := value.(map[string]any)
		if isTable {
			flatten(name, table, out)

			continue
		}

		out[name] = value
	}
}

// String reads a string key, falling back to def when the key is missing or
// holds a non-string value.
func String(src core.ConfigSource, key, def string) string {
	value, ok := src.Get(key)
	if !ok {
		return def
	}

	switch typed := value.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return def
	}
}

// Float reads a numeric key as float64.
func Float(src core.ConfigSource, key string, def float64) float64 {
	value, ok := src.Get(key)
	if !ok {
		return def
	}

	switch typed := value.(type) {
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)
		if err != nil {
			return def
		}

		return parsed
	default:
		return def
	}
}

// Int reads a numeric key as int. Float values are accepted when they hold a
// whole number.
func Int(src core.ConfigSource, key string, def int) int {
	value, ok := src.Get(key)
	if !ok {
		return def
	}

	switch typed := value.(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		if typed != math.Trunc(typed) {
			return def
		}

		return int(typed)
	case string:
		parsed, err := strconv.Atoi(typed)
		if err != nil {
			return def
		}

		return parsed
	default:
		return def
	}
}

// Bool reads a boolean key.
func Bool(src core.ConfigSource, key string, def bool) bool {
	value, ok := src.Get(key)
	if !ok {
		return def
	}

	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(typed)
		if err != nil {
			return def
		}

		return parsed
	default:
		return def
	}
}
