package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(Duration(0))

// Load decodes path into target: JSON for .json files, YAML otherwise
func Load(path string, target interface{}) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(path, target)
	}
	return LoadYAML(path, target)
}

// EnvKey names the environment variable that overrides the setting at path,
// e.g. EnvKey("TXWORKER", "shutdown.poll_interval") is
// TXWORKER_SHUTDOWN_POLL_INTERVAL.
func EnvKey(prefix, path string) string {
	return prefix + "_" + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// ApplyEnvOverrides sets every scalar setting of cfg whose EnvKey is present
// in the environment. Executor pools are lists and cannot be overridden.
func ApplyEnvOverrides(prefix string, cfg *Config) error {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return walkSettings(cfg, func(path string, field reflect.Value) error {
		key := EnvKey(prefix, path)
		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			return nil
		}
		if err := setSetting(field, raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
}

func setSetting(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration value %q", raw)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid integer value %q", raw)
		}
		field.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid number value %q", raw)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean value %q", raw)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported setting type %s", field.Type())
	}
	return nil
}

// walkSettings calls fn with the dotted YAML path of every scalar in cfg
func walkSettings(cfg *Config, fn func(path string, field reflect.Value) error) error {
	return walkStruct("", reflect.ValueOf(cfg).Elem(), fn)
}

func walkStruct(prefix string, val reflect.Value, fn func(string, reflect.Value) error) error {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		path := settingKey(sf)
		if prefix != "" {
			path = prefix + "." + path
		}

		field := val.Field(i)
		var err error
		switch field.Kind() {
		case reflect.Struct:
			err = walkStruct(path, field, fn)
		case reflect.Slice:
			continue
		default:
			err = fn(path, field)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// settingKey is the YAML key of a config field
func settingKey(sf reflect.StructField) string {
	key, _, _ := strings.Cut(sf.Tag.Get("yaml"), ",")
	if key == "" {
		return strings.ToLower(sf.Name)
	}
	return key
}
