package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Validator checks one property of a Config. Settings are named by their
// dotted YAML path, the same path EnvKey is derived from.
type Validator func(c *Config) error

// Required fails when any of the settings at paths holds its zero value
func Required(paths ...string) Validator {
	return func(c *Config) error {
		var missing []string
		for _, path := range paths {
			field, err := setting(c, path)
			if err != nil {
				return err
			}
			if field.IsZero() {
				missing = append(missing, path)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
		}
		return nil
	}
}

// Positive fails when a numeric or duration setting is zero or negative
func Positive(paths ...string) Validator {
	return func(c *Config) error {
		for _, path := range paths {
			field, err := setting(c, path)
			if err != nil {
				return err
			}
			n, err := number(path, field)
			if err != nil {
				return err
			}
			if n <= 0 {
				return fmt.Errorf("%s must be positive, got %s", path, display(field))
			}
		}
		return nil
	}
}

// InRange fails when a numeric setting lies outside [min, max]
func InRange(path string, min, max float64) Validator {
	return func(c *Config) error {
		field, err := setting(c, path)
		if err != nil {
			return err
		}
		n, err := number(path, field)
		if err != nil {
			return err
		}
		if n < min || n > max {
			return fmt.Errorf("%s is %s, out of range [%g, %g]", path, display(field), min, max)
		}
		return nil
	}
}

// OneOf fails when a string setting is not one of allowed
func OneOf(path string, allowed ...string) Validator {
	return func(c *Config) error {
		field, err := setting(c, path)
		if err != nil {
			return err
		}
		if field.Kind() != reflect.String {
			return fmt.Errorf("%s is not a string setting", path)
		}
		for _, v := range allowed {
			if field.String() == v {
				return nil
			}
		}
		return fmt.Errorf("%s is %q, want one of: %s", path, field.String(), strings.Join(allowed, ", "))
	}
}

// setting resolves a dotted YAML path against c
func setting(c *Config, path string) (reflect.Value, error) {
	val := reflect.ValueOf(c).Elem()
	for _, key := range strings.Split(path, ".") {
		if val.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("unknown setting %s", path)
		}
		next, ok := fieldByKey(val, key)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown setting %s", path)
		}
		val = next
	}
	return val, nil
}

func fieldByKey(val reflect.Value, key string) (reflect.Value, bool) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		if sf := typ.Field(i); sf.IsExported() && settingKey(sf) == key {
			return val.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// number reads int, float64 and Duration settings
func number(path string, field reflect.Value) (float64, error) {
	switch field.Kind() {
	case reflect.Int, reflect.Int64:
		return float64(field.Int()), nil
	case reflect.Float64:
		return field.Float(), nil
	default:
		return 0, fmt.Errorf("%s is not numeric", path)
	}
}

func display(field reflect.Value) string {
	if field.Type() == durationType {
		return time.Duration(field.Int()).String()
	}
	return fmt.Sprint(field.Interface())
}
