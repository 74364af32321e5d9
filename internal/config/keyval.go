package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// KeyValue represents a config key and its value
type KeyValue struct {
	Key   string
	Value string
}

// sensitiveKeys is populated at init time from `sensitive:"true"` struct tags.
var sensitiveKeys map[string]bool

func init() {
	sensitiveKeys = make(map[string]bool)
	collectSensitiveKeys(reflect.TypeOf(Config{}), "", sensitiveKeys)
}

func getTOMLKey(field reflect.StructField) string {
	tag := field.Tag.Get("toml")
	if tag == "" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

func collectSensitiveKeys(t reflect.Type, prefix string, out map[string]bool) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tagKey := getTOMLKey(field)
		if tagKey == "" {
			continue
		}
		fullKey := joinKey(prefix, tagKey)
		if field.Type.Kind() == reflect.Struct {
			collectSensitiveKeys(field.Type, fullKey, out)
			continue
		}
		if field.Tag.Get("sensitive") == "true" {
			out[fullKey] = true
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// IsSensitiveKey returns true if the key holds a secret that should be masked.
func IsSensitiveKey(key string) bool {
	return sensitiveKeys[key]
}

// MaskValue returns a masked version of a sensitive value, showing only the last 4 chars.
func MaskValue(val string) string {
	if len(val) <= 4 {
		return "****"
	}
	return "****" + val[len(val)-4:]
}

// GetConfigValue retrieves a value by dot-separated TOML key (e.g. "client.server").
func GetConfigValue(cfg *Config, key string) (string, error) {
	field, err := findFieldByTOMLKey(reflect.ValueOf(cfg).Elem(), key)
	if err != nil {
		return "", err
	}
	return formatValue(field), nil
}

// SetConfigValue sets a scalar value by TOML key, converting to the field's type.
func SetConfigValue(cfg *Config, key, value string) error {
	field, err := findFieldByTOMLKey(reflect.ValueOf(cfg).Elem(), key)
	if err != nil {
		return err
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %q", value)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %q", value)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("key %q cannot be set from the command line", key)
	}
	return nil
}

// ListConfigKeys returns all non-zero scalar values, masking secrets.
func ListConfigKeys(cfg *Config) []KeyValue {
	kvs := flattenStruct(reflect.ValueOf(cfg).Elem(), "")
	for i := range kvs {
		if IsSensitiveKey(kvs[i].Key) {
			kvs[i].Value = MaskValue(kvs[i].Value)
		}
	}
	return kvs
}

func findFieldByTOMLKey(v reflect.Value, key string) (reflect.Value, error) {
	parts := strings.SplitN(key, ".", 2)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if getTOMLKey(t.Field(i)) != parts[0] {
			continue
		}
		fieldVal := v.Field(i)
		if len(parts) == 2 {
			if fieldVal.Kind() != reflect.Struct {
				return reflect.Value{}, fmt.Errorf("key %q: %q is not a section", key, parts[0])
			}
			return findFieldByTOMLKey(fieldVal, parts[1])
		}
		return fieldVal, nil
	}
	return reflect.Value{}, fmt.Errorf("unknown config key: %q", key)
}

func formatValue(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// flattenStruct walks nested sections building dot-separated keys. Slices of
// structs (admins) have no scalar form and are skipped.
func flattenStruct(v reflect.Value, prefix string) []KeyValue {
	var result []KeyValue
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tagKey := getTOMLKey(t.Field(i))
		if tagKey == "" {
			continue
		}
		fullKey := joinKey(prefix, tagKey)
		fieldVal := v.Field(i)
		switch {
		case fieldVal.Kind() == reflect.Struct:
			result = append(result, flattenStruct(fieldVal, fullKey)...)
		case fieldVal.Kind() == reflect.Slice, fieldVal.IsZero():
		default:
			result = append(result, KeyValue{Key: fullKey, Value: formatValue(fieldVal)})
		}
	}
	return result
}
