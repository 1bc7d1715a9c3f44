package scoringconfig

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ApplyOverrides sets fields addressed by dotted YAML keys.
// Unknown keys and unparsable values are ValidationErrors.
func ApplyOverrides(cfg *Config, kv map[string]string) error {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys) // 에러 메시지 결정성

	for _, key := range keys {
		field, ok := lookup(reflect.ValueOf(cfg).Elem(), strings.Split(key, "."))
		if !ok {
			return ValidationError{key, "unknown config key"}
		}
		if err := setScalar(field, strings.TrimSpace(kv[key])); err != nil {
			return ValidationError{key, err.Error()}
		}
	}
	return nil
}

// Keys lists every overridable dotted key
func Keys() []string {
	var out []string
	collectKeys(reflect.TypeOf(Config{}), "", &out)
	return out
}

func lookup(v reflect.Value, path []string) (reflect.Value, bool) {
	for _, part := range path {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		found := false
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if yamlName(t.Field(i)) == part {
				v = v.Field(i)
				found = true
				break
			}
		}
		if !found {
			return reflect.Value{}, false
		}
	}
	return v, v.Kind() != reflect.Struct
}

func setScalar(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q", raw)
		}
		field.SetFloat(f)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid int %q", raw)
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid bool %q", raw)
		}
		field.SetBool(b)
	case reflect.String:
		field.SetString(raw)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}

func collectKeys(t reflect.Type, prefix string, out *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := prefix + yamlName(f)
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, name+".", out)
			continue
		}
		*out = append(*out, name)
	}
}

func yamlName(f reflect.StructField) string {
	return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
}
