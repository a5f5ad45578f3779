// Package config loads benchmark settings from flags and optional JSON or YAML
// files.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// fileSettings reads typed values out of a viper settings map. Keys are matched
// case-insensitively and may be spelled with underscores, dashes or nothing
// between words. The first conversion error is kept and later reads are skipped.
type fileSettings struct {
	values map[string]interface{}
	err    error
}

func newFileSettings(values map[string]interface{}) *fileSettings {
	normalized := make(map[string]interface{}, len(values))
	for k, v := range values {
		normalized[normalizeKey(k)] = v
	}
	return &fileSettings{values: normalized}
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "").Replace(key)
}

func (s *fileSettings) lookup(key string) (interface{}, bool) {
	if s.err != nil {
		return nil, false
	}
	v, ok := s.values[normalizeKey(key)]
	return v, ok
}

func (s *fileSettings) fail(key string, err error) {
	if s.err == nil {
		s.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (s *fileSettings) str(key string, dst *string) {
	if raw, ok := s.lookup(key); ok {
		*dst = strings.TrimSpace(asString(raw))
	}
}

func (s *fileSettings) integer(key string, dst *int) {
	if raw, ok := s.lookup(key); ok {
		v, err := asInt(raw)
		if err != nil {
			s.fail(key, err)
			return
		}
		*dst = v
	}
}

func (s *fileSettings) float(key string, dst *float64) {
	if raw, ok := s.lookup(key); ok {
		v, err := asFloat64(raw)
		if err != nil {
			s.fail(key, err)
			return
		}
		*dst = v
	}
}

func (s *fileSettings) boolean(key string, dst *bool) {
	if raw, ok := s.lookup(key); ok {
		v, err := asBool(raw)
		if err != nil {
			s.fail(key, err)
			return
		}
		*dst = v
	}
}

func (s *fileSettings) optionalBool(key string, dst **bool) {
	if raw, ok := s.lookup(key); ok && raw != nil {
		v, err := asBool(raw)
		if err != nil {
			s.fail(key, err)
			return
		}
		*dst = &v
	}
}

func (s *fileSettings) duration(key string, dst *time.Duration) {
	if raw, ok := s.lookup(key); ok {
		v, err := asDuration(raw)
		if err != nil {
			s.fail(key, err)
			return
		}
		*dst = v
	}
}

func (s *fileSettings) list(key string, dst *[]string) {
	if raw, ok := s.lookup(key); ok {
		v, err := asStringSlice(raw)
		if err != nil {
			s.fail(key, err)
			return
		}
		*dst = v
	}
}

// section returns the nested map stored under key, or an empty reader.
func (s *fileSettings) section(key string) *fileSettings {
	raw, ok := s.lookup(key)
	if !ok || raw == nil {
		return newFileSettings(nil)
	}
	nested, err := toStringKeyMap(raw)
	if err != nil {
		s.fail(key, err)
		return newFileSettings(nil)
	}
	return newFileSettings(nested)
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func asInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
}

func asFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported float type %T", value)
	}
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, fmt.Errorf("unsupported boolean type %T", value)
	}
}

// asDuration accepts Go duration strings; bare numbers are seconds.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return time.ParseDuration(v)
	case int, int32, int64, float32, float64:
		secs, err := asFloat64(v)
		if err != nil {
			return 0, err
		}
		return time.Duration(secs * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", value)
	}
}

func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), v...), nil
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = asString(item)
		}
		return out, nil
	case string:
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("unsupported string slice type %T", value)
	}
}

func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		return v, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			out[asString(key)] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected map, got %T", value)
	}
}
