package textutil

import "strings"

// NormalizeStringMap trims every key and value and drops entries whose key
// trims to empty. Returns nil when nothing survives so callers can treat the
// result as optional.
func NormalizeStringMap(values map[string]string) map[string]string {
	var result map[string]string
	for key, value := range values {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if result == nil {
			result = make(map[string]string, len(values))
		}
		result[key] = strings.TrimSpace(value)
	}
	return result
}
