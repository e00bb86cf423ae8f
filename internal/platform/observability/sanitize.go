package observability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Log field values are bounded and stripped of control characters so a
// crafted path or header cannot forge log lines.

func sanitizeString(value string, limit int) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	for limit > 0 && utf8.RuneCountInString(value) > limit {
		_, size := utf8.DecodeLastRuneInString(value)
		value = value[:len(value)-size]
	}
	return value
}

// SanitizeRoute bounds a route pattern for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod bounds an HTTP method for logging.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}

// SanitizeTenantSlug bounds a tenant identifier for logging.
func SanitizeTenantSlug(slug string) string {
	return sanitizeString(slug, 64)
}
