package telemetry

import (
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
)

// Span attributes must never carry prompt material. Any key that could
// name prompt text, sanitizer output or a credential is dropped
// wholesale rather than truncated: a shortened prompt still leaks.
var deniedKeySubstrings = []string{
	"prompt", // also catches sanitized_prompt and prompt_preview
	"sanitized",
	"preview",
	"explanation",
	"content",
	"authorization",
	"api_key",
	"token",
	"secret",
	"email",
}

// Free-form string values are capped; anything longer is more likely
// pasted input than a label.
const maxAttrValueRunes = 256

// maxAttrSliceLen bounds slice attributes; the category enum has five
// members, so anything near the cap indicates a bug upstream.
const maxAttrSliceLen = 16

func attrKeyDenied(key string) bool {
	k := strings.ToLower(key)
	for _, bad := range deniedKeySubstrings {
		if strings.Contains(k, bad) {
			return true
		}
	}
	return false
}

// SafeAttributes converts a loose attribute map into OTEL attributes,
// dropping denied keys and oversized or unsupported values.
func SafeAttributes(values map[string]interface{}) []attribute.KeyValue {
	if len(values) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, len(values))
	for k, v := range values {
		if attrKeyDenied(k) {
			continue
		}
		switch val := v.(type) {
		case string:
			if utf8.RuneCountInString(val) > maxAttrValueRunes {
				continue
			}
			attrs = append(attrs, attribute.String(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case []string:
			if len(val) > maxAttrSliceLen {
				val = val[:maxAttrSliceLen]
			}
			attrs = append(attrs, attribute.StringSlice(k, val))
		default:
			// Unsupported types are dropped rather than stringified.
		}
	}
	return attrs
}
