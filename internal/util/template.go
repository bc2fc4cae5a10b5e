package util

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RenderPlaceholders replaces every "{key}" in text with the string form of
// input[key]. Keys are substituted in lexical order; placeholders without a
// matching key are left untouched.
func RenderPlaceholders(text string, input map[string]any) (string, error) {
	if !strings.Contains(text, "{") { // fast path: no placeholder markers
		return text, nil
	}

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := text
	for _, k := range keys {
		placeholder := "{" + k + "}"
		if !strings.Contains(out, placeholder) {
			continue
		}
		s, err := Stringify(input[k])
		if err != nil {
			return "", fmt.Errorf("render placeholder %s: %w", placeholder, err)
		}
		out = strings.ReplaceAll(out, placeholder, s)
	}
	return out, nil
}

// Stringify converts a JSON-like value into prompt text. Strings are used
// verbatim, nil becomes the empty string and everything else is JSON encoded.
func Stringify(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
