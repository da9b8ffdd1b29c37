// Package normalize turns loosely formatted spreadsheet cells into typed values.
package normalize

import (
	"errors"
	"strings"

	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned by ParseJSON for cells that are not valid JSON text.
var ErrInvalidJSON = errors.New("invalid JSON")

const maxTokenVariableLength = 50

var truthy = map[string]bool{"true": true, "yes": true, "1": true}

// ParseJSON parses a cell that must hold JSON. Object members keep document order.
func ParseJSON(cell string) (model.Value, error) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return model.Null(), ErrInvalidJSON
	}
	return model.FromGJSON(gjson.Parse(trimmed)), nil
}

// ParseJSONOrRaw returns the parsed JSON value, the raw text when the cell is
// not JSON, or null for an empty cell.
func ParseJSONOrRaw(cell string) model.Value {
	if strings.TrimSpace(cell) == "" {
		return model.Null()
	}
	v, err := ParseJSON(cell)
	if err != nil {
		return model.String(cell)
	}
	return v
}

// ParseHeaders parses a header cell. A JSON object is used as is; anything else
// is read as "Key: Value" fragments separated by newlines or ';'. The second
// return value reports a cell that looked like a JSON object but failed to parse.
func ParseHeaders(cell string) (model.StringMap, bool) {
	var headers model.StringMap
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return headers, false
	}

	looksJSON := strings.HasPrefix(trimmed, "{")
	if v, err := ParseJSON(trimmed); err == nil && v.IsObject() {
		for _, f := range v.Fields() {
			headers.Set(f.Key, f.Value.Text())
		}
		return headers, false
	}

	fragments := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ';'
	})
	for _, fragment := range fragments {
		key, value, ok := strings.Cut(fragment, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers.Set(key, strings.TrimSpace(value))
	}
	return headers, looksJSON
}

// ParseBool reads the "is token generator" flag.
func ParseBool(cell string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(cell))]
}

// SanitizeTokenVariable guards against a whole token pasted into the variable
// column: long values or values containing a dot collapse to "token".
func SanitizeTokenVariable(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > maxTokenVariableLength || strings.Contains(trimmed, ".") {
		return model.DefaultTokenVariable
	}
	if trimmed == "" {
		return model.DefaultTokenVariable
	}
	return trimmed
}

// IsPlaceholder reports a bracketed marker such as "<authToken>".
func IsPlaceholder(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">")
}

// HasPlaceholder reports a string carrying both angle brackets anywhere.
func HasPlaceholder(s string) bool {
	return strings.Contains(s, "<") && strings.Contains(s, ">")
}

// IsEmptyExpectation reports an expected response that asserts nothing.
func IsEmptyExpectation(v model.Value) bool {
	if v.IsNull() {
		return true
	}
	if v.Kind() != model.KindString {
		return false
	}
	text := strings.TrimSpace(v.Str())
	return text == "" || text == "None" || text == `""`
}
