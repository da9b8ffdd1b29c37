package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

type field int

const (
	fieldRefID field = iota
	fieldModule
	fieldName
	fieldMethod
	fieldURL
	fieldHeaders
	fieldBody
	fieldParams
	fieldExpectedResponse
	fieldAuthScope
	fieldTokenVariable
	fieldIsTokenGenerator
	fieldExpectedStatus
)

type column struct {
	field     field
	canonical string
	required  bool
}

// columns is matched in order; the order decides which field claims an
// ambiguous header first.
var columns = []column{
	{fieldRefID, "ref id", false},
	{fieldModule, "module/feature", false},
	{fieldName, "api name", true},
	{fieldMethod, "http method", true},
	{fieldURL, "endpoint url", true},
	{fieldHeaders, "headers required", false},
	{fieldBody, "request payload (json example)", false},
	{fieldParams, "url params", false},
	{fieldExpectedResponse, "expected response (success)", false},
	{fieldAuthScope, "auth scope", false},
	{fieldTokenVariable, "token variable", false},
	{fieldIsTokenGenerator, "is token generator", false},
	{fieldExpectedStatus, "expected status code", false},
}

var (
	envKeyNames   = []string{"variable", "key", "name"}
	envValueNames = []string{"value", "initial value", "current value"}
)

const maxHintDistance = 4

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\r\n", " ")
	h = strings.ReplaceAll(h, "\n", " ")
	return strings.ToLower(strings.TrimSpace(h))
}

// matchColumn returns the index of the header matching name: an exact match
// anywhere wins over a substring match, and the leftmost column wins ties.
func matchColumn(headers []string, name string) (int, bool) {
	for i, h := range headers {
		if h != "" && h == name {
			return i, true
		}
	}
	for i, h := range headers {
		if h == "" {
			continue
		}
		if strings.Contains(h, name) || strings.Contains(name, h) {
			return i, true
		}
	}
	return -1, false
}

func matchAny(headers []string, names []string) (int, bool) {
	for _, name := range names {
		if i, ok := matchColumn(headers, name); ok {
			return i, true
		}
	}
	return -1, false
}

// resolveColumns maps fields to sheet column indexes and lists the missing
// mandatory columns by canonical name.
func resolveColumns(rawHeaders []string) (map[field]int, []string) {
	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = normalizeHeader(h)
	}

	found := make(map[field]int, len(columns))
	var missing []string
	for _, c := range columns {
		if i, ok := matchColumn(headers, c.canonical); ok {
			found[c.field] = i
			continue
		}
		if c.required {
			missing = append(missing, c.canonical)
		}
	}
	return found, missing
}

// columnHints suggests the closest sheet header for every missing column.
func columnHints(rawHeaders []string, missing []string) []string {
	var candidates []string
	for _, h := range rawHeaders {
		if n := normalizeHeader(h); n != "" {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	var hints []string
	for _, name := range missing {
		if best, ok := closestHeader(name, candidates); ok {
			hints = append(hints, fmt.Sprintf("did you mean '%s' for '%s'?", best, name))
		}
	}
	return hints
}

func closestHeader(name string, candidates []string) (string, bool) {
	ranks := fuzzy.RankFindNormalizedFold(name, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target, true
	}

	best, bestDistance := "", maxHintDistance+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(name, c); d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best, best != ""
}
