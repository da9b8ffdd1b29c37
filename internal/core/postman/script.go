package postman

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/Octrafic/api-factory/internal/core/normalize"
)

var authNameHints = []string{"auth", "login", "token"}

// testScript returns the test event lines: status check, token extraction,
// then expected-response assertions.
func testScript(ep *model.Endpoint) []string {
	s := &scriptBuilder{}

	s.add(`pm.test("Successful request", function () {`)
	s.add(fmt.Sprintf("    pm.expect(pm.response.code).to.be.oneOf([%s]);", statusList(ep.Status())))
	s.add("});")

	switch {
	case ep.IsTokenGenerator:
		tv := model.QuoteJSON(ep.TokenVariable)
		s.add("// Token Generator for variable: " + commentText(ep.TokenVariable))
		s.declareJSON()
		s.add(fmt.Sprintf("if (jsonData[%s]) { pm.globals.set(%s, jsonData[%s]); }", tv, tv, tv))
		s.add(fmt.Sprintf("else if (jsonData.token) { pm.globals.set(%s, jsonData.token); }", tv))
		s.add(fmt.Sprintf("else if (jsonData.access_token) { pm.globals.set(%s, jsonData.access_token); }", tv))
	case looksLikeAuth(ep.Name):
		s.add("// Auto-detected Authentication API")
		s.declareJSON()
		s.add(`if (jsonData.token) { pm.globals.set("token", jsonData.token); }`)
		s.add(`if (jsonData.access_token) { pm.globals.set("token", jsonData.access_token); }`)
	}

	s.expectations(ep.ExpectedResponse)
	return s.lines
}

type scriptBuilder struct {
	lines        []string
	jsonDeclared bool
}

func (s *scriptBuilder) add(line string) {
	s.lines = append(s.lines, line)
}

func (s *scriptBuilder) declareJSON() {
	if s.jsonDeclared {
		return
	}
	s.jsonDeclared = true
	s.add("var jsonData = pm.response.json();")
}

func (s *scriptBuilder) expectations(expected model.Value) {
	if normalize.IsEmptyExpectation(expected) {
		s.add("// No expected response defined, body assertions skipped.")
		return
	}
	if expected.IsEmpty() {
		return
	}

	switch expected.Kind() {
	case model.KindObject:
		s.declareJSON()
		for _, f := range expected.Fields() {
			key := model.QuoteJSON(f.Key)
			if f.Value.Kind() == model.KindString && normalize.IsPlaceholder(f.Value.Str()) {
				s.add(fmt.Sprintf("pm.globals.set(%s, jsonData[%s]);", key, key))
				continue
			}
			s.add(fmt.Sprintf("pm.test(%s, function () { pm.expect(jsonData[%s]).to.eql(%s); });",
				model.QuoteJSON("Check "+f.Key), key, f.Value.CompactJSON()))
		}
	case model.KindArray:
		if expected.HasPlaceholder() {
			s.add("// Skipped strict body match because expected response contains placeholders: " + commentText(expected.CompactJSON()))
			return
		}
		s.add(fmt.Sprintf("pm.test(\"Body matches expected response\", function () { pm.expect(pm.response.json()).to.eql(%s); });",
			expected.CompactJSON()))
	default:
		text := expected.Text()
		if normalize.HasPlaceholder(text) {
			s.add("// Skipped strict body match because expected response contains placeholders: " + commentText(text))
			return
		}
		s.add(`pm.test("Body contains expected text", function () {`)
		s.add(fmt.Sprintf("    pm.expect(pm.response.text()).to.include(%s);", model.QuoteJSON(text)))
		s.add("});")
	}
}

func looksLikeAuth(name string) bool {
	lower := strings.ToLower(name)
	for _, hint := range authNameHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// statusList renders the accepted statuses, declared one first, without duplicates.
func statusList(declared int) string {
	codes := []int{declared}
	for _, c := range []int{200, 201} {
		if c != declared {
			codes = append(codes, c)
		}
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ", ")
}

// commentText keeps free text on a single script line.
func commentText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
