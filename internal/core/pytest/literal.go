package pytest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Octrafic/api-factory/internal/core/model"
)

const authFixture = "auth_token"

var (
	varPattern      = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)
	exactVarPattern = regexp.MustCompile(`^\{\{\s*(\w+)\s*\}\}$`)

	defaultAuthNames = []string{"token", "authtoken", "auth_token", "access_token"}
)

// pyString renders s as a double-quoted Python string literal.
func pyString(s string) string {
	return strconv.Quote(s)
}

// fstringText escapes s for the literal part of a double-quoted f-string.
func fstringText(s string) string {
	q := strconv.Quote(s)
	q = q[1 : len(q)-1]
	q = strings.ReplaceAll(q, "{", "{{")
	return strings.ReplaceAll(q, "}", "}}")
}

// pyLiteral renders v as a Python expression. String leaves go through str so
// callers can swap in fixture references.
func pyLiteral(v model.Value, str func(string) string) string {
	switch v.Kind() {
	case model.KindNull:
		return "None"
	case model.KindBool:
		if v.BoolValue() {
			return "True"
		}
		return "False"
	case model.KindNumber:
		return v.Literal()
	case model.KindString:
		return str(v.Str())
	case model.KindArray:
		items := make([]string, len(v.Items()))
		for i, item := range v.Items() {
			items[i] = pyLiteral(item, str)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case model.KindObject:
		fields := make([]string, len(v.Fields()))
		for i, f := range v.Fields() {
			fields[i] = pyString(f.Key) + ": " + pyLiteral(f.Value, str)
		}
		return "{" + strings.Join(fields, ", ") + "}"
	}
	return "None"
}

// substituter rewrites {{var}} references to auth token variables into the
// auth_token fixture and records whether it did.
type substituter struct {
	authNames map[string]bool
	used      bool
}

func newSubstituter(doc *model.APIDocument) *substituter {
	names := make(map[string]bool)
	for _, n := range defaultAuthNames {
		names[n] = true
	}
	for _, ep := range doc.Endpoints {
		if ep.TokenVariable != "" {
			names[strings.ToLower(ep.TokenVariable)] = true
		}
	}
	return &substituter{authNames: names}
}

func (s *substituter) isAuthName(name string) bool {
	lower := strings.ToLower(name)
	return s.authNames[lower] || strings.HasSuffix(lower, "token")
}

// Expr renders text as a Python expression. A value that is exactly one auth
// token reference becomes the fixture itself; embedded references become an
// f-string. Other {{var}} references stay literal.
func (s *substituter) Expr(text string) string {
	if m := exactVarPattern.FindStringSubmatch(strings.TrimSpace(text)); m != nil && s.isAuthName(m[1]) {
		s.used = true
		return authFixture
	}

	var b strings.Builder
	last, replaced := 0, false
	for _, m := range varPattern.FindAllStringSubmatchIndex(text, -1) {
		if !s.isAuthName(text[m[2]:m[3]]) {
			continue
		}
		b.WriteString(fstringText(text[last:m[0]]))
		b.WriteString("{" + authFixture + "}")
		last, replaced = m[1], true
	}
	if !replaced {
		return pyString(text)
	}
	b.WriteString(fstringText(text[last:]))
	s.used = true
	return `f"` + b.String() + `"`
}

// identifier lower-cases name and folds every run of characters that cannot
// appear in a Python identifier into a single underscore.
func identifier(name, fallback string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// commentText keeps free text on a single comment line.
func commentText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
